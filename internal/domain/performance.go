package domain

// PerformanceRecord holds the scoring metrics derived from an asset's price
// window. Recomputed in full every cycle; only the lookback window matters.
type PerformanceRecord struct {
	Asset       string  // Asset symbol
	Price       float64 // Latest close
	ChangePct   float64 // Window open-to-close change, percent
	Volatility  float64 // Sample std deviation of period returns, percent
	RSI         float64 // Relative strength index over the trailing window
	VolumeTrend float64 // Recent vs. preceding volume window change, percent
	Score       float64 // Composite ranking score; larger is more attractive
}
