package domain

import "time"

// PricePoint represents a single OHLCV sample for one asset at one interval.
type PricePoint struct {
	OpenTime  time.Time // Start time of the interval
	CloseTime time.Time // End time of the interval
	Asset     string    // Asset symbol (e.g., "BTC")
	Interval  string    // Sampling interval (e.g., "1h", "1d")
	Open      float64   // Opening price
	High      float64   // Highest price
	Low       float64   // Lowest price
	Close     float64   // Closing price
	Volume    float64   // Traded volume
}
