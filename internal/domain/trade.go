package domain

import "time"

// TradeIntent is a candidate trade produced by the decision engine.
// ExpectedReturn is a fee-adjusted decimal fraction, not yet realized.
type TradeIntent struct {
	FromAsset      string
	ToAsset        string
	ExpectedReturn float64
}

// Type derives the trade classification from the intent's endpoints.
func (i TradeIntent) Type(baseCurrency string) TradeType {
	switch {
	case i.FromAsset == baseCurrency:
		return TradeBuy
	case i.ToAsset == baseCurrency:
		return TradeSell
	default:
		return TradeRotation
	}
}

// TradeRecord is an immutable, append-only log entry for one executed trade.
// A rotation carries both legs' amounts and prices and their summed fee.
type TradeRecord struct {
	ID             string    // ULID, time-sortable
	Timestamp      time.Time // Execution time
	Type           TradeType // buy, sell or rotation
	FromAsset      string    // Asset capital moved out of
	ToAsset        string    // Asset capital moved into
	AmountSold     float64   // Quantity of FromAsset spent (base amount for buys)
	AmountBought   float64   // Quantity of ToAsset acquired (base amount for sells)
	PriceSold      float64   // Execution price of FromAsset (0 for buys)
	PriceBought    float64   // Execution price of ToAsset (0 for sells)
	ExpectedReturn float64   // Fee-adjusted return the intent promised
	Fee            float64   // Total fee paid, all legs
	FeeCurrency    string    // Currency the fee is denominated in
	Simulated      bool      // True when no exchange order was placed
}
