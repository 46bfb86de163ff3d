package domain

import "time"

// PortfolioSnapshot records the holdings, prices and total portfolio value
// observed during one trading cycle.
type PortfolioSnapshot struct {
	ID         int64
	Timestamp  time.Time
	Holdings   map[string]float64 // asset -> quantity held
	Prices     map[string]float64 // asset -> price in base currency
	TotalValue float64            // sum of balance x price, base counted at 1
}
