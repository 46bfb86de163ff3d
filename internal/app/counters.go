package app

import "time"

// tradeCounters is the execution bookkeeping shared by the decision engine
// (daily limit, reset) and the executor (increments). It lives for the life
// of the service and is only touched inside the executing cycle.
type tradeCounters struct {
	tradesExecuted int
	totalFeesPaid  float64
	dailyTrades    int
	lastTradeDay   time.Time // truncated to a calendar date
}

// dateOf truncates a time to its calendar date in its own location.
func dateOf(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
