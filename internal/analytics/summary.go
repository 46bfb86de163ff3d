package analytics

import (
	"sort"
	"time"

	"cryptoRotationBot/internal/domain"
)

// Summary holds aggregate statistics over a set of trade records.
type Summary struct {
	TotalTrades     int
	Buys            int
	Sells           int
	Rotations       int
	SimulatedTrades int
	TotalFeesPaid   float64
	FirstTrade      time.Time
	LastTrade       time.Time
	DailyFees       map[string]float64 // "2006-01-02" -> fees paid that day
	ExpectedReturn  float64            // sum of fee-adjusted expected returns
}

// Summarize computes aggregate trade statistics. The input order does not
// matter; records are sorted by timestamp internally.
func Summarize(records []*domain.TradeRecord) *Summary {
	s := &Summary{DailyFees: make(map[string]float64)}
	if len(records) == 0 {
		return s
	}

	sorted := make([]*domain.TradeRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	s.FirstTrade = sorted[0].Timestamp
	s.LastTrade = sorted[len(sorted)-1].Timestamp

	for _, record := range sorted {
		s.TotalTrades++
		switch record.Type {
		case domain.TradeBuy:
			s.Buys++
		case domain.TradeSell:
			s.Sells++
		case domain.TradeRotation:
			s.Rotations++
		}
		if record.Simulated {
			s.SimulatedTrades++
		}
		s.TotalFeesPaid += record.Fee
		s.ExpectedReturn += record.ExpectedReturn
		s.DailyFees[record.Timestamp.Format("2006-01-02")] += record.Fee
	}
	return s
}

// DailyFeeSeries returns the per-day fee totals as a date-sorted slice.
func (s *Summary) DailyFeeSeries() []DailyFee {
	series := make([]DailyFee, 0, len(s.DailyFees))
	for day, fees := range s.DailyFees {
		date, _ := time.Parse("2006-01-02", day)
		series = append(series, DailyFee{Day: date, Fees: fees})
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].Day.Before(series[j].Day)
	})
	return series
}

// DailyFee is the total fee paid on one calendar day.
type DailyFee struct {
	Day  time.Time
	Fees float64
}
