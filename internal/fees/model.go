package fees

import (
	"fmt"

	"cryptoRotationBot/internal/domain"
)

// Model holds the exchange fee structure and computes fee-adjusted expected
// returns for candidate trades. Market orders always execute at taker rate,
// so the discounted taker fee is the single rate used for every leg. The
// effective maker fee is computed for observability only.
type Model struct {
	makerFee          float64
	takerFee          float64
	feeDiscount       float64
	standardFee       float64
	effectiveMakerFee float64
}

// New creates a fee model from the raw maker/taker rates and a discount
// fraction in [0, 1].
func New(makerFee, takerFee, feeDiscount float64) (*Model, error) {
	if makerFee < 0 || makerFee >= 1 {
		return nil, fmt.Errorf("maker fee %f must be in [0, 1)", makerFee)
	}
	if takerFee < 0 || takerFee >= 1 {
		return nil, fmt.Errorf("taker fee %f must be in [0, 1)", takerFee)
	}
	if feeDiscount < 0 || feeDiscount > 1 {
		return nil, fmt.Errorf("fee discount %f must be in [0, 1]", feeDiscount)
	}
	return &Model{
		makerFee:          makerFee,
		takerFee:          takerFee,
		feeDiscount:       feeDiscount,
		standardFee:       takerFee * (1 - feeDiscount),
		effectiveMakerFee: makerFee * (1 - feeDiscount),
	}, nil
}

// StandardFee returns the discounted taker rate applied to every trade leg.
func (m *Model) StandardFee() float64 {
	return m.standardFee
}

// EffectiveMakerFee returns the discounted maker rate. Unused by the decision
// core; kept for reporting and future limit-order support.
func (m *Model) EffectiveMakerFee() float64 {
	return m.effectiveMakerFee
}

// BuyFee computes the fee for buying with the given base-currency amount.
func (m *Model) BuyFee(amount float64) float64 {
	return amount * m.standardFee
}

// SellFee computes the fee for selling proceeds of the given amount.
func (m *Model) SellFee(amount float64) float64 {
	return amount * m.standardFee
}

// RoundTripFee computes the combined buy-and-sell fee for an amount.
func (m *Model) RoundTripFee(amount float64) float64 {
	return amount * m.standardFee * 2
}

// AdjustedReturn computes the fee-adjusted expected return of moving capital
// from one asset to another, as a decimal fraction. Both assets must be
// scored unless they are the base currency; the caller guarantees from != to.
//
// Buying models the target's score as the expected return with one fee leg.
// Selling back to base credits a future return only when the held asset's
// score is negative (selling a winner has no modeled credit). A rotation is
// the score difference with two fee legs.
func (m *Model) AdjustedReturn(from, to string, perf map[string]*domain.PerformanceRecord, baseCurrency string) float64 {
	var expectedReturn, feeImpact float64

	switch {
	case from == baseCurrency:
		expectedReturn = perf[to].Score / 100
		feeImpact = m.standardFee

	case to == baseCurrency:
		if perf[from].Score < 0 {
			expectedReturn = -perf[from].Score / 100
		}
		feeImpact = m.standardFee

	default:
		expectedReturn = (perf[to].Score - perf[from].Score) / 100
		feeImpact = m.standardFee * 2
	}

	return expectedReturn - feeImpact
}
