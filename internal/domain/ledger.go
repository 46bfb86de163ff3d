package domain

import (
	"fmt"
	"sort"
)

// Ledger is the bot's balance sheet: asset symbol -> non-negative quantity
// held. The base currency and every configured trade asset always have an
// entry. The ledger is single-owner state, mutated only inside the executing
// cycle; it performs no locking of its own.
type Ledger struct {
	baseCurrency string
	balances     map[string]float64
}

// NewLedger builds a ledger with every trade asset at zero and the base
// currency funded with the configured trade amount.
func NewLedger(baseCurrency string, tradeAssets []string, initialBase float64) (*Ledger, error) {
	if baseCurrency == "" {
		return nil, fmt.Errorf("base currency is required")
	}
	if initialBase < 0 {
		return nil, fmt.Errorf("initial base balance cannot be negative")
	}
	balances := make(map[string]float64, len(tradeAssets)+1)
	for _, asset := range tradeAssets {
		if asset == baseCurrency {
			return nil, fmt.Errorf("trade asset %s duplicates the base currency", asset)
		}
		balances[asset] = 0
	}
	balances[baseCurrency] = initialBase
	return &Ledger{baseCurrency: baseCurrency, balances: balances}, nil
}

// BaseCurrency returns the settlement asset all trades round-trip through.
func (l *Ledger) BaseCurrency() string {
	return l.baseCurrency
}

// Balance returns the quantity held of an asset, zero if unknown.
func (l *Ledger) Balance(asset string) float64 {
	return l.balances[asset]
}

// Credit increases an asset's balance.
func (l *Ledger) Credit(asset string, quantity float64) error {
	if quantity < 0 {
		return fmt.Errorf("cannot credit negative quantity %f of %s", quantity, asset)
	}
	l.balances[asset] += quantity
	return nil
}

// Debit decreases an asset's balance, failing on overdraw.
func (l *Ledger) Debit(asset string, quantity float64) error {
	if quantity < 0 {
		return fmt.Errorf("cannot debit negative quantity %f of %s", quantity, asset)
	}
	if l.balances[asset] < quantity {
		return fmt.Errorf("debit of %f %s exceeds balance %f", quantity, asset, l.balances[asset])
	}
	l.balances[asset] -= quantity
	return nil
}

// Zero empties an asset's balance and returns the quantity that was held.
// Sells and rotations are full liquidations, never partial.
func (l *Ledger) Zero(asset string) float64 {
	held := l.balances[asset]
	l.balances[asset] = 0
	return held
}

// Held returns the non-base assets with a positive balance, sorted for
// deterministic iteration order.
func (l *Ledger) Held() []string {
	held := make([]string, 0, len(l.balances))
	for asset, quantity := range l.balances {
		if asset != l.baseCurrency && quantity > 0 {
			held = append(held, asset)
		}
	}
	sort.Strings(held)
	return held
}

// TotalValue computes the portfolio value in base currency terms. The base
// currency is counted at 1; assets without a known price contribute nothing.
func (l *Ledger) TotalValue(prices map[string]float64) float64 {
	total := l.balances[l.baseCurrency]
	for asset, quantity := range l.balances {
		if asset == l.baseCurrency {
			continue
		}
		if price, ok := prices[asset]; ok {
			total += quantity * price
		}
	}
	return total
}

// Snapshot returns a copy of all balances.
func (l *Ledger) Snapshot() map[string]float64 {
	out := make(map[string]float64, len(l.balances))
	for asset, quantity := range l.balances {
		out[asset] = quantity
	}
	return out
}
