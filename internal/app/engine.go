package app

import (
	"context"
	"fmt"
	"sort"

	"cryptoRotationBot/internal/domain"
	"cryptoRotationBot/internal/fees"
	"cryptoRotationBot/internal/ports"
)

// EngineConfig holds the decision parameters.
type EngineConfig struct {
	BaseCurrency       string
	TradeAmount        float64 // base-currency size of one accumulation
	MinProfitThreshold float64 // decimal fraction a buy/rotation must clear
	MaxTradesPerDay    int
	// EvaluateOverlap keeps the reference behavior of evaluating a rotation
	// for an asset that already received a liquidation intent in the same
	// cycle. Disabling it suppresses the rotation evaluation for those assets.
	EvaluateOverlap bool
}

// DecisionEngine turns per-asset performance records and the current ledger
// into an ordered list of trade intents: accumulation first, then
// liquidations worst-first, then rotations over held assets.
type DecisionEngine struct {
	cfg      EngineConfig
	fees     *fees.Model
	clock    ports.Clock
	logger   ports.Logger
	counters *tradeCounters
}

// NewDecisionEngine creates a decision engine.
func NewDecisionEngine(cfg EngineConfig, feeModel *fees.Model, clk ports.Clock, logger ports.Logger, counters *tradeCounters) (*DecisionEngine, error) {
	if feeModel == nil || clk == nil || logger == nil || counters == nil {
		return nil, fmt.Errorf("missing required dependencies for DecisionEngine")
	}
	if cfg.BaseCurrency == "" {
		return nil, fmt.Errorf("engine base currency is required")
	}
	if cfg.TradeAmount <= 0 {
		return nil, fmt.Errorf("engine trade amount must be positive")
	}
	return &DecisionEngine{cfg: cfg, fees: feeModel, clock: clk, logger: logger, counters: counters}, nil
}

// resetDailyCount zeroes the daily trade counter the first time it runs on a
// new calendar date. Returns whether a reset happened.
func (e *DecisionEngine) resetDailyCount() bool {
	today := dateOf(e.clock.Now())
	if e.counters.lastTradeDay.Equal(today) {
		return false
	}
	e.counters.dailyTrades = 0
	e.counters.lastTradeDay = today
	return true
}

// Decide produces the trade intents for one cycle. An empty result is normal:
// the daily limit is reached, nothing is scorable, or no opportunity clears
// its threshold.
func (e *DecisionEngine) Decide(ctx context.Context, ledger *domain.Ledger, perf map[string]*domain.PerformanceRecord) []domain.TradeIntent {
	if e.resetDailyCount() {
		e.logger.Debug(ctx, "Daily trade counter reset", map[string]interface{}{"date": e.counters.lastTradeDay.Format("2006-01-02")})
	}

	if e.counters.dailyTrades >= e.cfg.MaxTradesPerDay {
		e.logger.Info(ctx, "Daily trade limit reached, no trades this cycle", map[string]interface{}{
			"dailyTrades": e.counters.dailyTrades,
			"maxPerDay":   e.cfg.MaxTradesPerDay,
		})
		return nil
	}

	ranked := rankByScore(perf)
	if len(ranked) == 0 {
		e.logger.Warn(ctx, "No scorable assets this cycle, nothing to decide")
		return nil
	}
	topAsset := ranked[0].Asset

	var intents []domain.TradeIntent
	base := e.cfg.BaseCurrency
	held := ledger.Held()

	// Accumulation: buy the top performer with idle base currency.
	if ledger.Balance(base) >= e.cfg.TradeAmount {
		expectedReturn := e.fees.AdjustedReturn(base, topAsset, perf, base)
		if expectedReturn > e.cfg.MinProfitThreshold {
			intents = append(intents, domain.TradeIntent{FromAsset: base, ToAsset: topAsset, ExpectedReturn: expectedReturn})
			e.logger.Info(ctx, "Planning to buy top performer", map[string]interface{}{
				"asset":          topAsset,
				"expectedReturn": expectedReturn,
			})
		} else {
			e.logger.Info(ctx, "Holding base currency, expected return below threshold", map[string]interface{}{
				"asset":          topAsset,
				"expectedReturn": expectedReturn,
				"threshold":      e.cfg.MinProfitThreshold,
			})
		}
	}

	// Liquidations: held assets with negative scores, worst first. Selling is
	// worth it when it loses less than continuing to hold, not only on profit.
	liquidating := make(map[string]bool)
	for i := len(ranked) - 1; i >= 0; i-- {
		record := ranked[i]
		if record.Score >= 0 || ledger.Balance(record.Asset) <= 0 || record.Asset == base {
			continue
		}
		expectedReturn := e.fees.AdjustedReturn(record.Asset, base, perf, base)
		if expectedReturn > -e.fees.StandardFee() {
			intents = append(intents, domain.TradeIntent{FromAsset: record.Asset, ToAsset: base, ExpectedReturn: expectedReturn})
			liquidating[record.Asset] = true
			e.logger.Info(ctx, "Planning to sell poor performer", map[string]interface{}{
				"asset":          record.Asset,
				"score":          record.Score,
				"expectedReturn": expectedReturn,
			})
		} else {
			e.logger.Info(ctx, "Not selling despite poor performance, fee exceeds benefit", map[string]interface{}{
				"asset": record.Asset,
				"score": record.Score,
			})
		}
	}

	// Rotations: move every other held asset into the top performer when the
	// score difference clears the threshold after both fee legs.
	for _, asset := range held {
		if asset == topAsset {
			continue
		}
		if !e.cfg.EvaluateOverlap && liquidating[asset] {
			continue
		}
		if _, scored := perf[asset]; !scored {
			// Asset was skipped this cycle (insufficient data); no basis to rotate.
			e.logger.Debug(ctx, "Skipping rotation for unscored asset", map[string]interface{}{"asset": asset})
			continue
		}
		expectedReturn := e.fees.AdjustedReturn(asset, topAsset, perf, base)
		if expectedReturn > e.cfg.MinProfitThreshold {
			intents = append(intents, domain.TradeIntent{FromAsset: asset, ToAsset: topAsset, ExpectedReturn: expectedReturn})
			e.logger.Info(ctx, "Planning rotation into top performer", map[string]interface{}{
				"from":           asset,
				"to":             topAsset,
				"expectedReturn": expectedReturn,
			})
		} else {
			e.logger.Debug(ctx, "Not rotating, performance difference insufficient after fees", map[string]interface{}{
				"from":     asset,
				"to":       topAsset,
				"diff":     perf[topAsset].Score - perf[asset].Score,
				"expected": expectedReturn,
			})
		}
	}

	return intents
}

// rankByScore sorts performance records descending by score, asset symbol as
// a deterministic tie-break.
func rankByScore(perf map[string]*domain.PerformanceRecord) []*domain.PerformanceRecord {
	ranked := make([]*domain.PerformanceRecord, 0, len(perf))
	for _, record := range perf {
		ranked = append(ranked, record)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Asset < ranked[j].Asset
	})
	return ranked
}
