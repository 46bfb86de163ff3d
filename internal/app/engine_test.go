package app

import (
	"context"
	"testing"
	"time"

	"cryptoRotationBot/internal/domain"
	"cryptoRotationBot/internal/fees"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, cfg EngineConfig, clk *mockClock, counters *tradeCounters) *DecisionEngine {
	t.Helper()
	feeModel, err := fees.New(0.0008, 0.0010, 0)
	require.NoError(t, err)
	engine, err := NewDecisionEngine(cfg, feeModel, clk, &mockLogger{}, counters)
	require.NoError(t, err)
	return engine
}

func defaultEngineConfig() EngineConfig {
	return EngineConfig{
		BaseCurrency:       "USDT",
		TradeAmount:        100,
		MinProfitThreshold: 0.005,
		MaxTradesPerDay:    5,
		EvaluateOverlap:    true,
	}
}

func perfWith(scores map[string]float64) map[string]*domain.PerformanceRecord {
	perf := make(map[string]*domain.PerformanceRecord, len(scores))
	for asset, score := range scores {
		perf[asset] = &domain.PerformanceRecord{Asset: asset, Score: score}
	}
	return perf
}

func TestNewDecisionEngine(t *testing.T) {
	feeModel, err := fees.New(0.0008, 0.0010, 0)
	require.NoError(t, err)
	clk := &mockClock{now: time.Now()}

	_, err = NewDecisionEngine(defaultEngineConfig(), nil, clk, &mockLogger{}, &tradeCounters{})
	assert.Error(t, err)

	cfg := defaultEngineConfig()
	cfg.BaseCurrency = ""
	_, err = NewDecisionEngine(cfg, feeModel, clk, &mockLogger{}, &tradeCounters{})
	assert.Error(t, err)

	cfg = defaultEngineConfig()
	cfg.TradeAmount = 0
	_, err = NewDecisionEngine(cfg, feeModel, clk, &mockLogger{}, &tradeCounters{})
	assert.Error(t, err)
}

func TestDecisionEngine_Accumulation(t *testing.T) {
	clk := &mockClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	engine := newTestEngine(t, defaultEngineConfig(), clk, &tradeCounters{})

	ledger, err := domain.NewLedger("USDT", []string{"BTC", "ETH"}, 100)
	require.NoError(t, err)

	// Score 3.0 -> 0.03 expected - 0.001 fee = 0.029, above the threshold.
	intents := engine.Decide(context.Background(), ledger, perfWith(map[string]float64{"BTC": 3.0, "ETH": 1.0}))

	require.Len(t, intents, 1)
	assert.Equal(t, "USDT", intents[0].FromAsset)
	assert.Equal(t, "BTC", intents[0].ToAsset)
	assert.InDelta(t, 0.029, intents[0].ExpectedReturn, 1e-12)
}

func TestDecisionEngine_AccumulationBelowThreshold(t *testing.T) {
	clk := &mockClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	engine := newTestEngine(t, defaultEngineConfig(), clk, &tradeCounters{})

	ledger, err := domain.NewLedger("USDT", []string{"BTC"}, 100)
	require.NoError(t, err)

	// 0.005 expected - 0.001 fee = 0.004, not above the 0.005 threshold.
	intents := engine.Decide(context.Background(), ledger, perfWith(map[string]float64{"BTC": 0.5}))
	assert.Empty(t, intents)
}

func TestDecisionEngine_NoBaseNoAccumulation(t *testing.T) {
	clk := &mockClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	engine := newTestEngine(t, defaultEngineConfig(), clk, &tradeCounters{})

	// Base balance below the trade amount: no buy regardless of score.
	ledger, err := domain.NewLedger("USDT", []string{"BTC"}, 99.99)
	require.NoError(t, err)

	intents := engine.Decide(context.Background(), ledger, perfWith(map[string]float64{"BTC": 10}))
	assert.Empty(t, intents)
}

func TestDecisionEngine_Liquidation(t *testing.T) {
	clk := &mockClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	engine := newTestEngine(t, defaultEngineConfig(), clk, &tradeCounters{})

	ledger, err := domain.NewLedger("USDT", []string{"BTC", "ADA"}, 0)
	require.NoError(t, err)
	require.NoError(t, ledger.Credit("ADA", 1000))

	// ADA holds its top spot check: BTC scores higher but nothing is held in
	// it and no base is available, so only the liquidation fires.
	intents := engine.Decide(context.Background(), ledger, perfWith(map[string]float64{"BTC": 1.0, "ADA": -2.1}))

	// The rotation ADA -> BTC also clears: (1.0 - -2.1)/100 - 0.002 = 0.029.
	require.Len(t, intents, 2)
	assert.Equal(t, "ADA", intents[0].FromAsset)
	assert.Equal(t, "USDT", intents[0].ToAsset)
	assert.InDelta(t, 0.021-0.001, intents[0].ExpectedReturn, 1e-12)
	assert.Equal(t, "ADA", intents[1].FromAsset)
	assert.Equal(t, "BTC", intents[1].ToAsset)
}

func TestDecisionEngine_ZeroScoreHolds(t *testing.T) {
	clk := &mockClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	engine := newTestEngine(t, defaultEngineConfig(), clk, &tradeCounters{})

	ledger, err := domain.NewLedger("USDT", []string{"ADA"}, 0)
	require.NoError(t, err)
	require.NoError(t, ledger.Credit("ADA", 1000))

	// A zero score is not negative, so no liquidation is considered, and as
	// the sole ranked asset it is its own rotation target: nothing to do.
	intents := engine.Decide(context.Background(), ledger, perfWith(map[string]float64{"ADA": 0}))
	assert.Empty(t, intents)
}

func TestDecisionEngine_DailyLimit(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	clk := &mockClock{now: now}
	counters := &tradeCounters{dailyTrades: 5, lastTradeDay: dateOf(now)}
	engine := newTestEngine(t, defaultEngineConfig(), clk, counters)

	ledger, err := domain.NewLedger("USDT", []string{"BTC"}, 100)
	require.NoError(t, err)

	intents := engine.Decide(context.Background(), ledger, perfWith(map[string]float64{"BTC": 10}))
	assert.Empty(t, intents)
}

func TestDecisionEngine_DailyLimitResetsOnNewDate(t *testing.T) {
	day1 := time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)
	clk := &mockClock{now: day1}
	counters := &tradeCounters{dailyTrades: 5, lastTradeDay: dateOf(day1)}
	engine := newTestEngine(t, defaultEngineConfig(), clk, counters)

	ledger, err := domain.NewLedger("USDT", []string{"BTC"}, 100)
	require.NoError(t, err)
	perf := perfWith(map[string]float64{"BTC": 10})

	// Still the same date: limit holds.
	assert.Empty(t, engine.Decide(context.Background(), ledger, perf))

	// Cross midnight: the counter resets exactly once and trading resumes.
	clk.now = day1.Add(time.Hour)
	intents := engine.Decide(context.Background(), ledger, perf)
	require.Len(t, intents, 1)
	assert.Equal(t, 0, counters.dailyTrades)
	assert.Equal(t, dateOf(clk.now), counters.lastTradeDay)

	// A later cycle on the same new date does not reset again.
	counters.dailyTrades = 3
	clk.now = clk.now.Add(2 * time.Hour)
	engine.Decide(context.Background(), ledger, perf)
	assert.Equal(t, 3, counters.dailyTrades)
}

func TestDecisionEngine_EmptyRanking(t *testing.T) {
	clk := &mockClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	engine := newTestEngine(t, defaultEngineConfig(), clk, &tradeCounters{})

	ledger, err := domain.NewLedger("USDT", []string{"BTC"}, 100)
	require.NoError(t, err)

	assert.Empty(t, engine.Decide(context.Background(), ledger, nil))
	assert.Empty(t, engine.Decide(context.Background(), ledger, perfWith(nil)))
}

func TestDecisionEngine_OverlapFlag(t *testing.T) {
	clk := &mockClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}

	setup := func(evaluateOverlap bool) []domain.TradeIntent {
		cfg := defaultEngineConfig()
		cfg.EvaluateOverlap = evaluateOverlap
		engine := newTestEngine(t, cfg, clk, &tradeCounters{})

		ledger, err := domain.NewLedger("USDT", []string{"BTC", "ADA"}, 0)
		require.NoError(t, err)
		require.NoError(t, ledger.Credit("ADA", 1000))

		return engine.Decide(context.Background(), ledger, perfWith(map[string]float64{"BTC": 10, "ADA": -5}))
	}

	// With overlap: the liquidated asset is also evaluated for rotation.
	withOverlap := setup(true)
	require.Len(t, withOverlap, 2)
	assert.Equal(t, "USDT", withOverlap[0].ToAsset)
	assert.Equal(t, "BTC", withOverlap[1].ToAsset)

	// Without overlap: only the liquidation remains.
	withoutOverlap := setup(false)
	require.Len(t, withoutOverlap, 1)
	assert.Equal(t, "USDT", withoutOverlap[0].ToAsset)
}

func TestDecisionEngine_Ordering(t *testing.T) {
	clk := &mockClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	engine := newTestEngine(t, defaultEngineConfig(), clk, &tradeCounters{})

	ledger, err := domain.NewLedger("USDT", []string{"BTC", "ETH", "ADA", "DOT"}, 100)
	require.NoError(t, err)
	require.NoError(t, ledger.Credit("ADA", 1000)) // score -5, liquidated second-worst
	require.NoError(t, ledger.Credit("DOT", 50))   // score -8, liquidated first
	require.NoError(t, ledger.Credit("ETH", 1))    // score 2, rotated into BTC

	intents := engine.Decide(context.Background(), ledger, perfWith(map[string]float64{
		"BTC": 10, "ETH": 2, "ADA": -5, "DOT": -8,
	}))

	// Accumulation, then liquidations worst-first, then rotations over held
	// assets in sorted order.
	require.Len(t, intents, 6)
	assert.Equal(t, "USDT", intents[0].FromAsset)
	assert.Equal(t, "BTC", intents[0].ToAsset)
	assert.Equal(t, "DOT", intents[1].FromAsset)
	assert.Equal(t, "USDT", intents[1].ToAsset)
	assert.Equal(t, "ADA", intents[2].FromAsset)
	assert.Equal(t, "USDT", intents[2].ToAsset)
	assert.Equal(t, "ADA", intents[3].FromAsset)
	assert.Equal(t, "BTC", intents[3].ToAsset)
	assert.Equal(t, "DOT", intents[4].FromAsset)
	assert.Equal(t, "BTC", intents[4].ToAsset)
	assert.Equal(t, "ETH", intents[5].FromAsset)
	assert.Equal(t, "BTC", intents[5].ToAsset)
}

func TestDecisionEngine_SkipsUnscoredHeldAssets(t *testing.T) {
	clk := &mockClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	engine := newTestEngine(t, defaultEngineConfig(), clk, &tradeCounters{})

	ledger, err := domain.NewLedger("USDT", []string{"BTC", "SOL"}, 0)
	require.NoError(t, err)
	require.NoError(t, ledger.Credit("SOL", 10))

	// SOL was unscorable this cycle: no rotation is derived for it.
	intents := engine.Decide(context.Background(), ledger, perfWith(map[string]float64{"BTC": 10}))
	assert.Empty(t, intents)
}

func TestRankByScore(t *testing.T) {
	ranked := rankByScore(perfWith(map[string]float64{"ETH": 2, "BTC": 2, "ADA": 5}))
	require.Len(t, ranked, 3)
	assert.Equal(t, "ADA", ranked[0].Asset)
	// Equal scores break ties by symbol for deterministic cycles.
	assert.Equal(t, "BTC", ranked[1].Asset)
	assert.Equal(t, "ETH", ranked[2].Asset)
}
