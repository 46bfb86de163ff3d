package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"cryptoRotationBot/config"
	"cryptoRotationBot/internal/domain"
	"cryptoRotationBot/internal/fees"
	"cryptoRotationBot/internal/ports"
	"cryptoRotationBot/internal/scoring"
)

// RotationService orchestrates the portfolio-rotation loop: one cycle fetches
// prices, scores the universe, decides trades, executes them in order and
// snapshots the resulting portfolio.
type RotationService struct {
	cfg       *config.Config
	logger    ports.Logger
	feed      ports.PriceFeed
	clock     ports.Clock
	scorer    *scoring.Scorer
	engine    *DecisionEngine
	executor  *TradeExecutor
	ledger    *domain.Ledger
	snapshots ports.SnapshotRepository
	counters  *tradeCounters

	// mu serializes cycles; the ledger and counters are only touched while
	// it is held.
	mu sync.Mutex
}

// Stats reports the cumulative execution totals.
type Stats struct {
	TradesExecuted int
	TotalFeesPaid  float64
	DailyTrades    int
}

// NewRotationService wires the decision core against its collaborators.
func NewRotationService(
	cfg *config.Config,
	logger ports.Logger,
	feed ports.PriceFeed,
	orders ports.OrderExecutor,
	tradeRepo ports.TradeRepository,
	snapshotRepo ports.SnapshotRepository,
	clk ports.Clock,
) (*RotationService, error) {
	if cfg == nil || logger == nil || feed == nil || orders == nil || tradeRepo == nil || snapshotRepo == nil || clk == nil {
		return nil, fmt.Errorf("missing required dependencies for RotationService")
	}

	feeModel, err := fees.New(cfg.MakerFee, cfg.TakerFee, cfg.FeeDiscount)
	if err != nil {
		return nil, fmt.Errorf("invalid fee configuration: %w", err)
	}

	scorer, err := scoring.New(scoring.Config{})
	if err != nil {
		return nil, err
	}
	if cfg.LookbackLimit < scorer.MinSamples() {
		return nil, fmt.Errorf("LOOKBACK_LIMIT %d is below the scorer's minimum of %d", cfg.LookbackLimit, scorer.MinSamples())
	}

	ledger, err := domain.NewLedger(cfg.BaseCurrency, cfg.TradeAssets, cfg.TradeAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid ledger configuration: %w", err)
	}

	counters := &tradeCounters{}

	engine, err := NewDecisionEngine(EngineConfig{
		BaseCurrency:       cfg.BaseCurrency,
		TradeAmount:        cfg.TradeAmount,
		MinProfitThreshold: cfg.MinProfitThreshold,
		MaxTradesPerDay:    cfg.MaxTradesPerDay,
		EvaluateOverlap:    cfg.EvaluateOverlap,
	}, feeModel, clk, logger, counters)
	if err != nil {
		return nil, err
	}

	executor, err := NewTradeExecutor(ledger, feeModel, orders, tradeRepo, logger, clk, counters, cfg.TradeAmount)
	if err != nil {
		return nil, err
	}

	logger.Info(context.Background(), "Rotation service initialized", map[string]interface{}{
		"baseCurrency": cfg.BaseCurrency,
		"assets":       len(cfg.TradeAssets),
		"standardFee":  feeModel.StandardFee(),
		"makerFee":     feeModel.EffectiveMakerFee(),
	})

	return &RotationService{
		cfg:       cfg,
		logger:    logger,
		feed:      feed,
		clock:     clk,
		scorer:    scorer,
		engine:    engine,
		executor:  executor,
		ledger:    ledger,
		snapshots: snapshotRepo,
		counters:  counters,
	}, nil
}

// Holdings returns a copy of the current ledger balances.
func (s *RotationService) Holdings() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Snapshot()
}

// Stats returns the cumulative execution totals.
func (s *RotationService) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		TradesExecuted: s.counters.tradesExecuted,
		TotalFeesPaid:  s.counters.totalFeesPaid,
		DailyTrades:    s.counters.dailyTrades,
	}
}

// RunCycle runs one full tick. It returns false when the cycle had to be
// abandoned before any decision could be made (price fetch failure); decision
// and execution errors inside the cycle are logged and absorbed.
func (s *RotationService) RunCycle(ctx context.Context, simulated bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info(ctx, "Starting trading cycle", map[string]interface{}{"simulated": simulated})

	prices, err := s.feed.CurrentPrices(ctx, s.cfg.TradeAssets)
	if err != nil || len(prices) == 0 {
		if err == nil {
			err = ports.ErrDataUnavailable
		}
		s.logger.Error(ctx, err, "Failed to get prices, aborting trading cycle")
		return false
	}

	portfolioValue := s.portfolioValue(ctx, prices)

	perf := s.scoreUniverse(ctx)

	intents := s.engine.Decide(ctx, s.ledger, perf)
	for _, intent := range intents {
		if _, err := s.executor.Execute(ctx, intent, prices, simulated); err != nil {
			s.logger.Warn(ctx, "Failed to execute trade", map[string]interface{}{
				"from":  intent.FromAsset,
				"to":    intent.ToAsset,
				"error": err.Error(),
			})
			continue
		}
		s.logger.Info(ctx, "Successfully executed trade", map[string]interface{}{
			"from": intent.FromAsset,
			"to":   intent.ToAsset,
		})
	}

	snapshot := &domain.PortfolioSnapshot{
		Timestamp:  s.clock.Now(),
		Holdings:   s.ledger.Snapshot(),
		Prices:     prices,
		TotalValue: portfolioValue,
	}
	if _, err := s.snapshots.SaveSnapshot(ctx, snapshot); err != nil {
		s.logger.Error(ctx, err, "Failed to save portfolio snapshot")
	}

	return true
}

// portfolioValue computes and logs the current portfolio value in base
// currency, listing each held asset.
func (s *RotationService) portfolioValue(ctx context.Context, prices map[string]float64) float64 {
	for _, asset := range s.ledger.Held() {
		quantity := s.ledger.Balance(asset)
		if price, ok := prices[asset]; ok {
			s.logger.Info(ctx, "Holding", map[string]interface{}{
				"asset":    asset,
				"quantity": quantity,
				"value":    quantity * price,
			})
		}
	}
	total := s.ledger.TotalValue(prices)
	s.logger.Info(ctx, "Total portfolio value", map[string]interface{}{
		"value":    total,
		"currency": s.cfg.BaseCurrency,
	})
	return total
}

// scoreUniverse computes a performance record per asset. Assets with
// insufficient or broken data are skipped, never fatal.
func (s *RotationService) scoreUniverse(ctx context.Context) map[string]*domain.PerformanceRecord {
	perf := make(map[string]*domain.PerformanceRecord, len(s.cfg.TradeAssets))
	for _, asset := range s.cfg.TradeAssets {
		points, err := s.feed.Candles(ctx, asset, s.cfg.PerformancePeriod, s.cfg.LookbackLimit)
		if err != nil || len(points) == 0 {
			s.logger.Warn(ctx, "No OHLCV data for asset, skipping", map[string]interface{}{"asset": asset})
			continue
		}
		record, err := s.scorer.Score(asset, points)
		if err != nil {
			s.logger.Warn(ctx, "Asset not scorable this cycle, skipping", map[string]interface{}{
				"asset": asset,
				"error": err.Error(),
			})
			continue
		}
		perf[asset] = record
		s.logger.Debug(ctx, "Asset scored", map[string]interface{}{"asset": asset, "score": record.Score})
	}
	return perf
}

// Start runs the trading loop until the context is cancelled or a
// SIGINT/SIGTERM arrives. The sleep between cycles self-corrects for cycle
// duration, never dropping below one second. With once set, a single cycle
// runs and the method returns.
func (s *RotationService) Start(ctx context.Context, simulated, once bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			s.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
			cancel()
		case <-ctx.Done():
		}
	}()

	mode := "live trading"
	if simulated {
		mode = "simulation"
	}
	s.logger.Info(ctx, "Starting rotation bot", map[string]interface{}{
		"mode":     mode,
		"interval": s.cfg.CheckInterval.String(),
		"once":     once,
	})

	if once {
		s.RunCycle(ctx, simulated)
		s.reportFinalValue(context.Background())
		return nil
	}

	for {
		cycleStart := s.clock.Now()
		s.RunCycle(ctx, simulated)

		elapsed := s.clock.Now().Sub(cycleStart)
		sleep := s.cfg.CheckInterval - elapsed
		if sleep < time.Second {
			sleep = time.Second
		}
		s.logger.Info(ctx, "Cycle complete", map[string]interface{}{
			"elapsed":   elapsed.String(),
			"nextCycle": s.clock.Now().Add(sleep).Format(time.RFC3339),
		})

		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Shutting down between cycles")
			s.reportFinalValue(context.Background())
			return nil
		case <-time.After(sleep):
		}
	}
}

// reportFinalValue logs the portfolio value and cumulative stats on exit,
// best effort.
func (s *RotationService) reportFinalValue(ctx context.Context) {
	prices, err := s.feed.CurrentPrices(ctx, s.cfg.TradeAssets)

	s.mu.Lock()
	defer s.mu.Unlock()

	fields := map[string]interface{}{
		"tradesExecuted": s.counters.tradesExecuted,
		"totalFeesPaid":  s.counters.totalFeesPaid,
	}
	if err == nil && len(prices) > 0 {
		fields["finalValue"] = s.ledger.TotalValue(prices)
		fields["currency"] = s.cfg.BaseCurrency
	}
	s.logger.Info(ctx, "Bot execution completed", fields)
}
