package main

import (
	"context"
	"fmt"
	"log" // Standard log only for fatal errors before the logger is set up
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"cryptoRotationBot/config"
	"cryptoRotationBot/internal/adapters/binanceclient"
	"cryptoRotationBot/internal/adapters/clock"
	"cryptoRotationBot/internal/adapters/logger"
	"cryptoRotationBot/internal/adapters/sqlite"
	"cryptoRotationBot/internal/analytics"
	"cryptoRotationBot/internal/app"
	"cryptoRotationBot/internal/ports"
	"cryptoRotationBot/internal/utils"
)

func main() {
	root := &cobra.Command{
		Use:   "rotationbot",
		Short: "Periodic portfolio-rotation trading bot",
		Long: `rotationbot scores a configured universe of crypto assets on a fixed
interval and rotates capital from underperforming holdings into the
strongest performers, accounting for trading fees on every move.`,
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd(), newReportCmd(), newCandlesCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	var (
		simulate bool
		once     bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the trading loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context(), simulate, once)
		},
	}
	cmd.Flags().BoolVar(&simulate, "simulate", true, "track trades in the ledger without placing exchange orders")
	cmd.Flags().BoolVar(&once, "once", false, "run a single trading cycle and exit")
	return cmd
}

func newReportCmd() *cobra.Command {
	var (
		limit   int
		csvPath string
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize recorded trades",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd.Context(), limit, csvPath)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum number of recent trades to load")
	cmd.Flags().StringVar(&csvPath, "csv", "", "also write the trades to a CSV file at this path")
	return cmd
}

func newCandlesCmd() *cobra.Command {
	var (
		asset    string
		interval string
		limit    int
		out      string
	)
	cmd := &cobra.Command{
		Use:   "candles",
		Short: "Fetch OHLCV history for one asset and write it to CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCandles(cmd.Context(), asset, interval, limit, out)
		},
	}
	cmd.Flags().StringVar(&asset, "asset", "BTC", "asset symbol against the configured base currency")
	cmd.Flags().StringVar(&interval, "interval", "", "candle interval, defaults to the configured performance period")
	cmd.Flags().IntVar(&limit, "limit", 0, "number of candles, defaults to the configured lookback limit")
	cmd.Flags().StringVar(&out, "out", "", "output CSV path, defaults to data/<asset>_<interval>.csv")
	return cmd
}

func runCandles(ctx context.Context, asset, interval string, limit int, out string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	if interval == "" {
		interval = cfg.PerformancePeriod
	}
	if limit <= 0 {
		limit = cfg.LookbackLimit
	}
	if out == "" {
		out = fmt.Sprintf("data/%s_%s.csv", asset, interval)
	}

	appLogger := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	exchange, err := binanceclient.New(binanceclient.Config{
		APIKey:       cfg.APIKey,
		SecretKey:    cfg.SecretKey,
		BaseCurrency: cfg.BaseCurrency,
		UseTestnet:   cfg.IsTestnet,
		Logger:       appLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize Binance client: %w", err)
	}

	points, err := exchange.Candles(ctx, asset, interval, limit)
	if err != nil {
		return fmt.Errorf("failed to fetch candles: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := utils.WriteCandlesToCSV(points, out); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	fmt.Printf("Wrote %d candles for %s%s to %s\n", len(points), asset, cfg.BaseCurrency, out)
	return nil
}

func runBot(ctx context.Context, simulate, once bool) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	appLogger := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	appLogger.Info(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel, "format": cfg.LogFormat})

	if !simulate && (cfg.APIKey == "" || cfg.SecretKey == "") {
		return fmt.Errorf("%w: live trading requires BINANCE_API_KEY and BINANCE_SECRET_KEY", ports.ErrConfigurationError)
	}

	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
	if err != nil {
		return fmt.Errorf("failed to initialize database repository: %w", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(ctx, err, "Error closing database repository")
		}
	}()

	exchange, err := binanceclient.New(binanceclient.Config{
		APIKey:       cfg.APIKey,
		SecretKey:    cfg.SecretKey,
		BaseCurrency: cfg.BaseCurrency,
		UseTestnet:   cfg.IsTestnet,
		Logger:       appLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize Binance client: %w", err)
	}

	if err := exchange.Ping(ctx); err != nil {
		appLogger.Warn(ctx, "Exchange ping failed, continuing with configured fee rates", map[string]interface{}{"error": err.Error()})
	} else if !simulate {
		refreshFees(ctx, cfg, exchange, appLogger)
	}

	service, err := app.NewRotationService(cfg, appLogger, exchange, exchange, repo, repo, clock.System{})
	if err != nil {
		return fmt.Errorf("failed to initialize rotation service: %w", err)
	}

	return service.Start(ctx, simulate, once)
}

// refreshFees replaces the configured default fee rates with the account's
// actual schedule when the exchange reports one, best effort.
func refreshFees(ctx context.Context, cfg *config.Config, fees ports.FeeProvider, appLogger ports.Logger) {
	if len(cfg.TradeAssets) == 0 {
		return
	}
	maker, taker, err := fees.TradingFees(ctx, cfg.TradeAssets[0])
	if err != nil {
		appLogger.Warn(ctx, "Could not fetch account fee schedule, using configured rates", map[string]interface{}{"error": err.Error()})
		return
	}
	cfg.MakerFee = maker
	cfg.TakerFee = taker
	appLogger.Info(ctx, "Fee schedule refreshed from exchange", map[string]interface{}{"makerFee": maker, "takerFee": taker})
}

func runReport(ctx context.Context, limit int, csvPath string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	appLogger := logger.New(logger.Config{Level: "warn", Format: cfg.LogFormat})

	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
	if err != nil {
		return fmt.Errorf("failed to open database repository: %w", err)
	}
	defer repo.Close()

	trades, err := repo.FindRecent(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to load trades: %w", err)
	}

	summary := analytics.Summarize(trades)
	fmt.Printf("Trades:          %d (buy %d / sell %d / rotation %d)\n",
		summary.TotalTrades, summary.Buys, summary.Sells, summary.Rotations)
	fmt.Printf("Simulated:       %d\n", summary.SimulatedTrades)
	fmt.Printf("Total fees paid: %.6f %s\n", summary.TotalFeesPaid, cfg.BaseCurrency)
	fmt.Printf("Expected return: %+.4f\n", summary.ExpectedReturn)
	if summary.TotalTrades > 0 {
		fmt.Printf("First trade:     %s\n", summary.FirstTrade.Format("2006-01-02 15:04:05"))
		fmt.Printf("Last trade:      %s\n", summary.LastTrade.Format("2006-01-02 15:04:05"))
	}
	for _, day := range summary.DailyFeeSeries() {
		fmt.Printf("  %s  fees %.6f\n", day.Day.Format("2006-01-02"), day.Fees)
	}

	if csvPath != "" {
		if err := utils.WriteTradesToCSV(trades, csvPath); err != nil {
			return fmt.Errorf("failed to write CSV report: %w", err)
		}
		fmt.Printf("Wrote %d trades to %s\n", len(trades), csvPath)
	}
	return nil
}
