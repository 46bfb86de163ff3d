package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	// Exchange API
	APIKey    string `json:"-" yaml:"-"`
	SecretKey string `json:"-" yaml:"-"`
	IsTestnet bool   `json:"is_testnet" yaml:"is_testnet"`

	// Trade Universe
	BaseCurrency string   `json:"base_currency" yaml:"base_currency"`
	TradeAssets  []string `json:"trade_assets" yaml:"trade_assets"`

	// Trading Parameters
	TradeAmount       float64 `json:"trade_amount" yaml:"trade_amount"`             // Base-currency size of one accumulation
	PerformancePeriod string  `json:"performance_period" yaml:"performance_period"` // OHLCV interval for scoring (e.g., "1d")
	LookbackLimit     int     `json:"lookback_limit" yaml:"lookback_limit"`         // Samples per scoring window
	CheckInterval     time.Duration `json:"-" yaml:"-"`                             // Wall-clock time between cycles

	// Fee Structure (defaults; refreshed from the exchange when possible)
	MakerFee    float64 `json:"maker_fee" yaml:"maker_fee"`
	TakerFee    float64 `json:"taker_fee" yaml:"taker_fee"`
	FeeDiscount float64 `json:"fee_discount" yaml:"fee_discount"`

	// Trading Thresholds
	MinProfitThreshold float64 `json:"min_profit_threshold" yaml:"min_profit_threshold"`

	// Safety Settings
	MaxTradesPerDay int  `json:"max_trades_per_day" yaml:"max_trades_per_day"`
	EvaluateOverlap bool `json:"evaluate_overlap" yaml:"evaluate_overlap"` // Evaluate rotation for assets already marked for liquidation

	// Database
	DBPath string `json:"db_path" yaml:"db_path"`

	// Logging
	LogLevel  string `json:"log_level" yaml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format"` // "json" or "console"
}

// defaults returns the built-in configuration, matching the documented
// defaults of the bot.
func defaults() *Config {
	return &Config{
		IsTestnet:          true, // Default to testnet for safety
		BaseCurrency:       "USDT",
		TradeAssets:        []string{"BTC", "ETH", "SOL", "ADA", "DOT"},
		TradeAmount:        100,
		PerformancePeriod:  "1d",
		LookbackLimit:      30,
		CheckInterval:      time.Hour,
		MakerFee:           0.0008,
		TakerFee:           0.0010,
		FeeDiscount:        0,
		MinProfitThreshold: 0.005,
		MaxTradesPerDay:    5,
		EvaluateOverlap:    true,
		DBPath:             "./data/rotation_bot.db",
		LogLevel:           "info",
		LogFormat:          "console",
	}
}

// LoadConfig loads configuration in three layers: built-in defaults, an
// optional YAML/JSON file named by CONFIG_FILE, then environment variables
// (.env supported). Environment variables win. A malformed config file is
// ignored with a note on stderr; missing keys keep their defaults.
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := overlayFile(cfg, path); err != nil {
			fmt.Fprintf(os.Stderr, "config: ignoring %s: %v\n", path, err)
		}
	}

	var errs []string

	// Exchange API
	cfg.APIKey = getEnv("BINANCE_API_KEY", cfg.APIKey)
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", cfg.SecretKey)
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", cfg.IsTestnet)

	// Trade universe
	cfg.BaseCurrency = strings.ToUpper(getEnv("BASE_CURRENCY", cfg.BaseCurrency))
	if cfg.BaseCurrency == "" {
		errs = append(errs, "BASE_CURRENCY must be set")
	}
	if raw := os.Getenv("TRADE_ASSETS"); raw != "" {
		cfg.TradeAssets = splitAssets(raw)
	}
	if len(cfg.TradeAssets) == 0 {
		errs = append(errs, "TRADE_ASSETS must name at least one asset")
	}
	for _, asset := range cfg.TradeAssets {
		if asset == cfg.BaseCurrency {
			errs = append(errs, fmt.Sprintf("trade asset %s duplicates the base currency", asset))
		}
	}

	// Trading parameters
	var err error
	cfg.TradeAmount, err = getEnvAsFloatRequired("TRADE_AMOUNT", cfg.TradeAmount)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TRADE_AMOUNT: %v", err))
	} else if cfg.TradeAmount <= 0 {
		errs = append(errs, "TRADE_AMOUNT must be positive")
	}

	cfg.PerformancePeriod = getEnv("PERFORMANCE_PERIOD", cfg.PerformancePeriod)
	if cfg.PerformancePeriod == "" {
		errs = append(errs, "PERFORMANCE_PERIOD must be set")
	}

	cfg.LookbackLimit = getEnvAsInt("LOOKBACK_LIMIT", cfg.LookbackLimit)
	if cfg.LookbackLimit < 15 {
		errs = append(errs, "LOOKBACK_LIMIT must be at least 15 (a 14-period RSI needs 15 samples)")
	}

	intervalSeconds := getEnvAsInt("CHECK_INTERVAL_SECONDS", int(cfg.CheckInterval/time.Second))
	if intervalSeconds <= 0 {
		errs = append(errs, "CHECK_INTERVAL_SECONDS must be positive")
	}
	cfg.CheckInterval = time.Duration(intervalSeconds) * time.Second

	// Fees
	cfg.MakerFee, err = getEnvAsFloatRequired("MAKER_FEE", cfg.MakerFee)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAKER_FEE: %v", err))
	} else if cfg.MakerFee < 0 || cfg.MakerFee >= 1 {
		errs = append(errs, "MAKER_FEE must be in [0, 1)")
	}

	cfg.TakerFee, err = getEnvAsFloatRequired("TAKER_FEE", cfg.TakerFee)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TAKER_FEE: %v", err))
	} else if cfg.TakerFee < 0 || cfg.TakerFee >= 1 {
		errs = append(errs, "TAKER_FEE must be in [0, 1)")
	}

	cfg.FeeDiscount, err = getEnvAsFloatRequired("FEE_DISCOUNT", cfg.FeeDiscount)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid FEE_DISCOUNT: %v", err))
	} else if cfg.FeeDiscount < 0 || cfg.FeeDiscount > 1 {
		errs = append(errs, "FEE_DISCOUNT must be between 0.0 and 1.0")
	}

	// Thresholds and safety
	cfg.MinProfitThreshold, err = getEnvAsFloatRequired("MIN_PROFIT_THRESHOLD", cfg.MinProfitThreshold)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MIN_PROFIT_THRESHOLD: %v", err))
	} else if cfg.MinProfitThreshold < 0 {
		errs = append(errs, "MIN_PROFIT_THRESHOLD cannot be negative")
	}

	cfg.MaxTradesPerDay = getEnvAsInt("MAX_TRADES_PER_DAY", cfg.MaxTradesPerDay)
	if cfg.MaxTradesPerDay < 0 {
		errs = append(errs, "MAX_TRADES_PER_DAY cannot be negative")
	}

	cfg.EvaluateOverlap = getEnvAsBool("EVALUATE_OVERLAP", cfg.EvaluateOverlap)

	// Database
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Logging
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// overlayFile unmarshals a YAML or JSON config file over the defaults.
func overlayFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): %w", jsonErr)
		}
	}
	return nil
}

func splitAssets(raw string) []string {
	parts := strings.Split(raw, ",")
	assets := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			assets = append(assets, p)
		}
	}
	return assets
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
