package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cryptoRotationBot/internal/domain"
	"cryptoRotationBot/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements the ports.TradeRepository and ports.SnapshotRepository
// interfaces using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/rotation_bot.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Open database connection
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000") // WAL mode for better concurrency
	if err != nil {
		err = fmt.Errorf("%w: failed to open database at '%s': %v", ports.ErrDBConnection, dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("%w: failed to ping database at '%s': %v", ports.ErrDBConnection, dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// SQLite handles concurrency internally, the Go driver benefits from a
	// single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := &Repository{db: db, logger: cfg.Logger}

	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS trade_history (
		id TEXT PRIMARY KEY,
		executed_at TIMESTAMP NOT NULL,
		trade_type TEXT NOT NULL,
		from_asset TEXT NOT NULL,
		to_asset TEXT NOT NULL,
		amount_sold REAL NOT NULL,
		amount_bought REAL NOT NULL,
		price_sold REAL NOT NULL,
		price_bought REAL NOT NULL,
		expected_return REAL NOT NULL,
		fee REAL NOT NULL,
		fee_currency TEXT NOT NULL,
		simulated INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS portfolio_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		taken_at TIMESTAMP NOT NULL,
		holdings TEXT NOT NULL,   -- JSON object: asset -> quantity
		prices TEXT NOT NULL,     -- JSON object: asset -> price
		total_value REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_trade_history_executed_at ON trade_history (executed_at);
	CREATE INDEX IF NOT EXISTS idx_portfolio_snapshots_taken_at ON portfolio_snapshots (taken_at);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// --- TradeRepository Implementation ---

// CreateTrade appends one immutable trade record.
func (r *Repository) CreateTrade(ctx context.Context, record *domain.TradeRecord) error {
	const query = `
	INSERT INTO trade_history (id, executed_at, trade_type, from_asset, to_asset,
	                           amount_sold, amount_bought, price_sold, price_bought,
	                           expected_return, fee, fee_currency, simulated)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		record.ID, record.Timestamp, record.Type, record.FromAsset, record.ToAsset,
		record.AmountSold, record.AmountBought, record.PriceSold, record.PriceBought,
		record.ExpectedReturn, record.Fee, record.FeeCurrency, record.Simulated)
	if err != nil {
		return fmt.Errorf("%w: failed to insert trade record %s: %v", ports.ErrQueryFailed, record.ID, err)
	}
	r.logger.Debug(ctx, "Trade record created", map[string]interface{}{
		"tradeID": record.ID,
		"type":    record.Type,
		"from":    record.FromAsset,
		"to":      record.ToAsset,
	})
	return nil
}

// FindRecent retrieves the most recent trades, newest first, up to a limit.
func (r *Repository) FindRecent(ctx context.Context, limit int) ([]*domain.TradeRecord, error) {
	const query = `
	SELECT id, executed_at, trade_type, from_asset, to_asset,
	       amount_sold, amount_bought, price_sold, price_bought,
	       expected_return, fee, fee_currency, simulated
	FROM trade_history
	ORDER BY executed_at DESC, id DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query recent trades: %v", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	trades := make([]*domain.TradeRecord, 0)
	for rows.Next() {
		record, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade record during FindRecent: %w", err)
		}
		trades = append(trades, record)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade rows: %w", err)
	}
	return trades, nil
}

// CountSince counts trades executed at or after the given time.
func (r *Repository) CountSince(ctx context.Context, since time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM trade_history WHERE executed_at >= ?`
	var count int
	if err := r.db.QueryRowContext(ctx, query, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: failed to count trades since %s: %v", ports.ErrQueryFailed, since, err)
	}
	return count, nil
}

// TotalFees sums the fees paid across all recorded trades.
func (r *Repository) TotalFees(ctx context.Context) (float64, error) {
	const query = `SELECT COALESCE(SUM(fee), 0) FROM trade_history`
	var total float64
	if err := r.db.QueryRowContext(ctx, query).Scan(&total); err != nil {
		return 0, fmt.Errorf("%w: failed to sum trade fees: %v", ports.ErrQueryFailed, err)
	}
	return total, nil
}

// --- SnapshotRepository Implementation ---

// SaveSnapshot appends a portfolio snapshot and returns its assigned ID.
func (r *Repository) SaveSnapshot(ctx context.Context, snapshot *domain.PortfolioSnapshot) (int64, error) {
	holdings, err := json.Marshal(snapshot.Holdings)
	if err != nil {
		return 0, fmt.Errorf("failed to encode snapshot holdings: %w", err)
	}
	prices, err := json.Marshal(snapshot.Prices)
	if err != nil {
		return 0, fmt.Errorf("failed to encode snapshot prices: %w", err)
	}

	const query = `
	INSERT INTO portfolio_snapshots (taken_at, holdings, prices, total_value)
	VALUES (?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query, snapshot.Timestamp, string(holdings), string(prices), snapshot.TotalValue)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to insert portfolio snapshot: %v", ports.ErrQueryFailed, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for portfolio snapshot: %w", err)
	}
	snapshot.ID = id
	r.logger.Debug(ctx, "Portfolio snapshot saved", map[string]interface{}{"snapshotID": id, "totalValue": snapshot.TotalValue})
	return id, nil
}

// FindRecentSnapshots retrieves the most recent snapshots, newest first.
func (r *Repository) FindRecentSnapshots(ctx context.Context, limit int) ([]*domain.PortfolioSnapshot, error) {
	const query = `
	SELECT id, taken_at, holdings, prices, total_value
	FROM portfolio_snapshots
	ORDER BY taken_at DESC, id DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query recent snapshots: %v", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	snapshots := make([]*domain.PortfolioSnapshot, 0)
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot during FindRecentSnapshots: %w", err)
		}
		snapshots = append(snapshots, snap)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot rows: %w", err)
	}
	return snapshots, nil
}

// --- Helper Scan Functions ---

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTrade(s scanner) (*domain.TradeRecord, error) {
	record := &domain.TradeRecord{}
	var tradeType string
	err := s.Scan(
		&record.ID, &record.Timestamp, &tradeType, &record.FromAsset, &record.ToAsset,
		&record.AmountSold, &record.AmountBought, &record.PriceSold, &record.PriceBought,
		&record.ExpectedReturn, &record.Fee, &record.FeeCurrency, &record.Simulated)
	if err != nil {
		return nil, err
	}
	record.Type = domain.TradeType(tradeType)
	return record, nil
}

func scanSnapshot(s scanner) (*domain.PortfolioSnapshot, error) {
	snap := &domain.PortfolioSnapshot{}
	var holdings, prices string
	err := s.Scan(&snap.ID, &snap.Timestamp, &holdings, &prices, &snap.TotalValue)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(holdings), &snap.Holdings); err != nil {
		return nil, fmt.Errorf("decoding snapshot holdings: %w", err)
	}
	if err := json.Unmarshal([]byte(prices), &snap.Prices); err != nil {
		return nil, fmt.Errorf("decoding snapshot prices: %w", err)
	}
	return snap, nil
}
