package ports

import (
	"context"
	"time"

	"cryptoRotationBot/internal/domain"
)

// TradeRepository defines the interface for the append-only trade log.
type TradeRepository interface {
	// CreateTrade appends a trade record. Records are immutable once written.
	CreateTrade(ctx context.Context, record *domain.TradeRecord) error
	// FindRecent retrieves the most recent trades, newest first, up to a limit.
	FindRecent(ctx context.Context, limit int) ([]*domain.TradeRecord, error)
	// CountSince counts trades executed at or after the given time.
	CountSince(ctx context.Context, since time.Time) (int, error)
	// TotalFees sums the fees paid across all recorded trades.
	TotalFees(ctx context.Context) (float64, error)
}

// SnapshotRepository defines the interface for persisted portfolio snapshots.
type SnapshotRepository interface {
	// SaveSnapshot appends a portfolio snapshot and returns its assigned ID.
	SaveSnapshot(ctx context.Context, snapshot *domain.PortfolioSnapshot) (int64, error)
	// FindRecentSnapshots retrieves the most recent snapshots, newest first.
	FindRecentSnapshots(ctx context.Context, limit int) ([]*domain.PortfolioSnapshot, error)
}
