package app

import (
	"context"
	"time"

	"cryptoRotationBot/internal/domain"
	"cryptoRotationBot/internal/ports"
)

// mockLogger implements ports.Logger for testing.
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// mockClock implements ports.Clock with a settable time.
type mockClock struct {
	now time.Time
}

func (m *mockClock) Now() time.Time { return m.now }

// mockOrders implements ports.OrderExecutor, recording calls and failing on
// demand per side.
type mockOrders struct {
	buyErr    error
	sellErr   error
	buyCalls  []string
	sellCalls []string
}

func (m *mockOrders) MarketBuy(ctx context.Context, asset string, quantity float64) (*ports.OrderResult, error) {
	m.buyCalls = append(m.buyCalls, asset)
	if m.buyErr != nil {
		return nil, m.buyErr
	}
	return &ports.OrderResult{OrderID: int64(len(m.buyCalls)), Side: domain.Buy, ExecutedQty: quantity, Status: "FILLED"}, nil
}

func (m *mockOrders) MarketSell(ctx context.Context, asset string, quantity float64) (*ports.OrderResult, error) {
	m.sellCalls = append(m.sellCalls, asset)
	if m.sellErr != nil {
		return nil, m.sellErr
	}
	return &ports.OrderResult{OrderID: int64(len(m.sellCalls)), Side: domain.Sell, ExecutedQty: quantity, Status: "FILLED"}, nil
}

// mockTradeRepo implements ports.TradeRepository in memory.
type mockTradeRepo struct {
	createErr error
	records   []*domain.TradeRecord
}

func (m *mockTradeRepo) CreateTrade(ctx context.Context, record *domain.TradeRecord) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.records = append(m.records, record)
	return nil
}

func (m *mockTradeRepo) FindRecent(ctx context.Context, limit int) ([]*domain.TradeRecord, error) {
	if limit > len(m.records) {
		limit = len(m.records)
	}
	out := make([]*domain.TradeRecord, 0, limit)
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}

func (m *mockTradeRepo) CountSince(ctx context.Context, since time.Time) (int, error) {
	count := 0
	for _, r := range m.records {
		if !r.Timestamp.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *mockTradeRepo) TotalFees(ctx context.Context) (float64, error) {
	var total float64
	for _, r := range m.records {
		total += r.Fee
	}
	return total, nil
}

// mockSnapshotRepo implements ports.SnapshotRepository in memory.
type mockSnapshotRepo struct {
	saveErr   error
	snapshots []*domain.PortfolioSnapshot
}

func (m *mockSnapshotRepo) SaveSnapshot(ctx context.Context, snapshot *domain.PortfolioSnapshot) (int64, error) {
	if m.saveErr != nil {
		return 0, m.saveErr
	}
	m.snapshots = append(m.snapshots, snapshot)
	return int64(len(m.snapshots)), nil
}

func (m *mockSnapshotRepo) FindRecentSnapshots(ctx context.Context, limit int) ([]*domain.PortfolioSnapshot, error) {
	if limit > len(m.snapshots) {
		limit = len(m.snapshots)
	}
	out := make([]*domain.PortfolioSnapshot, 0, limit)
	for i := len(m.snapshots) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.snapshots[i])
	}
	return out, nil
}

// mockPriceFeed implements ports.PriceFeed from canned data.
type mockPriceFeed struct {
	prices     map[string]float64
	pricesErr  error
	candles    map[string][]*domain.PricePoint
	candlesErr error
}

func (m *mockPriceFeed) CurrentPrices(ctx context.Context, assets []string) (map[string]float64, error) {
	if m.pricesErr != nil {
		return nil, m.pricesErr
	}
	return m.prices, nil
}

func (m *mockPriceFeed) Candles(ctx context.Context, asset, interval string, limit int) ([]*domain.PricePoint, error) {
	if m.candlesErr != nil {
		return nil, m.candlesErr
	}
	return m.candles[asset], nil
}

func (m *mockPriceFeed) Ping(ctx context.Context) error { return nil }
