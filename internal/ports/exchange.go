package ports

import (
	"context"
	"time"

	"cryptoRotationBot/internal/domain"
)

// OrderResult represents the essential details returned after placing an order.
type OrderResult struct {
	OrderID     int64            // Exchange's order ID
	Symbol      string           // Trading pair the order was placed on
	Side        domain.OrderSide // BUY or SELL
	AvgPrice    float64          // Average filled price (0 if not reported)
	ExecutedQty float64          // Base quantity filled
	QuoteQty    float64          // Quote quantity exchanged
	Status      string           // Exchange order status (e.g., FILLED)
	Timestamp   time.Time        // Time the order response was generated
}

// PriceFeed supplies current prices and OHLCV history for the trade universe.
type PriceFeed interface {
	// CurrentPrices retrieves the last price for each asset against the base
	// currency. Assets whose price could not be fetched are absent from the
	// result; an empty result is a fetch failure for the whole cycle.
	CurrentPrices(ctx context.Context, assets []string) (map[string]float64, error)

	// Candles retrieves up to limit OHLCV samples for one asset, oldest first.
	Candles(ctx context.Context, asset, interval string, limit int) ([]*domain.PricePoint, error)

	// Ping checks connectivity to the exchange API.
	Ping(ctx context.Context) error
}

// OrderExecutor places market orders against the base currency pair.
// A nil result without error must never be returned; a rejected or failed
// order is reported as an error wrapping ErrOrderRejected.
type OrderExecutor interface {
	MarketBuy(ctx context.Context, asset string, quantity float64) (*OrderResult, error)
	MarketSell(ctx context.Context, asset string, quantity float64) (*OrderResult, error)
}

// FeeProvider exposes the exchange's trading fee schedule, used to refresh
// the configured default rates at startup when available.
type FeeProvider interface {
	// TradingFees returns the maker and taker commission rates for the given
	// asset's base-currency pair, as decimal fractions.
	TradingFees(ctx context.Context, asset string) (maker, taker float64, err error)
}
