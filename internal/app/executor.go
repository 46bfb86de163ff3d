package app

import (
	"context"
	"fmt"
	"math"

	"cryptoRotationBot/internal/domain"
	"cryptoRotationBot/internal/fees"
	"cryptoRotationBot/internal/id"
	"cryptoRotationBot/internal/ports"
)

// TradeExecutor applies one trade intent against the ledger, placing the
// exchange orders first when not simulated, and appends the resulting record
// to the trade log. The ledger is left unmodified when a branch fails,
// except for the documented rotation buy-leg compensation.
type TradeExecutor struct {
	ledger       *domain.Ledger
	fees         *fees.Model
	orders       ports.OrderExecutor
	trades       ports.TradeRepository
	logger       ports.Logger
	clock        ports.Clock
	counters     *tradeCounters
	baseCurrency string
	tradeAmount  float64
}

// NewTradeExecutor creates a trade executor bound to the cycle's ledger.
func NewTradeExecutor(
	ledger *domain.Ledger,
	feeModel *fees.Model,
	orders ports.OrderExecutor,
	trades ports.TradeRepository,
	logger ports.Logger,
	clk ports.Clock,
	counters *tradeCounters,
	tradeAmount float64,
) (*TradeExecutor, error) {
	if ledger == nil || feeModel == nil || orders == nil || trades == nil || logger == nil || clk == nil || counters == nil {
		return nil, fmt.Errorf("missing required dependencies for TradeExecutor")
	}
	if tradeAmount <= 0 {
		return nil, fmt.Errorf("executor trade amount must be positive")
	}
	return &TradeExecutor{
		ledger:       ledger,
		fees:         feeModel,
		orders:       orders,
		trades:       trades,
		logger:       logger,
		clock:        clk,
		counters:     counters,
		baseCurrency: ledger.BaseCurrency(),
		tradeAmount:  tradeAmount,
	}, nil
}

// Execute applies exactly one intent. The returned record is nil on failure.
func (x *TradeExecutor) Execute(ctx context.Context, intent domain.TradeIntent, prices map[string]float64, simulated bool) (*domain.TradeRecord, error) {
	switch intent.Type(x.baseCurrency) {
	case domain.TradeBuy:
		return x.buy(ctx, intent, prices, simulated)
	case domain.TradeSell:
		return x.sell(ctx, intent, prices, simulated)
	default:
		return x.rotate(ctx, intent, prices, simulated)
	}
}

// buy moves up to the configured trade amount of base currency into an asset.
func (x *TradeExecutor) buy(ctx context.Context, intent domain.TradeIntent, prices map[string]float64, simulated bool) (*domain.TradeRecord, error) {
	price, err := priceFor(prices, intent.ToAsset)
	if err != nil {
		return nil, err
	}

	size := math.Min(x.ledger.Balance(x.baseCurrency), x.tradeAmount)
	if size <= 0 {
		return nil, fmt.Errorf("%w: no %s available to buy %s", ports.ErrInsufficientBalance, x.baseCurrency, intent.ToAsset)
	}

	fee := x.fees.BuyFee(size)
	quantity := (size - fee) / price

	x.logger.Info(ctx, "Buying asset", map[string]interface{}{
		"asset":     intent.ToAsset,
		"quantity":  quantity,
		"price":     price,
		"fee":       fee,
		"simulated": simulated,
	})

	if !simulated {
		if err := x.placeOrder(ctx, domain.Buy, intent.ToAsset, quantity); err != nil {
			return nil, err
		}
	}

	if err := x.ledger.Debit(x.baseCurrency, size); err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrInsufficientBalance, err)
	}
	_ = x.ledger.Credit(intent.ToAsset, quantity)

	record := &domain.TradeRecord{
		ID:             id.New(),
		Timestamp:      x.clock.Now(),
		Type:           domain.TradeBuy,
		FromAsset:      x.baseCurrency,
		ToAsset:        intent.ToAsset,
		AmountSold:     size,
		AmountBought:   quantity,
		PriceBought:    price,
		ExpectedReturn: intent.ExpectedReturn,
		Fee:            fee,
		FeeCurrency:    x.baseCurrency,
		Simulated:      simulated,
	}
	x.finish(ctx, record)
	return record, nil
}

// sell liquidates the full held balance of an asset back into base currency.
func (x *TradeExecutor) sell(ctx context.Context, intent domain.TradeIntent, prices map[string]float64, simulated bool) (*domain.TradeRecord, error) {
	price, err := priceFor(prices, intent.FromAsset)
	if err != nil {
		return nil, err
	}

	quantity := x.ledger.Balance(intent.FromAsset)
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: no %s held to sell", ports.ErrInsufficientBalance, intent.FromAsset)
	}

	proceeds := quantity * price
	fee := x.fees.SellFee(proceeds)
	net := proceeds - fee

	x.logger.Info(ctx, "Selling asset", map[string]interface{}{
		"asset":     intent.FromAsset,
		"quantity":  quantity,
		"price":     price,
		"fee":       fee,
		"simulated": simulated,
	})

	if !simulated {
		if err := x.placeOrder(ctx, domain.Sell, intent.FromAsset, quantity); err != nil {
			return nil, err
		}
	}

	x.ledger.Zero(intent.FromAsset)
	_ = x.ledger.Credit(x.baseCurrency, net)

	record := &domain.TradeRecord{
		ID:             id.New(),
		Timestamp:      x.clock.Now(),
		Type:           domain.TradeSell,
		FromAsset:      intent.FromAsset,
		ToAsset:        x.baseCurrency,
		AmountSold:     quantity,
		AmountBought:   net,
		PriceSold:      price,
		ExpectedReturn: intent.ExpectedReturn,
		Fee:            fee,
		FeeCurrency:    x.baseCurrency,
		Simulated:      simulated,
	}
	x.finish(ctx, record)
	return record, nil
}

// rotate sells the full from-asset balance to a notional base amount and buys
// the target with the net proceeds; both legs' fees go into one record.
//
// If the live sell leg fills but the buy leg fails, the sale has already
// happened on the exchange: the ledger is reconciled by crediting the net
// proceeds to base currency (a compensating entry, not a rollback) and the
// rotation is still reported as failed.
func (x *TradeExecutor) rotate(ctx context.Context, intent domain.TradeIntent, prices map[string]float64, simulated bool) (*domain.TradeRecord, error) {
	priceFrom, err := priceFor(prices, intent.FromAsset)
	if err != nil {
		return nil, err
	}
	priceTo, err := priceFor(prices, intent.ToAsset)
	if err != nil {
		return nil, err
	}

	quantity := x.ledger.Balance(intent.FromAsset)
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: no %s held to rotate", ports.ErrInsufficientBalance, intent.FromAsset)
	}

	// Leg 1: sell to base currency.
	baseAmount := quantity * priceFrom
	sellFee := x.fees.SellFee(baseAmount)
	netBase := baseAmount - sellFee

	// Leg 2: buy the target with the net proceeds.
	buyFee := x.fees.BuyFee(netBase)
	buyQuantity := (netBase - buyFee) / priceTo
	totalFee := sellFee + buyFee

	x.logger.Info(ctx, "Rotating asset", map[string]interface{}{
		"from":         intent.FromAsset,
		"to":           intent.ToAsset,
		"quantitySold": quantity,
		"quantityBought": buyQuantity,
		"totalFee":     totalFee,
		"simulated":    simulated,
	})

	if !simulated {
		if err := x.placeOrder(ctx, domain.Sell, intent.FromAsset, quantity); err != nil {
			return nil, fmt.Errorf("sell leg of rotation failed: %w", err)
		}
		if err := x.placeOrder(ctx, domain.Buy, intent.ToAsset, buyQuantity); err != nil {
			// The sell already filled; park the proceeds in base currency so
			// the ledger matches the exchange state.
			x.ledger.Zero(intent.FromAsset)
			_ = x.ledger.Credit(x.baseCurrency, netBase)
			x.counters.totalFeesPaid += sellFee
			x.logger.Error(ctx, err, "Buy leg of rotation failed after sell filled, proceeds parked in base currency", map[string]interface{}{
				"from":     intent.FromAsset,
				"netBase":  netBase,
				"sellFee":  sellFee,
			})
			return nil, fmt.Errorf("buy leg of rotation failed: %w", err)
		}
	}

	x.ledger.Zero(intent.FromAsset)
	_ = x.ledger.Credit(intent.ToAsset, buyQuantity)

	record := &domain.TradeRecord{
		ID:             id.New(),
		Timestamp:      x.clock.Now(),
		Type:           domain.TradeRotation,
		FromAsset:      intent.FromAsset,
		ToAsset:        intent.ToAsset,
		AmountSold:     quantity,
		AmountBought:   buyQuantity,
		PriceSold:      priceFrom,
		PriceBought:    priceTo,
		ExpectedReturn: intent.ExpectedReturn,
		Fee:            totalFee,
		FeeCurrency:    x.baseCurrency,
		Simulated:      simulated,
	}
	x.finish(ctx, record)
	return record, nil
}

// placeOrder issues a live market order, normalizing failures to ErrOrderRejected.
func (x *TradeExecutor) placeOrder(ctx context.Context, side domain.OrderSide, asset string, quantity float64) error {
	var result *ports.OrderResult
	var err error
	if side == domain.Buy {
		result, err = x.orders.MarketBuy(ctx, asset, quantity)
	} else {
		result, err = x.orders.MarketSell(ctx, asset, quantity)
	}
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ports.ErrOrderRejected, side, asset, err)
	}
	if result == nil {
		return fmt.Errorf("%w: %s %s: no order result", ports.ErrOrderRejected, side, asset)
	}
	x.logger.Debug(ctx, "Order accepted", map[string]interface{}{
		"orderID": result.OrderID,
		"side":    side,
		"asset":   asset,
	})
	return nil
}

// finish updates the counters and appends the record to the trade log. A log
// append failure does not undo the executed trade; it is logged and the
// in-memory state remains authoritative for the session.
func (x *TradeExecutor) finish(ctx context.Context, record *domain.TradeRecord) {
	x.counters.tradesExecuted++
	x.counters.dailyTrades++
	x.counters.totalFeesPaid += record.Fee

	if err := x.trades.CreateTrade(ctx, record); err != nil {
		x.logger.Error(ctx, err, "Failed to persist trade record", map[string]interface{}{"tradeID": record.ID})
	}
}

func priceFor(prices map[string]float64, asset string) (float64, error) {
	price, ok := prices[asset]
	if !ok || price <= 0 {
		return 0, fmt.Errorf("%w: no current price for %s", ports.ErrDataUnavailable, asset)
	}
	return price, nil
}
