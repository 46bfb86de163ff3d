package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"cryptoRotationBot/internal/domain"
	"cryptoRotationBot/internal/fees"
	"cryptoRotationBot/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type executorFixture struct {
	ledger   *domain.Ledger
	orders   *mockOrders
	trades   *mockTradeRepo
	counters *tradeCounters
	executor *TradeExecutor
}

func newExecutorFixture(t *testing.T, initialBase float64) *executorFixture {
	t.Helper()
	feeModel, err := fees.New(0.0008, 0.0010, 0)
	require.NoError(t, err)

	ledger, err := domain.NewLedger("USDT", []string{"BTC", "ETH", "ADA"}, initialBase)
	require.NoError(t, err)

	orders := &mockOrders{}
	trades := &mockTradeRepo{}
	counters := &tradeCounters{}
	clk := &mockClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}

	executor, err := NewTradeExecutor(ledger, feeModel, orders, trades, &mockLogger{}, clk, counters, 100)
	require.NoError(t, err)

	return &executorFixture{ledger: ledger, orders: orders, trades: trades, counters: counters, executor: executor}
}

var testPrices = map[string]float64{"BTC": 50000, "ETH": 2000, "ADA": 0.5}

func TestTradeExecutor_Buy(t *testing.T) {
	f := newExecutorFixture(t, 100)

	record, err := f.executor.Execute(context.Background(),
		domain.TradeIntent{FromAsset: "USDT", ToAsset: "BTC", ExpectedReturn: 0.029}, testPrices, true)
	require.NoError(t, err)

	// 100 spent, 0.1 fee, 99.9 converted at 50000.
	assert.InDelta(t, 0.0, f.ledger.Balance("USDT"), 1e-12)
	assert.InDelta(t, 99.9/50000, f.ledger.Balance("BTC"), 1e-12)

	assert.Equal(t, domain.TradeBuy, record.Type)
	assert.Equal(t, "USDT", record.FromAsset)
	assert.Equal(t, "BTC", record.ToAsset)
	assert.InDelta(t, 100.0, record.AmountSold, 1e-12)
	assert.InDelta(t, 99.9/50000, record.AmountBought, 1e-12)
	assert.InDelta(t, 50000.0, record.PriceBought, 1e-12)
	assert.InDelta(t, 0.1, record.Fee, 1e-12)
	assert.Equal(t, "USDT", record.FeeCurrency)
	assert.True(t, record.Simulated)
	assert.NotEmpty(t, record.ID)

	// Simulated runs place no exchange orders but still log the trade.
	assert.Empty(t, f.orders.buyCalls)
	require.Len(t, f.trades.records, 1)
	assert.Equal(t, 1, f.counters.tradesExecuted)
	assert.Equal(t, 1, f.counters.dailyTrades)
	assert.InDelta(t, 0.1, f.counters.totalFeesPaid, 1e-12)
}

func TestTradeExecutor_BuyCapsAtBalance(t *testing.T) {
	// Balance below the configured trade amount: spend what is there.
	f := newExecutorFixture(t, 40)

	record, err := f.executor.Execute(context.Background(),
		domain.TradeIntent{FromAsset: "USDT", ToAsset: "ETH"}, testPrices, true)
	require.NoError(t, err)

	assert.InDelta(t, 40.0, record.AmountSold, 1e-12)
	assert.InDelta(t, 0.04, record.Fee, 1e-12)
	assert.InDelta(t, (40-0.04)/2000, f.ledger.Balance("ETH"), 1e-12)
	assert.Zero(t, f.ledger.Balance("USDT"))
}

func TestTradeExecutor_BuyWithNoBase(t *testing.T) {
	f := newExecutorFixture(t, 0)

	_, err := f.executor.Execute(context.Background(),
		domain.TradeIntent{FromAsset: "USDT", ToAsset: "BTC"}, testPrices, true)
	assert.ErrorIs(t, err, ports.ErrInsufficientBalance)
	assert.Empty(t, f.trades.records)
}

func TestTradeExecutor_Sell(t *testing.T) {
	f := newExecutorFixture(t, 0)
	require.NoError(t, f.ledger.Credit("ADA", 1000))

	record, err := f.executor.Execute(context.Background(),
		domain.TradeIntent{FromAsset: "ADA", ToAsset: "USDT", ExpectedReturn: 0.019}, testPrices, true)
	require.NoError(t, err)

	// Full liquidation: 1000 * 0.5 = 500 proceeds, 0.5 fee.
	assert.Zero(t, f.ledger.Balance("ADA"))
	assert.InDelta(t, 499.5, f.ledger.Balance("USDT"), 1e-12)

	assert.Equal(t, domain.TradeSell, record.Type)
	assert.InDelta(t, 1000.0, record.AmountSold, 1e-12)
	assert.InDelta(t, 499.5, record.AmountBought, 1e-12)
	assert.InDelta(t, 0.5, record.PriceSold, 1e-12)
	assert.InDelta(t, 0.5, record.Fee, 1e-12)
}

func TestTradeExecutor_SellNothingHeld(t *testing.T) {
	f := newExecutorFixture(t, 100)

	_, err := f.executor.Execute(context.Background(),
		domain.TradeIntent{FromAsset: "ADA", ToAsset: "USDT"}, testPrices, true)
	assert.ErrorIs(t, err, ports.ErrInsufficientBalance)
}

func TestTradeExecutor_Rotation(t *testing.T) {
	f := newExecutorFixture(t, 0)
	require.NoError(t, f.ledger.Credit("ADA", 1000))

	record, err := f.executor.Execute(context.Background(),
		domain.TradeIntent{FromAsset: "ADA", ToAsset: "BTC", ExpectedReturn: 0.148}, testPrices, true)
	require.NoError(t, err)

	// Sell: 500 base, fee 0.5, net 499.5. Buy: fee 0.4995, 499.0005 at 50000.
	wantQty := (499.5 - 0.4995) / 50000
	assert.Zero(t, f.ledger.Balance("ADA"))
	assert.InDelta(t, wantQty, f.ledger.Balance("BTC"), 1e-12)
	assert.Zero(t, f.ledger.Balance("USDT"))

	// One record for the whole rotation, both fee legs combined.
	assert.Equal(t, domain.TradeRotation, record.Type)
	assert.InDelta(t, 1000.0, record.AmountSold, 1e-12)
	assert.InDelta(t, wantQty, record.AmountBought, 1e-12)
	assert.InDelta(t, 0.5, record.PriceSold, 1e-12)
	assert.InDelta(t, 50000.0, record.PriceBought, 1e-12)
	assert.InDelta(t, 0.5+0.4995, record.Fee, 1e-12)
	require.Len(t, f.trades.records, 1)
}

func TestTradeExecutor_ValueConservation(t *testing.T) {
	f := newExecutorFixture(t, 0)
	require.NoError(t, f.ledger.Credit("ADA", 1000))
	before := f.ledger.TotalValue(testPrices)

	record, err := f.executor.Execute(context.Background(),
		domain.TradeIntent{FromAsset: "ADA", ToAsset: "BTC"}, testPrices, true)
	require.NoError(t, err)

	// At the cycle's prices the portfolio loses exactly the fees paid.
	after := f.ledger.TotalValue(testPrices)
	assert.InDelta(t, before-record.Fee, after, 1e-9)
}

func TestTradeExecutor_LiveOrderRejectionLeavesLedger(t *testing.T) {
	f := newExecutorFixture(t, 100)
	f.orders.buyErr = errors.New("LOT_SIZE filter failure")

	_, err := f.executor.Execute(context.Background(),
		domain.TradeIntent{FromAsset: "USDT", ToAsset: "BTC"}, testPrices, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrOrderRejected)

	// The order never filled: balances and counters are untouched.
	assert.InDelta(t, 100.0, f.ledger.Balance("USDT"), 1e-12)
	assert.Zero(t, f.ledger.Balance("BTC"))
	assert.Empty(t, f.trades.records)
	assert.Equal(t, 0, f.counters.tradesExecuted)
}

func TestTradeExecutor_LiveOrdersPlaced(t *testing.T) {
	f := newExecutorFixture(t, 100)

	_, err := f.executor.Execute(context.Background(),
		domain.TradeIntent{FromAsset: "USDT", ToAsset: "BTC"}, testPrices, false)
	require.NoError(t, err)

	assert.Equal(t, []string{"BTC"}, f.orders.buyCalls)
	assert.InDelta(t, 99.9/50000, f.ledger.Balance("BTC"), 1e-12)
}

func TestTradeExecutor_RotationBuyLegFailure(t *testing.T) {
	f := newExecutorFixture(t, 0)
	require.NoError(t, f.ledger.Credit("ADA", 1000))
	f.orders.buyErr = errors.New("MIN_NOTIONAL filter failure")

	_, err := f.executor.Execute(context.Background(),
		domain.TradeIntent{FromAsset: "ADA", ToAsset: "BTC"}, testPrices, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrOrderRejected)

	// The sell leg filled on the exchange: the ledger parks the net proceeds
	// in base currency instead of pretending ADA is still held.
	assert.Zero(t, f.ledger.Balance("ADA"))
	assert.Zero(t, f.ledger.Balance("BTC"))
	assert.InDelta(t, 499.5, f.ledger.Balance("USDT"), 1e-12)

	// The sell fee was genuinely paid; no trade record for the failed rotation.
	assert.InDelta(t, 0.5, f.counters.totalFeesPaid, 1e-12)
	assert.Equal(t, 0, f.counters.tradesExecuted)
	assert.Empty(t, f.trades.records)
}

func TestTradeExecutor_RotationSellLegFailure(t *testing.T) {
	f := newExecutorFixture(t, 0)
	require.NoError(t, f.ledger.Credit("ADA", 1000))
	f.orders.sellErr = errors.New("exchange unavailable")

	_, err := f.executor.Execute(context.Background(),
		domain.TradeIntent{FromAsset: "ADA", ToAsset: "BTC"}, testPrices, false)
	require.Error(t, err)

	// Nothing filled: the rotation is a clean no-op.
	assert.InDelta(t, 1000.0, f.ledger.Balance("ADA"), 1e-12)
	assert.Zero(t, f.ledger.Balance("USDT"))
	assert.Zero(t, f.counters.totalFeesPaid)
}

func TestTradeExecutor_MissingPrice(t *testing.T) {
	f := newExecutorFixture(t, 100)

	_, err := f.executor.Execute(context.Background(),
		domain.TradeIntent{FromAsset: "USDT", ToAsset: "BTC"}, map[string]float64{"ETH": 2000}, true)
	assert.ErrorIs(t, err, ports.ErrDataUnavailable)
}

func TestTradeExecutor_PersistFailureKeepsTrade(t *testing.T) {
	f := newExecutorFixture(t, 100)
	f.trades.createErr = errors.New("disk full")

	record, err := f.executor.Execute(context.Background(),
		domain.TradeIntent{FromAsset: "USDT", ToAsset: "BTC"}, testPrices, true)
	require.NoError(t, err)
	require.NotNil(t, record)

	// The in-memory state stays authoritative when the log append fails.
	assert.InDelta(t, 99.9/50000, f.ledger.Balance("BTC"), 1e-12)
	assert.Equal(t, 1, f.counters.tradesExecuted)
}
