package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cryptoRotationBot/internal/domain"
	"cryptoRotationBot/internal/ports"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
)

const (
	// Base URLs
	baseURLProduction = "https://api.binance.com"
	baseURLTestnet    = "https://testnet.binance.vision"
)

// Client implements the ports.PriceFeed, ports.OrderExecutor and
// ports.FeeProvider interfaces using the go-binance spot client. Symbols are
// derived by concatenating the asset with the configured base currency
// (e.g. BTC + USDT -> BTCUSDT).
type Client struct {
	spotClient   *binance.Client
	logger       ports.Logger
	baseCurrency string
}

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	APIKey       string
	SecretKey    string
	BaseCurrency string
	UseTestnet   bool
	Logger       ports.Logger
}

// New creates a new Binance spot client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}
	if cfg.BaseCurrency == "" {
		return nil, fmt.Errorf("%w: base currency is required for Binance client", ports.ErrConfigurationError)
	}
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		cfg.Logger.Warn(context.Background(), "APIKey or SecretKey is empty. Client will only work for public endpoints.")
	}

	client := binance.NewClient(cfg.APIKey, cfg.SecretKey)

	// Set BaseURL directly instead of using the global binance.UseTestnet
	if cfg.UseTestnet {
		client.BaseURL = baseURLTestnet
		cfg.Logger.Info(context.Background(), "Binance client configured for Testnet", map[string]interface{}{"baseURL": client.BaseURL})
	} else {
		client.BaseURL = baseURLProduction
		cfg.Logger.Info(context.Background(), "Binance client configured for Production", map[string]interface{}{"baseURL": client.BaseURL})
	}

	return &Client{
		spotClient:   client,
		logger:       cfg.Logger,
		baseCurrency: cfg.BaseCurrency,
	}, nil
}

func (c *Client) symbol(asset string) string {
	return asset + c.baseCurrency
}

// handleError translates common Binance API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message

		// Map specific Binance error codes to custom errors
		var mappedErr error
		switch apiErr.Code {
		case -1003: // Too many requests
			mappedErr = ports.ErrRateLimited
		case -1021: // Timestamp for this request is outside of the recvWindow
			mappedErr = ports.ErrTimeout
		case -1022: // Signature for this request is not valid
			mappedErr = ports.ErrAuthenticationFailed
		case -1100, -1101, -1102, -1103, -1104, -1105, -1106, -1111, -1115, -1116, -1117, -1120, -1121, -1130: // Parameter/Request format errors
			mappedErr = ports.ErrInvalidRequest
		case -2010, -2011: // Order rejected / cancel rejected
			mappedErr = ports.ErrOrderRejected
		case -2013: // Order does not exist
			mappedErr = ports.ErrNotFound
		case -2014, -2015: // API-key format invalid / invalid key, IP or permissions
			mappedErr = ports.ErrAuthenticationFailed
		case -3005, -2019: // Insufficient balance
			mappedErr = ports.ErrInsufficientBalance
		default:
			mappedErr = ports.ErrUnknown
		}
		finalErr := fmt.Errorf("%s failed: %w: %w", operation, mappedErr, err)
		c.logger.Error(ctx, err, fmt.Sprintf("%s failed with API error", operation), fields)
		return finalErr
	}

	// Handle non-API errors (network, context cancellation, etc.)
	var finalErr error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	} else if strings.Contains(err.Error(), "use of closed network connection") ||
		strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "connection reset by peer") {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrConnectionFailed, err)
	} else {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUnknown, err)
	}

	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}

// Ping checks the connectivity to the exchange API.
func (c *Client) Ping(ctx context.Context) error {
	op := "Ping"
	if err := c.spotClient.NewPingService().Do(ctx); err != nil {
		return c.handleError(ctx, fmt.Errorf("ping failed: %w", err), op)
	}
	c.logger.Debug(ctx, op+" successful")
	return nil
}

// CurrentPrices retrieves the last price for each asset against the base
// currency in a single batched request. Assets the exchange returns nothing
// for are absent from the result.
func (c *Client) CurrentPrices(ctx context.Context, assets []string) (map[string]float64, error) {
	op := "CurrentPrices"
	symbols := make([]string, 0, len(assets))
	assetBySymbol := make(map[string]string, len(assets))
	for _, asset := range assets {
		sym := c.symbol(asset)
		symbols = append(symbols, sym)
		assetBySymbol[sym] = asset
	}

	tickers, err := c.spotClient.NewListPricesService().Symbols(symbols).Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	prices := make(map[string]float64, len(tickers))
	for _, t := range tickers {
		asset, ok := assetBySymbol[t.Symbol]
		if !ok {
			continue
		}
		price, err := strconv.ParseFloat(t.Price, 64)
		if err != nil {
			c.logger.Warn(ctx, op+": could not parse price, skipping asset", map[string]interface{}{"symbol": t.Symbol, "price": t.Price})
			continue
		}
		prices[asset] = price
	}
	if len(prices) == 0 {
		err := fmt.Errorf("%w: no prices returned for %d symbols", ports.ErrDataUnavailable, len(symbols))
		c.logger.Error(ctx, err, op+" returned no usable prices")
		return nil, err
	}
	return prices, nil
}

// Candles retrieves historical OHLCV data for the given asset, oldest first.
func (c *Client) Candles(ctx context.Context, asset, interval string, limit int) ([]*domain.PricePoint, error) {
	op := "Candles"
	sym := c.symbol(asset)
	klines, err := c.spotClient.NewKlinesService().Symbol(sym).Interval(interval).Limit(limit).Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	points := make([]*domain.PricePoint, 0, len(klines))
	for _, k := range klines {
		p, err := translateKline(k, asset, interval)
		if err != nil {
			return nil, c.handleError(ctx, fmt.Errorf("failed to translate kline: %w", err), op)
		}
		points = append(points, p)
	}
	return points, nil
}

// MarketBuy places a market buy order for quantity units of the asset.
func (c *Client) MarketBuy(ctx context.Context, asset string, quantity float64) (*ports.OrderResult, error) {
	return c.placeMarketOrder(ctx, asset, domain.Buy, quantity)
}

// MarketSell places a market sell order for quantity units of the asset.
func (c *Client) MarketSell(ctx context.Context, asset string, quantity float64) (*ports.OrderResult, error) {
	return c.placeMarketOrder(ctx, asset, domain.Sell, quantity)
}

func (c *Client) placeMarketOrder(ctx context.Context, asset string, side domain.OrderSide, quantity float64) (*ports.OrderResult, error) {
	op := "PlaceMarketOrder"
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive, got %f", ports.ErrInvalidRequest, quantity)
	}
	sym := c.symbol(asset)

	order, err := c.spotClient.NewCreateOrderService().
		Symbol(sym).
		Side(binance.SideType(side)).
		Type(binance.OrderTypeMarket).
		Quantity(formatQuantity(quantity)).
		Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	resp := translateOrderResponse(order, side)
	c.logger.Info(ctx, op+" successful", map[string]interface{}{
		"symbol":   sym,
		"side":     side,
		"quantity": quantity,
		"orderID":  resp.OrderID,
		"avgPrice": resp.AvgPrice,
		"status":   resp.Status,
	})
	return resp, nil
}

// TradingFees returns the maker and taker commission rates for the asset's
// base-currency pair, as decimal fractions.
func (c *Client) TradingFees(ctx context.Context, asset string) (float64, float64, error) {
	op := "TradingFees"
	sym := c.symbol(asset)
	fees, err := c.spotClient.NewTradeFeeService().Symbol(sym).Do(ctx)
	if err != nil {
		return 0, 0, c.handleError(ctx, err, op)
	}
	if len(fees) == 0 {
		err := fmt.Errorf("%w: no fee schedule returned for symbol %s", ports.ErrDataUnavailable, sym)
		return 0, 0, c.handleError(ctx, err, op)
	}

	maker, err := strconv.ParseFloat(fees[0].MakerCommission, 64)
	if err != nil {
		return 0, 0, c.handleError(ctx, fmt.Errorf("could not parse maker commission '%s': %w", fees[0].MakerCommission, err), op)
	}
	taker, err := strconv.ParseFloat(fees[0].TakerCommission, 64)
	if err != nil {
		return 0, 0, c.handleError(ctx, fmt.Errorf("could not parse taker commission '%s': %w", fees[0].TakerCommission, err), op)
	}
	return maker, taker, nil
}

// --- Translation Helpers ---

// formatQuantity renders a quantity without scientific notation, capped at
// eight decimals to stay inside common lot-size filters.
func formatQuantity(q float64) string {
	s := strconv.FormatFloat(q, 'f', 8, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}

func translateOrderResponse(order *binance.CreateOrderResponse, side domain.OrderSide) *ports.OrderResult {
	if order == nil {
		return nil
	}
	execQty, _ := strconv.ParseFloat(order.ExecutedQuantity, 64)
	quoteQty, _ := strconv.ParseFloat(order.CummulativeQuoteQuantity, 64)

	// Market orders fill across several price levels; the fill-weighted
	// average is the usable price.
	avgPrice := 0.0
	if execQty > 0 && quoteQty > 0 {
		avgPrice = quoteQty / execQty
	}

	return &ports.OrderResult{
		OrderID:     order.OrderID,
		Symbol:      order.Symbol,
		Side:        side,
		AvgPrice:    avgPrice,
		ExecutedQty: execQty,
		QuoteQty:    quoteQty,
		Status:      string(order.Status),
		Timestamp:   time.UnixMilli(order.TransactTime),
	}
}

func translateKline(k *binance.Kline, asset, interval string) (*domain.PricePoint, error) {
	if k == nil {
		return nil, errors.New("received nil kline")
	}
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing open price '%s': %w", k.Open, err)
	}
	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing high price '%s': %w", k.High, err)
	}
	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing low price '%s': %w", k.Low, err)
	}
	cls, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing close price '%s': %w", k.Close, err)
	}
	vol, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing volume '%s': %w", k.Volume, err)
	}

	return &domain.PricePoint{
		OpenTime:  time.UnixMilli(k.OpenTime),
		CloseTime: time.UnixMilli(k.CloseTime),
		Asset:     asset,
		Interval:  interval,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     cls,
		Volume:    vol,
	}, nil
}
