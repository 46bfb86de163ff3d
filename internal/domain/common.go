package domain

// TradeType classifies how a trade moves capital.
type TradeType string

const (
	TradeBuy      TradeType = "buy"      // base currency into an asset
	TradeSell     TradeType = "sell"     // asset back into base currency
	TradeRotation TradeType = "rotation" // asset to asset, two fee-bearing legs
)

// OrderSide represents the side of an exchange order (BUY or SELL).
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)
