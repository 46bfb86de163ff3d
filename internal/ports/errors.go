package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Market Data Errors
	ErrDataUnavailable  = errors.New("market data unavailable")
	ErrInsufficientData = errors.New("not enough price samples for scoring")

	// Trading Errors
	ErrInsufficientBalance  = errors.New("insufficient balance for trade")
	ErrOrderRejected        = errors.New("exchange rejected the order")
	ErrRateLimited          = errors.New("API rate limit exceeded")
	ErrAuthenticationFailed = errors.New("exchange authentication failed (check API keys)")
	ErrConnectionFailed     = errors.New("failed to connect to the exchange")

	// Database Errors
	ErrDBConnection = errors.New("database connection error")
	ErrQueryFailed  = errors.New("database query failed")
)
