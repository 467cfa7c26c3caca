package portfolio

import "errors"

// Validation errors for manual trades. The handler validates fully before
// writing anything, so a returned error guarantees no partial mutation.
var (
	// ErrInsufficientFunds rejects a buy whose cost exceeds available cash.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrUnknownTicker rejects a buy when the price source cannot resolve
	// the ticker at all.
	ErrUnknownTicker = errors.New("unknown ticker")

	// ErrTickerNotFound rejects a sell of a ticker absent from holdings.
	ErrTickerNotFound = errors.New("ticker not found in portfolio")

	// ErrOverSell rejects a sell of more shares than are owned.
	ErrOverSell = errors.New("cannot sell more shares than owned")

	// ErrInvalidOrder rejects non-positive share counts or prices.
	ErrInvalidOrder = errors.New("invalid order")
)
