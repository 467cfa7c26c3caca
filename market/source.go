package market

import (
	"context"
	"time"
)

// Source provides daily price history for a ticker. Implementations apply
// their own request timeouts; an unavailable ticker surfaces as an error
// and the caller decides whether that is fatal.
type Source interface {
	// Bars returns up to days of daily bars ending at asOf, oldest first.
	Bars(ctx context.Context, ticker string, days int, asOf time.Time) (Series, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, ticker string, days int, asOf time.Time) (Series, error)

func (f SourceFunc) Bars(ctx context.Context, ticker string, days int, asOf time.Time) (Series, error) {
	return f(ctx, ticker, days, asOf)
}
