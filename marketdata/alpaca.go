// Package marketdata provides the live price source and its on-disk daily
// cache. Prices come from the Alpaca market data API; the cache keeps one
// permanent entry per (ticker, calendar day) so repeated runs within a day
// never hit the network twice.
package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"github.com/rustyeddy/folio/market"
)

// Client fetches daily bars from Alpaca's market data API.
type Client struct {
	md *marketdata.Client
}

var _ market.Source = (*Client)(nil)

// NewClient returns an Alpaca market data client. Credentials are read from
// the APCA environment variables by the SDK.
func NewClient() *Client {
	return &Client{md: marketdata.NewClient(marketdata.ClientOpts{})}
}

// Bars returns up to days daily bars for ticker ending at asOf, oldest
// first. A ticker with no bars at all resolves to an error so callers can
// distinguish "unknown ticker" from an empty window.
func (c *Client) Bars(ctx context.Context, ticker string, days int, asOf time.Time) (market.Series, error) {
	// The SDK client carries its own HTTP timeout; an already-cancelled
	// context still short-circuits the call.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Ask for a wider window than requested; weekends and holidays thin
	// out the daily bars.
	start := asOf.AddDate(0, 0, -(days*2 + 3))

	bars, err := c.md.GetBars(ticker, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
		End:       asOf,
	})
	if err != nil {
		return nil, fmt.Errorf("get bars for %s: %w", ticker, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no price history for %s", ticker)
	}

	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}

	series := make(market.Series, 0, len(bars))
	for _, b := range bars {
		series = append(series, market.Bar{
			Time:   b.Timestamp,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: float64(b.Volume),
		})
	}

	return series, nil
}
