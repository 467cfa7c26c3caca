package portfolio

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/folio/ledger"
	"github.com/rustyeddy/folio/market"
)

// DailyReport logs closing price, volume and day-over-day change for every
// held ticker plus the configured benchmark tickers, and the latest
// recorded equity. Benchmarks are tracked for display only; they never
// enter the valuation. A ticker that cannot be priced is reported and
// skipped.
func DailyReport(ctx context.Context, src market.Source, snapshots *ledger.SnapshotStore, holdings []Holding, extraTickers []string, asOf time.Time, log zerolog.Logger) {
	log = log.With().Str("component", "report").Logger()

	tickers := make([]string, 0, len(holdings)+len(extraTickers))
	seen := map[string]bool{}
	for _, h := range holdings {
		if !seen[h.Ticker] {
			seen[h.Ticker] = true
			tickers = append(tickers, h.Ticker)
		}
	}
	for _, t := range extraTickers {
		if !seen[t] {
			seen[t] = true
			tickers = append(tickers, t)
		}
	}

	for _, ticker := range tickers {
		series, err := src.Bars(ctx, ticker, 2, asOf)
		if err != nil {
			log.Warn().Err(err).Str("ticker", ticker).Msg("No prices for report")
			continue
		}
		last, ok := series.LastClose()
		if !ok {
			continue
		}
		log.Info().
			Str("ticker", ticker).
			Float64("close", round2(last)).
			Float64("volume", series.LastVolume()).
			Float64("pct_change", round2(series.PercentChange())).
			Msg("Daily price")
	}

	if total, ok, err := snapshots.LatestTotal(); err == nil && ok {
		log.Info().
			Str("date", total.Date).
			Float64("equity", total.TotalEquity).
			Msg("Latest equity")
	}
}
