package portfolio

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/folio/ledger"
	"github.com/rustyeddy/folio/market"
	"github.com/rustyeddy/folio/notify"
)

// Actions recorded on snapshot rows.
const (
	ActionHold     = "HOLD"
	ActionStopLoss = "SELL - Stop Loss Triggered"

	// StopLossReason is the default trade-log reason for automated sells.
	StopLossReason = "AUTOMATED SELL - STOPLOSS TRIGGERED"
)

// Engine values holdings against fresh prices and reconciles the result
// into the persisted tables. Engines hold no portfolio state of their own:
// every run is a transform of (persisted state, fresh prices).
type Engine struct {
	src       market.Source
	snapshots *ledger.SnapshotStore
	trades    *ledger.TradeLog
	audit     *ledger.Audit
	notifier  notify.Notifier
	log       zerolog.Logger

	// SellReason overrides StopLossReason when set.
	SellReason string
}

// NewEngine wires an engine. audit may be nil; notifier must not be (use
// notify.Noop{}).
func NewEngine(src market.Source, snapshots *ledger.SnapshotStore, trades *ledger.TradeLog, audit *ledger.Audit, notifier notify.Notifier, log zerolog.Logger) *Engine {
	return &Engine{
		src:       src,
		snapshots: snapshots,
		trades:    trades,
		audit:     audit,
		notifier:  notifier,
		log:       log.With().Str("component", "engine").Logger(),
	}
}

// Result reports one Process run.
type Result struct {
	SnapshotPath string
	Cash         float64  // updated cash, full precision
	Rows         []ledger.Row
	Liquidated   []string // tickers sold by the stop-loss policy
	Skipped      []string // tickers with no retrievable price
}

// Process marks every holding to market for asOf and writes the day's
// snapshot rows plus the TOTAL roll-up, replacing any rows already recorded
// for that date. Holdings whose price is at or below their stop-loss are
// liquidated: their value moves into cash, a trade-log entry is appended
// and the position is excluded from the day's totals. A missing price for
// one ticker skips that holding with a warning; a broken persisted table
// aborts the run.
func (e *Engine) Process(ctx context.Context, holdings []Holding, cash float64, asOf time.Time) (Result, error) {
	for _, h := range holdings {
		if h.Shares < 0 {
			return Result{}, fmt.Errorf("holding %s: negative share count", h.Ticker)
		}
	}

	prices := e.fetchAll(ctx, holdings, asOf)

	day := asOf.Format(ledger.DateLayout)
	res := Result{SnapshotPath: e.snapshots.Path()}

	var rows []ledger.Row
	var totalValue, totalPnL float64

	for _, h := range holdings {
		series, ok := prices[h.Ticker]
		if !ok {
			e.log.Warn().Str("ticker", h.Ticker).Msg("No price history, skipping holding")
			res.Skipped = append(res.Skipped, h.Ticker)
			continue
		}

		last, _ := series.LastClose()
		price := round2(last)
		value := round2(price * float64(h.Shares))
		pnl := round2((price - h.BuyPrice) * float64(h.Shares))

		row := ledger.Row{
			Date:         day,
			Ticker:       h.Ticker,
			Shares:       h.Shares,
			BuyPrice:     h.BuyPrice,
			StopLoss:     h.StopLoss,
			CurrentPrice: price,
			TotalValue:   value,
			PnL:          pnl,
		}

		if price <= h.StopLoss {
			row.Action = ActionStopLoss
			cash += value
			res.Liquidated = append(res.Liquidated, h.Ticker)
			if err := e.logStopLoss(day, h, price, pnl); err != nil {
				return Result{}, err
			}
		} else {
			row.Action = ActionHold
			totalValue += value
			totalPnL += pnl
		}
		rows = append(rows, row)
	}

	rows = append(rows, ledger.Row{
		Date:        day,
		Ticker:      ledger.TotalTicker,
		TotalValue:  round2(totalValue),
		PnL:         round2(totalPnL),
		CashBalance: round2(cash),
		TotalEquity: round2(totalValue + cash),
	})

	if err := e.snapshots.ReplaceDay(asOf, rows); err != nil {
		return Result{}, err
	}

	e.audit.Record("system", "portfolio_update", map[string]string{"file": e.snapshots.Path(), "date": day})

	res.Cash = cash
	res.Rows = rows
	e.log.Info().
		Str("date", day).
		Int("holdings", len(holdings)).
		Int("liquidated", len(res.Liquidated)).
		Float64("total_equity", round2(totalValue+cash)).
		Msg("Processed portfolio")
	return res, nil
}

// fetchAll resolves the latest prices for every distinct ticker
// concurrently and joins before returning; totals are only computed once
// all lookups have settled. Failed lookups are simply absent from the map.
func (e *Engine) fetchAll(ctx context.Context, holdings []Holding, asOf time.Time) map[string]market.Series {
	tickers := make([]string, 0, len(holdings))
	seen := map[string]bool{}
	for _, h := range holdings {
		if !seen[h.Ticker] {
			seen[h.Ticker] = true
			tickers = append(tickers, h.Ticker)
		}
	}

	var mu sync.Mutex
	prices := make(map[string]market.Series, len(tickers))

	var wg sync.WaitGroup
	for _, ticker := range tickers {
		wg.Add(1)
		go func(ticker string) {
			defer wg.Done()
			series, err := e.src.Bars(ctx, ticker, 2, asOf)
			if err != nil {
				e.log.Warn().Err(err).Str("ticker", ticker).Msg("Price lookup failed")
				return
			}
			mu.Lock()
			prices[ticker] = series
			mu.Unlock()
		}(ticker)
	}
	wg.Wait()

	return prices
}

// logStopLoss appends the liquidation entry unless an identical automated
// sell is already recorded for the same date and ticker, so re-running a
// day never duplicates a trigger. Notification goes out only after the
// entry is committed.
func (e *Engine) logStopLoss(day string, h Holding, price, pnl float64) error {
	reason := e.SellReason
	if reason == "" {
		reason = StopLossReason
	}

	existing, err := e.trades.Read()
	if err != nil {
		return err
	}
	for _, t := range existing {
		if t.Date == day && t.Ticker == h.Ticker && t.Reason == reason && t.SharesSold == h.Shares {
			return nil
		}
	}

	entry := ledger.Entry{
		Date:       day,
		Ticker:     h.Ticker,
		SharesSold: h.Shares,
		SellPrice:  price,
		CostBasis:  h.BuyPrice,
		PnL:        pnl,
		Reason:     reason,
	}
	if err := e.trades.Append(entry); err != nil {
		return fmt.Errorf("log stop-loss sell: %w", err)
	}

	e.notifier.Send(fmt.Sprintf(
		"Sold %d shares of %s at %.2f (PnL: %.2f). Reason: %s",
		h.Shares, h.Ticker, price, pnl, reason))
	return nil
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
