package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rustyeddy/folio/config"
	"github.com/rustyeddy/folio/ledger"
	"github.com/rustyeddy/folio/market"
	"github.com/rustyeddy/folio/marketdata"
	"github.com/rustyeddy/folio/notify"
	"github.com/rustyeddy/folio/portfolio"
	"github.com/rustyeddy/folio/status"
)

// app bundles the components a run needs, wired the same way for the
// one-shot, scheduled and dashboard commands.
type app struct {
	cfg       *config.Config
	src       market.Source
	snapshots *ledger.SnapshotStore
	trades    *ledger.TradeLog
	audit     *ledger.Audit
	engine    *portfolio.Engine

	statusPath string
}

func buildApp(portfolioPath string) (*app, error) {
	cfg, err := config.LoadFromFile(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	dir := filepath.Dir(portfolioPath)

	var src market.Source = marketdata.NewClient()
	cache, err := marketdata.NewCache(filepath.Join(dir, "cache"), log)
	if err != nil {
		return nil, fmt.Errorf("price cache: %w", err)
	}
	src = marketdata.NewCachedSource(src, cache, log)

	var audit *ledger.Audit
	if auditDB != "" {
		audit, err = ledger.OpenAudit(auditDB, log)
		if err != nil {
			return nil, fmt.Errorf("audit trail: %w", err)
		}
	}

	snapshots := ledger.NewSnapshotStore(portfolioPath)
	trades := ledger.NewTradeLog(filepath.Join(dir, "trade_log.csv"))
	notifier := notify.FromConfig(notify.Config{
		Email:      cfg.Email,
		WebhookURL: cfg.WebhookURL,
	}, log)

	engine := portfolio.NewEngine(src, snapshots, trades, audit, notifier, log)

	return &app{
		cfg:        cfg,
		src:        src,
		snapshots:  snapshots,
		trades:     trades,
		audit:      audit,
		engine:     engine,
		statusPath: filepath.Join(dir, "bot_status.json"),
	}, nil
}

func (a *app) close() {
	if a.audit != nil {
		a.audit.Close()
	}
}

// runOnce values the portfolio for today and records the outcome.
func (a *app) runOnce(ctx context.Context, cashOverride float64) (portfolio.Result, error) {
	holdings, cash, err := a.currentState()
	if err != nil {
		return portfolio.Result{}, err
	}
	if cashOverride >= 0 {
		cash = cashOverride
	}
	return a.run(ctx, holdings, cash)
}

// run processes the given holdings and records the daily report and
// status file alongside.
func (a *app) run(ctx context.Context, holdings []portfolio.Holding, cash float64) (portfolio.Result, error) {
	asOf := timeNow()
	res, err := a.engine.Process(ctx, holdings, cash, asOf)
	if err != nil {
		return res, err
	}

	portfolio.DailyReport(ctx, a.src, a.snapshots, holdings, a.cfg.ExtraTickers, asOf, log)

	action := fmt.Sprintf("Daily run complete: %d positions, %d liquidated, cash %.2f",
		len(res.Rows)-1, len(res.Liquidated), res.Cash)
	if err := status.Write(a.statusPath, action); err != nil {
		log.Error().Err(err).Msg("writing status file")
	}
	return res, nil
}

// currentState rebuilds holdings and cash from the snapshot table. A
// fresh table starts empty with the configured default cash.
func (a *app) currentState() ([]portfolio.Holding, float64, error) {
	day, err := a.snapshots.Day()
	if err != nil {
		return nil, 0, err
	}
	holdings := portfolio.HoldingsFromRows(day)

	total, ok, err := a.snapshots.LatestTotal()
	if err != nil {
		return nil, 0, err
	}
	cash := a.cfg.DefaultCash
	if ok {
		cash = total.CashBalance
	}
	return holdings, cash, nil
}

func timeNow() time.Time { return time.Now().UTC() }
