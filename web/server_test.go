package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/folio/broker"
	"github.com/rustyeddy/folio/config"
	"github.com/rustyeddy/folio/ledger"
	"github.com/rustyeddy/folio/market"
	"github.com/rustyeddy/folio/notify"
	"github.com/rustyeddy/folio/portfolio"
)

type stubSource struct {
	closes map[string]float64
}

func (s *stubSource) Bars(ctx context.Context, ticker string, days int, asOf time.Time) (market.Series, error) {
	close, ok := s.closes[ticker]
	if !ok {
		return nil, fmt.Errorf("no price history for %s", ticker)
	}
	return market.Series{{Close: close, Time: asOf}}, nil
}

type fakeBroker struct {
	placed   []broker.OrderRequest
	placeErr error
}

func (b *fakeBroker) Account(ctx context.Context) (broker.Account, error) {
	return broker.Account{ID: "paper", Equity: 1000, Cash: 500}, nil
}

func (b *fakeBroker) Positions(ctx context.Context) ([]broker.Position, error) {
	return nil, nil
}

func (b *fakeBroker) OpenOrders(ctx context.Context) ([]broker.Order, error) {
	return nil, nil
}

func (b *fakeBroker) PlaceOrder(ctx context.Context, req broker.OrderRequest) (broker.Order, error) {
	if b.placeErr != nil {
		return broker.Order{}, b.placeErr
	}
	b.placed = append(b.placed, req)
	return broker.Order{
		ID: "ord-1", Ticker: req.Ticker, Qty: float64(req.Qty),
		Side: req.Side, Type: "market", Status: "accepted",
	}, nil
}

type webFixture struct {
	server    *Server
	snapshots *ledger.SnapshotStore
	trades    *ledger.TradeLog
	dir       string
}

func newWebFixture(t *testing.T, closes map[string]float64) *webFixture {
	t.Helper()
	dir := t.TempDir()

	snapshots := ledger.NewSnapshotStore(filepath.Join(dir, "portfolio.csv"))
	trades := ledger.NewTradeLog(filepath.Join(dir, "trades.csv"))
	engine := portfolio.NewEngine(
		&stubSource{closes: closes}, snapshots, trades, nil, notify.Noop{}, zerolog.Nop())

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, config.Default().SaveToFile(cfgPath))

	srv := New(Config{
		Engine:     engine,
		Snapshots:  snapshots,
		Trades:     trades,
		ConfigPath: cfgPath,
		EnvPath:    filepath.Join(dir, ".env"),
		StatusPath: filepath.Join(dir, "status.json"),
		Username:   "admin",
		Password:   "secret",
		Log:        zerolog.Nop(),
	})
	return &webFixture{server: srv, snapshots: snapshots, trades: trades, dir: dir}
}

func (f *webFixture) seed(t *testing.T) {
	t.Helper()
	day := time.Date(2025, 8, 29, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.snapshots.ReplaceDay(day, []ledger.Row{
		{Date: "2025-08-29", Ticker: "AAA", Shares: 10, BuyPrice: 5, StopLoss: 4.5,
			CurrentPrice: 6, TotalValue: 60, PnL: 10, Action: "HOLD"},
		{Date: "2025-08-29", Ticker: ledger.TotalTicker, TotalValue: 60, PnL: 10,
			CashBalance: 100, TotalEquity: 160},
	}))
}

func (f *webFixture) login(t *testing.T) *http.Cookie {
	t.Helper()
	form := url.Values{"username": {"admin"}, "password": {"secret"}}
	req := httptest.NewRequest("POST", "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			return c
		}
	}
	t.Fatal("no session cookie issued")
	return nil
}

func (f *webFixture) do(t *testing.T, method, target string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestPortfolioPage(t *testing.T) {
	t.Parallel()

	f := newWebFixture(t, nil)
	f.seed(t)

	rec := f.do(t, "GET", "/", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "AAA")
	assert.Contains(t, rec.Body.String(), "TOTAL")
}

func TestSummaryPage(t *testing.T) {
	t.Parallel()

	f := newWebFixture(t, nil)
	f.seed(t)

	rec := f.do(t, "GET", "/summary", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "160.00")
}

func TestSummaryEmptyTable(t *testing.T) {
	t.Parallel()

	f := newWebFixture(t, nil)
	rec := f.do(t, "GET", "/summary", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMutatingPagesRequireLogin(t *testing.T) {
	t.Parallel()

	f := newWebFixture(t, nil)
	for _, path := range []string{"/portfolio/edit", "/config", "/scheduler", "/manual/buy", "/manual/sell", "/paper"} {
		rec := f.do(t, "GET", path, nil, nil)
		assert.Equal(t, http.StatusSeeOther, rec.Code, path)
		assert.Contains(t, rec.Header().Get("Location"), "/login", path)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	t.Parallel()

	f := newWebFixture(t, nil)
	form := url.Values{"username": {"admin"}, "password": {"wrong"}}
	rec := f.do(t, "POST", "/login", form, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestManualBuyFlow(t *testing.T) {
	t.Parallel()

	f := newWebFixture(t, map[string]float64{"AAA": 6, "BBB": 11})
	f.seed(t)
	cookie := f.login(t)

	form := url.Values{
		"ticker": {"bbb"}, "shares": {"5"}, "price": {"10"}, "stop_loss": {"9"},
	}
	rec := f.do(t, "POST", "/manual/buy", form, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())

	entries, err := f.trades.Read()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "BBB", entries[0].Ticker)
	assert.Equal(t, 5, entries[0].SharesBought)

	total, ok, err := f.snapshots.LatestTotal()
	require.NoError(t, err)
	require.True(t, ok)
	// 100 cash - 50 cost = 50 left
	assert.InDelta(t, 50.0, total.CashBalance, 0.001)
}

func TestManualBuyInsufficientFunds(t *testing.T) {
	t.Parallel()

	f := newWebFixture(t, map[string]float64{"BBB": 11})
	f.seed(t)
	cookie := f.login(t)

	form := url.Values{
		"ticker": {"BBB"}, "shares": {"100"}, "price": {"10"}, "stop_loss": {"9"},
	}
	rec := f.do(t, "POST", "/manual/buy", form, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	entries, err := f.trades.Read()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestManualSellFlow(t *testing.T) {
	t.Parallel()

	f := newWebFixture(t, map[string]float64{"AAA": 6})
	f.seed(t)
	cookie := f.login(t)

	form := url.Values{"ticker": {"AAA"}, "shares": {"10"}, "price": {"6"}}
	rec := f.do(t, "POST", "/manual/sell", form, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())

	entries, err := f.trades.Read()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 10, entries[0].SharesSold)
	assert.Equal(t, "MANUAL SELL - web", entries[0].Reason)
}

func TestPaperTradePlacesOrder(t *testing.T) {
	t.Parallel()

	f := newWebFixture(t, nil)
	f.seed(t)
	fb := &fakeBroker{}
	f.server.broker = fb
	cookie := f.login(t)

	form := url.Values{"ticker": {"bbb"}, "shares": {"3"}, "side": {"buy"}}
	rec := f.do(t, "POST", "/paper", form, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/status", rec.Header().Get("Location"))

	require.Len(t, fb.placed, 1)
	assert.Equal(t, broker.OrderRequest{Ticker: "BBB", Qty: 3, Side: "buy"}, fb.placed[0])

	// A paper order never touches the trade log.
	entries, err := f.trades.Read()
	require.NoError(t, err)
	assert.Empty(t, entries)

	data, err := os.ReadFile(filepath.Join(f.dir, "status.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Paper buy: 3 BBB")
}

func TestPaperTradeBrokerFailure(t *testing.T) {
	t.Parallel()

	f := newWebFixture(t, nil)
	fb := &fakeBroker{placeErr: fmt.Errorf("order rejected")}
	f.server.broker = fb
	cookie := f.login(t)

	form := url.Values{"ticker": {"AAA"}, "shares": {"1"}, "side": {"sell"}}
	rec := f.do(t, "POST", "/paper", form, cookie)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "order rejected")
}

func TestPaperTradeWithoutBroker(t *testing.T) {
	t.Parallel()

	f := newWebFixture(t, nil)
	cookie := f.login(t)

	form := url.Values{"ticker": {"AAA"}, "shares": {"1"}, "side": {"buy"}}
	rec := f.do(t, "POST", "/paper", form, cookie)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPaperTradeRejectsBadInput(t *testing.T) {
	t.Parallel()

	f := newWebFixture(t, nil)
	f.server.broker = &fakeBroker{}
	cookie := f.login(t)

	for _, form := range []url.Values{
		{"ticker": {"AAA"}, "shares": {"0"}, "side": {"buy"}},
		{"ticker": {""}, "shares": {"1"}, "side": {"buy"}},
		{"ticker": {"AAA"}, "shares": {"1"}, "side": {"short"}},
	} {
		rec := f.do(t, "POST", "/paper", form, cookie)
		assert.Equal(t, http.StatusBadRequest, rec.Code, form.Encode())
	}
}

func TestEditPortfolioBacksUpAndRewrites(t *testing.T) {
	t.Parallel()

	f := newWebFixture(t, nil)
	f.seed(t)
	cookie := f.login(t)

	csv := "Date,Ticker,Shares,Cost Basis,Stop Loss,Current Price,Total Value,PnL,Action,Cash Balance,Total Equity\n" +
		"2025-08-29,CCC,3,2.00,1.00,2.50,7.50,1.50,HOLD,,\n"
	form := url.Values{"csv_text": {csv}}
	rec := f.do(t, "POST", "/portfolio/edit", form, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())

	rows, err := f.snapshots.Read()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "CCC", rows[0].Ticker)

	backups, err := filepath.Glob(filepath.Join(f.dir, "backups", "*.csv"))
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}

func TestEditPortfolioRejectsMalformedCSV(t *testing.T) {
	t.Parallel()

	f := newWebFixture(t, nil)
	f.seed(t)
	cookie := f.login(t)

	form := url.Values{"csv_text": {"Date,Nope\n2025-08-29,x\n"}}
	rec := f.do(t, "POST", "/portfolio/edit", form, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Original table untouched.
	rows, err := f.snapshots.Read()
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestConfigSave(t *testing.T) {
	t.Parallel()

	f := newWebFixture(t, nil)
	cookie := f.login(t)

	form := url.Values{
		"default_cash":        {"5000"},
		"default_stop_loss":   {"0.9"},
		"extra_tickers":       {"IWO, XBI"},
		"email":               {"a@b.c"},
		"webhook_url":         {""},
		"APCA_API_KEY_ID":     {"key"},
		"APCA_API_SECRET_KEY": {"secret"},
		"APCA_API_BASE_URL":   {"https://paper-api.alpaca.markets"},
	}
	rec := f.do(t, "POST", "/config", form, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())

	cfg, err := config.LoadFromFile(filepath.Join(f.dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 5000.0, cfg.DefaultCash)
	assert.Equal(t, []string{"IWO", "XBI"}, cfg.ExtraTickers)

	env, err := os.ReadFile(filepath.Join(f.dir, ".env"))
	require.NoError(t, err)
	assert.Contains(t, string(env), "APCA_API_KEY_ID")
}

func TestStatusJSON(t *testing.T) {
	t.Parallel()

	f := newWebFixture(t, nil)
	rec := f.do(t, "GET", "/status?json=1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var rep map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	// No broker configured, the report says so instead of failing.
	assert.NotEmpty(t, rep["errors"])
}

func TestAPIPortfolio(t *testing.T) {
	t.Parallel()

	f := newWebFixture(t, nil)
	f.seed(t)

	rec := f.do(t, "GET", "/api/portfolio", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []ledger.Row
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	assert.Len(t, rows, 2)
}

func TestAPILog(t *testing.T) {
	t.Parallel()

	f := newWebFixture(t, nil)
	require.NoError(t, f.trades.Append(ledger.Entry{
		Date: "2025-08-29", Ticker: "AAA", SharesBought: 1, BuyPrice: 2, CostBasis: 2,
	}))

	rec := f.do(t, "GET", "/api/log", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []ledger.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	assert.Len(t, entries, 1)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	f := newWebFixture(t, nil)
	rec := f.do(t, "GET", "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
