package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/rustyeddy/folio/broker"
	"github.com/rustyeddy/folio/config"
	"github.com/rustyeddy/folio/ledger"
	"github.com/rustyeddy/folio/portfolio"
	"github.com/rustyeddy/folio/status"
)

type tableData struct {
	Title  string
	Header []string
	Rows   [][]string
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	rows, err := s.snapshots.Read()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	data := tableData{Title: "Portfolio", Header: ledger.SnapshotHeader()}
	for _, row := range rows {
		data.Rows = append(data.Rows, row.Record())
	}
	s.render(w, http.StatusOK, "portfolio.html", data)
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	entries, err := s.trades.Read()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	data := tableData{Title: "Trade Log", Header: ledger.TradeLogHeader()}
	for _, e := range entries {
		data.Rows = append(data.Rows, e.Record())
	}
	s.render(w, http.StatusOK, "log.html", data)
}

type summaryData struct {
	Date   string
	Total  string
	PnL    string
	Cash   string
	Equity string
	Rows   [][]string
	Header []string
}

func (s *Server) latestSummary() (summaryData, error) {
	total, ok, err := s.snapshots.LatestTotal()
	if err != nil {
		return summaryData{}, err
	}
	if !ok {
		return summaryData{}, errNoSummary
	}
	return summaryData{
		Date:   total.Date,
		Total:  fmt.Sprintf("%.2f", total.TotalValue),
		PnL:    fmt.Sprintf("%.2f", total.PnL),
		Cash:   fmt.Sprintf("%.2f", total.CashBalance),
		Equity: fmt.Sprintf("%.2f", total.TotalEquity),
	}, nil
}

var errNoSummary = errors.New("no summary data")

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	data, err := s.latestSummary()
	if errors.Is(err, errNoSummary) {
		http.Error(w, "No summary data", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.render(w, http.StatusOK, "summary.html", data)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	data, err := s.latestSummary()
	if errors.Is(err, errNoSummary) {
		http.Error(w, "No summary data", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	day, err := s.snapshots.Day()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	data.Header = ledger.SnapshotHeader()
	for _, row := range day {
		data.Rows = append(data.Rows, row.Record())
	}
	s.render(w, http.StatusOK, "overview.html", data)
}

func (s *Server) handleEditForm(w http.ResponseWriter, r *http.Request) {
	text, err := os.ReadFile(s.snapshots.Path())
	if err != nil && !os.IsNotExist(err) {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.render(w, http.StatusOK, "edit.html", map[string]any{"CSVText": string(text)})
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	var src io.Reader

	if file, _, err := r.FormFile("file"); err == nil {
		defer file.Close()
		src = file
	} else {
		src = strings.NewReader(r.FormValue("csv_text"))
	}

	rows, err := ledger.ParseSnapshotCSV(src)
	if err != nil {
		s.render(w, http.StatusBadRequest, "edit.html", map[string]any{
			"Error":   err.Error(),
			"CSVText": r.FormValue("csv_text"),
		})
		return
	}
	if err := s.snapshots.WriteAll(rows); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if s.audit != nil {
		s.audit.Record(s.username, "portfolio_edit", map[string]any{"rows": len(rows)})
	}
	http.Redirect(w, r, "/portfolio/edit", http.StatusSeeOther)
}

func (s *Server) handleConfigForm(w http.ResponseWriter, r *http.Request) {
	cfg, err := config.LoadFromFile(s.configPath)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	env, _ := godotenv.Read(s.envPath)
	s.render(w, http.StatusOK, "config.html", map[string]any{
		"Config":       cfg,
		"ExtraTickers": strings.Join(cfg.ExtraTickers, ", "),
		"Env":          env,
	})
}

func (s *Server) handleConfigSave(w http.ResponseWriter, r *http.Request) {
	cfg, err := config.LoadFromFile(s.configPath)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	defaultCash, err1 := strconv.ParseFloat(r.FormValue("default_cash"), 64)
	defaultStop, err2 := strconv.ParseFloat(r.FormValue("default_stop_loss"), 64)
	if err1 != nil || err2 != nil {
		http.Error(w, "Invalid numeric values", http.StatusBadRequest)
		return
	}
	cfg.DefaultCash = defaultCash
	cfg.DefaultStopLoss = defaultStop
	cfg.Email = r.FormValue("email")
	cfg.WebhookURL = r.FormValue("webhook_url")

	cfg.ExtraTickers = nil
	for _, t := range strings.Split(r.FormValue("extra_tickers"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			cfg.ExtraTickers = append(cfg.ExtraTickers, t)
		}
	}

	if err := cfg.SaveToFile(s.configPath); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	env, _ := godotenv.Read(s.envPath)
	if env == nil {
		env = map[string]string{}
	}
	env["APCA_API_KEY_ID"] = r.FormValue("APCA_API_KEY_ID")
	env["APCA_API_SECRET_KEY"] = r.FormValue("APCA_API_SECRET_KEY")
	env["APCA_API_BASE_URL"] = r.FormValue("APCA_API_BASE_URL")
	if err := godotenv.Write(env, s.envPath); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if s.audit != nil {
		s.audit.Record(s.username, "config_update", cfg)
	}
	http.Redirect(w, r, "/config", http.StatusSeeOther)
}

func (s *Server) handleSchedulerForm(w http.ResponseWriter, r *http.Request) {
	runTime := "09:00"
	if s.scheduler != nil {
		runTime = s.scheduler.RunTime()
	}
	s.render(w, http.StatusOK, "scheduler.html", map[string]any{"RunTime": runTime})
}

func (s *Server) handleSchedulerSave(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		http.Error(w, "scheduler not running", http.StatusConflict)
		return
	}
	runTime := r.FormValue("run_time")
	if err := s.scheduler.Restart(runTime); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	cfg, err := config.LoadFromFile(s.configPath)
	if err == nil {
		cfg.RunTime = runTime
		if err := cfg.SaveToFile(s.configPath); err != nil {
			s.log.Error().Err(err).Msg("saving run time")
		}
	}
	if s.audit != nil {
		s.audit.Record(s.username, "scheduler_update", map[string]string{"run_time": runTime})
	}
	http.Redirect(w, r, "/scheduler", http.StatusSeeOther)
}

func (s *Server) handleBuyForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "buy.html", map[string]any{})
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(strings.TrimSpace(r.FormValue("ticker")))
	shares, err1 := strconv.Atoi(r.FormValue("shares"))
	price, err2 := strconv.ParseFloat(r.FormValue("price"), 64)
	stop, err3 := strconv.ParseFloat(r.FormValue("stop_loss"), 64)
	if err1 != nil || err2 != nil || err3 != nil {
		http.Error(w, "Invalid numeric values", http.StatusBadRequest)
		return
	}

	holdings, cash, err := s.currentState()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	asOf := time.Now().UTC()
	cash, holdings, err = s.engine.Buy(r.Context(), ticker, shares, price, stop, cash, holdings, asOf)
	if err != nil {
		http.Error(w, err.Error(), tradeErrorCode(err))
		return
	}
	if _, err := s.engine.Process(r.Context(), holdings, cash, asOf); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.writeStatus(fmt.Sprintf("Manual buy: %d %s @ %.2f", shares, ticker, price))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleSellForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "sell.html", map[string]any{})
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(strings.TrimSpace(r.FormValue("ticker")))
	shares, err1 := strconv.Atoi(r.FormValue("shares"))
	price, err2 := strconv.ParseFloat(r.FormValue("price"), 64)
	if err1 != nil || err2 != nil {
		http.Error(w, "Invalid numeric values", http.StatusBadRequest)
		return
	}
	reason := r.FormValue("reason")
	if reason == "" {
		reason = "web"
	}

	holdings, cash, err := s.currentState()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	asOf := time.Now().UTC()
	cash, holdings, err = s.engine.Sell(r.Context(), ticker, shares, price, cash, holdings, reason, asOf)
	if err != nil {
		http.Error(w, err.Error(), tradeErrorCode(err))
		return
	}
	if _, err := s.engine.Process(r.Context(), holdings, cash, asOf); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.writeStatus(fmt.Sprintf("Manual sell: %d %s @ %.2f", shares, ticker, price))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handlePaperForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "paper.html", map[string]any{})
}

// handlePaperTrade forwards a market order to the paper brokerage account.
// It never touches the snapshot table or the trade log.
func (s *Server) handlePaperTrade(w http.ResponseWriter, r *http.Request) {
	if s.broker == nil {
		http.Error(w, "broker not configured", http.StatusConflict)
		return
	}

	ticker := strings.ToUpper(strings.TrimSpace(r.FormValue("ticker")))
	shares, err := strconv.Atoi(r.FormValue("shares"))
	if err != nil || ticker == "" || shares <= 0 {
		http.Error(w, "Invalid order", http.StatusBadRequest)
		return
	}
	side := r.FormValue("side")
	if side != "buy" && side != "sell" {
		http.Error(w, "Invalid order", http.StatusBadRequest)
		return
	}

	ord, err := s.broker.PlaceOrder(r.Context(), broker.OrderRequest{
		Ticker: ticker,
		Qty:    shares,
		Side:   side,
	})
	if err != nil {
		s.render(w, http.StatusBadGateway, "paper.html", map[string]any{
			"Error": err.Error(),
		})
		return
	}

	if s.audit != nil {
		s.audit.Record(s.username, "paper_trade", map[string]any{
			"ticker": ticker, "shares": shares, "side": side,
			"order_id": ord.ID, "status": ord.Status,
		})
	}
	s.writeStatus(fmt.Sprintf("Paper %s: %d %s (order %s)", side, shares, ticker, ord.ID))
	http.Redirect(w, r, "/status", http.StatusSeeOther)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	rep := status.Live(r.Context(), s.broker, s.statusPath)
	if r.URL.Query().Get("json") != "" {
		writeJSON(w, http.StatusOK, rep)
		return
	}
	s.render(w, http.StatusOK, "status.html", rep)
}

func (s *Server) handleAPIPortfolio(w http.ResponseWriter, r *http.Request) {
	rows, err := s.snapshots.Read()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleAPILog(w http.ResponseWriter, r *http.Request) {
	entries, err := s.trades.Read()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// currentState rebuilds the working portfolio from the snapshot table:
// open holdings from the latest day's rows, cash from the latest TOTAL.
func (s *Server) currentState() ([]portfolio.Holding, float64, error) {
	day, err := s.snapshots.Day()
	if err != nil {
		return nil, 0, err
	}
	holdings := portfolio.HoldingsFromRows(day)

	total, ok, err := s.snapshots.LatestTotal()
	if err != nil {
		return nil, 0, err
	}
	cash := 0.0
	if ok {
		cash = total.CashBalance
	}
	return holdings, cash, nil
}

func (s *Server) writeStatus(action string) {
	if s.statusPath == "" {
		return
	}
	if err := status.Write(s.statusPath, action); err != nil {
		s.log.Error().Err(err).Msg("writing status file")
	}
}

func tradeErrorCode(err error) int {
	switch {
	case errors.Is(err, portfolio.ErrInvalidOrder),
		errors.Is(err, portfolio.ErrInsufficientFunds),
		errors.Is(err, portfolio.ErrUnknownTicker),
		errors.Is(err, portfolio.ErrTickerNotFound),
		errors.Is(err, portfolio.ErrOverSell):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
