// Package portfolio implements the valuation engine and the manual trade
// handler: the logic that marks holdings to market, applies the stop-loss
// policy, rolls up the daily TOTAL row and keeps cash conserved across
// automated and manual mutations.
package portfolio

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rustyeddy/folio/ledger"
)

// Holding is one open position. Duplicate tickers are allowed: every manual
// buy creates its own lot so per-lot cost basis is preserved.
type Holding struct {
	Ticker   string
	Shares   int
	BuyPrice float64 // average cost per share
	StopLoss float64 // trigger price; at or below liquidates
}

// CostBasis returns the invested amount for the lot.
func (h Holding) CostBasis() float64 {
	return h.BuyPrice * float64(h.Shares)
}

// HoldingsFromRows converts the latest persisted snapshot rows back into
// holdings. TOTAL and liquidated rows are excluded: a position sold by the
// stop-loss policy is closed and must not be re-processed the next day.
func HoldingsFromRows(rows []ledger.Row) []Holding {
	var out []Holding
	for _, r := range rows {
		if r.IsTotal() || (r.Action != "" && r.Action != ActionHold) {
			continue
		}
		out = append(out, Holding{
			Ticker:   r.Ticker,
			Shares:   r.Shares,
			BuyPrice: r.BuyPrice,
			StopLoss: r.StopLoss,
		})
	}
	return out
}

// LoadHoldingsCSV reads a holdings file with columns ticker, shares,
// stop_loss, buy_price (display-case headers accepted too). Summary TOTAL
// rows and rows without a share count are dropped; a missing buy_price
// column is derived from cost_basis / shares; a blank stop_loss falls back
// to defaultStop. Explicit zero stop-losses are kept as written.
func LoadHoldingsCSV(path string, defaultStop float64) ([]Holding, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open holdings file: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse holdings file: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	cols := map[string]int{}
	for i, h := range records[0] {
		key := strings.ToLower(strings.TrimSpace(h))
		key = strings.ReplaceAll(key, " ", "_")
		cols[key] = i
	}
	if _, ok := cols["ticker"]; !ok {
		return nil, fmt.Errorf("holdings file: missing ticker column")
	}

	get := func(rec []string, name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[idx])
	}

	var out []Holding
	for n, rec := range records[1:] {
		ticker := get(rec, "ticker")
		if ticker == "" || strings.EqualFold(ticker, ledger.TotalTicker) {
			continue
		}

		sharesStr := get(rec, "shares")
		if sharesStr == "" {
			continue
		}
		sharesF, err := strconv.ParseFloat(sharesStr, 64)
		if err != nil {
			return nil, fmt.Errorf("holdings file line %d: shares: %w", n+2, err)
		}
		shares := int(sharesF)
		if shares < 0 {
			return nil, fmt.Errorf("holdings file line %d: negative shares", n+2)
		}

		buyPrice, err := parseOptFloat(get(rec, "buy_price"))
		if err != nil {
			return nil, fmt.Errorf("holdings file line %d: buy_price: %w", n+2, err)
		}
		if get(rec, "buy_price") == "" && shares > 0 {
			costBasis, err := parseOptFloat(get(rec, "cost_basis"))
			if err != nil {
				return nil, fmt.Errorf("holdings file line %d: cost_basis: %w", n+2, err)
			}
			buyPrice = costBasis / float64(shares)
		}

		stopStr := get(rec, "stop_loss")
		stop := defaultStop
		if stopStr != "" {
			if stop, err = strconv.ParseFloat(stopStr, 64); err != nil {
				return nil, fmt.Errorf("holdings file line %d: stop_loss: %w", n+2, err)
			}
		}

		out = append(out, Holding{
			Ticker:   strings.ToUpper(ticker),
			Shares:   shares,
			BuyPrice: buyPrice,
			StopLoss: stop,
		})
	}
	return out, nil
}

func parseOptFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
