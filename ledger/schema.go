package ledger

import (
	"fmt"
	"strings"
)

// Tables written by earlier tooling use snake_case headers; the dashboard
// writes display-case. Both map onto the canonical display-case schema here,
// once, at the table boundary.
var headerAliases = map[string]string{
	"date":          "Date",
	"ticker":        "Ticker",
	"shares":        "Shares",
	"cost_basis":    "Cost Basis",
	"stop_loss":     "Stop Loss",
	"current_price": "Current Price",
	"total_value":   "Total Value",
	"pnl":           "PnL",
	"action":        "Action",
	"cash_balance":  "Cash Balance",
	"total_equity":  "Total Equity",
	"shares_sold":   "Shares Sold",
	"sell_price":    "Sell Price",
	"shares_bought": "Shares Bought",
	"buy_price":     "Buy Price",
	"reason":        "Reason",
}

// Canonical maps a header cell to its canonical column name. Unrecognized
// headers pass through untouched so extra columns are ignored rather than
// rejected.
func Canonical(name string) string {
	trimmed := strings.TrimSpace(name)
	if canon, ok := headerAliases[strings.ToLower(trimmed)]; ok {
		return canon
	}
	return trimmed
}

// mapHeader resolves a CSV header record to column indexes for the wanted
// canonical names. The Date and Ticker columns are required; everything
// else may be absent and reads as blank.
func mapHeader(header, want []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[Canonical(h)] = i
	}
	for _, required := range []string{"Date", "Ticker"} {
		if contains(want, required) {
			if _, ok := cols[required]; !ok {
				return nil, fmt.Errorf("missing required column %q", required)
			}
		}
	}
	return cols, nil
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
