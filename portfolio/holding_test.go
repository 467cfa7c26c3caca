package portfolio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/folio/ledger"
)

func writeHoldings(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "holdings.csv")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestLoadHoldingsCSV(t *testing.T) {
	t.Parallel()

	path := writeHoldings(t, "ticker,shares,stop_loss,buy_price\naaa,10,5.0,6.0\nBBB,2,,3.0\n")

	holdings, err := LoadHoldingsCSV(path, 1.5)
	require.NoError(t, err)
	require.Len(t, holdings, 2)

	assert.Equal(t, Holding{Ticker: "AAA", Shares: 10, BuyPrice: 6.0, StopLoss: 5.0}, holdings[0])
	// Blank stop loss takes the configured default.
	assert.Equal(t, 1.5, holdings[1].StopLoss)
}

func TestLoadHoldingsCSVDisplayHeaders(t *testing.T) {
	t.Parallel()

	path := writeHoldings(t, "Ticker,Shares,Stop Loss,Buy Price\nAAA,10,5.0,6.0\nTOTAL,,,\n")

	holdings, err := LoadHoldingsCSV(path, 0)
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, "AAA", holdings[0].Ticker)
}

func TestLoadHoldingsCSVDerivesBuyPrice(t *testing.T) {
	t.Parallel()

	path := writeHoldings(t, "ticker,shares,stop_loss,cost_basis\nAAA,10,5.0,60.0\n")

	holdings, err := LoadHoldingsCSV(path, 0)
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, 6.0, holdings[0].BuyPrice)
}

func TestLoadHoldingsCSVExplicitZeroStopKept(t *testing.T) {
	t.Parallel()

	path := writeHoldings(t, "ticker,shares,stop_loss,buy_price\nAAA,10,0,6.0\n")

	holdings, err := LoadHoldingsCSV(path, 2.0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, holdings[0].StopLoss)
}

func TestHoldingsFromRowsExcludesClosedAndTotal(t *testing.T) {
	t.Parallel()

	rows := []ledger.Row{
		{Date: "2025-08-29", Ticker: "AAA", Shares: 10, BuyPrice: 5.0, StopLoss: 4.0, Action: ActionHold},
		{Date: "2025-08-29", Ticker: "BBB", Shares: 3, BuyPrice: 2.0, StopLoss: 2.5, Action: ActionStopLoss},
		{Date: "2025-08-29", Ticker: ledger.TotalTicker, TotalValue: 50},
	}

	holdings := HoldingsFromRows(rows)
	require.Len(t, holdings, 1)
	assert.Equal(t, "AAA", holdings[0].Ticker)
	assert.Equal(t, 4.0, holdings[0].StopLoss)
}
