package ledger

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTradeLogHeaders(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "trades.csv")
	l := NewTradeLog(path)
	require.NoError(t, l.Append(Entry{Date: "2025-08-28", Ticker: "AAA"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	header, err := csv.NewReader(strings.NewReader(string(data))).Read()
	require.NoError(t, err)
	assert.Equal(t, tradeLogHeader, header)
}

func TestTradeLogAppendPreservesExisting(t *testing.T) {
	t.Parallel()

	l := NewTradeLog(filepath.Join(t.TempDir(), "trades.csv"))

	sell := Entry{
		Date: "2025-08-28", Ticker: "AAA", SharesSold: 10, SellPrice: 5.0,
		CostBasis: 5.0, PnL: 0.0, Reason: "AUTOMATED SELL - STOPLOSS TRIGGERED",
	}
	buy := Entry{
		Date: "2025-08-29", Ticker: "BBB", SharesBought: 5, BuyPrice: 10.0,
		CostBasis: 50.0, Reason: "MANUAL BUY - New position",
	}

	require.NoError(t, l.Append(sell))
	require.NoError(t, l.Append(buy))

	entries, err := l.Read()
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, 10, entries[0].SharesSold)
	assert.Zero(t, entries[0].SharesBought)
	assert.Equal(t, sell.Reason, entries[0].Reason)

	assert.Equal(t, 5, entries[1].SharesBought)
	assert.Zero(t, entries[1].SharesSold)
	assert.Equal(t, 50.0, entries[1].CostBasis)
}

func TestTradeLogBlankSideFields(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "trades.csv")
	l := NewTradeLog(path)
	require.NoError(t, l.Append(Entry{
		Date: "2025-08-28", Ticker: "AAA", SharesBought: 5, BuyPrice: 10.0,
		CostBasis: 50.0, Reason: "MANUAL BUY - New position",
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Sell-side columns stay blank on a buy entry.
	assert.Equal(t, "", records[1][2])
	assert.Equal(t, "", records[1][3])
	assert.Equal(t, "5", records[1][4])
	assert.Equal(t, "10.00", records[1][5])
}

func TestTradeLogAcceptsSnakeCaseHeaders(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "trades.csv")
	data := "date,ticker,shares_sold,sell_price,shares_bought,buy_price,cost_basis,pnl,reason\n" +
		"2025-08-28,AAA,,,5,10.00,50.00,0.00,MANUAL BUY - New position\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	l := NewTradeLog(path)
	entries, err := l.Read()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 5, entries[0].SharesBought)
	assert.Equal(t, 10.0, entries[0].BuyPrice)
	assert.Equal(t, 50.0, entries[0].CostBasis)

	// A rewrite through Append must carry the old values forward intact.
	require.NoError(t, l.Append(Entry{
		Date: "2025-08-29", Ticker: "AAA", SharesSold: 5, SellPrice: 12.0,
		CostBasis: 50.0, PnL: 10.0, Reason: "MANUAL SELL - web",
	}))

	entries, err = l.Read()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 10.0, entries[0].BuyPrice)
	assert.Equal(t, 12.0, entries[1].SellPrice)
}

func TestTradeLogMissingFileIsEmpty(t *testing.T) {
	t.Parallel()

	entries, err := NewTradeLog(filepath.Join(t.TempDir(), "none.csv")).Read()
	require.NoError(t, err)
	assert.Empty(t, entries)
}
