package ledger

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
)

// Entry is one executed trade: an automated stop-loss sell, a manual buy or
// a manual sell. Buy entries leave the sell-side fields blank and vice
// versa. Entries are never mutated or deleted once appended.
type Entry struct {
	Date         string
	Ticker       string
	SharesSold   int
	SellPrice    float64
	SharesBought int
	BuyPrice     float64
	CostBasis    float64
	PnL          float64
	Reason       string
}

var tradeLogHeader = []string{
	"Date", "Ticker", "Shares Sold", "Sell Price",
	"Shares Bought", "Buy Price", "Cost Basis", "PnL", "Reason",
}

// TradeLog owns the trade-log CSV file. Append reads the whole table,
// concatenates the new entry and rewrites the file, serialized by the
// store's mutex.
type TradeLog struct {
	mu   sync.Mutex
	path string
}

// NewTradeLog returns a trade log backed by path, created on first append.
func NewTradeLog(path string) *TradeLog {
	return &TradeLog{path: path}
}

// Path returns the backing file path.
func (l *TradeLog) Path() string { return l.path }

// Append adds one entry to the end of the log.
func (l *TradeLog) Append(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.readLocked()
	if err != nil {
		return err
	}
	entries = append(entries, e)
	return l.writeLocked(entries)
}

// Read returns every entry in append order. A missing file is an empty log.
func (l *TradeLog) Read() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readLocked()
}

func (l *TradeLog) readLocked() ([]Entry, error) {
	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open trade log: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse trade log: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	cols, err := mapHeader(records[0], tradeLogHeader)
	if err != nil {
		return nil, fmt.Errorf("trade log: %w", err)
	}

	entries := make([]Entry, 0, len(records)-1)
	for i, rec := range records[1:] {
		e, err := parseEntry(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("trade log line %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func parseEntry(rec []string, cols map[string]int) (Entry, error) {
	get := func(name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(rec) {
			return ""
		}
		return rec[idx]
	}

	var e Entry
	e.Date = get("Date")
	e.Ticker = get("Ticker")
	e.Reason = get("Reason")

	var err error
	if e.SharesSold, err = blankInt(get("Shares Sold")); err != nil {
		return Entry{}, fmt.Errorf("shares sold: %w", err)
	}
	if e.SharesBought, err = blankInt(get("Shares Bought")); err != nil {
		return Entry{}, fmt.Errorf("shares bought: %w", err)
	}
	if e.SellPrice, err = blankFloat(get("Sell Price")); err != nil {
		return Entry{}, fmt.Errorf("sell price: %w", err)
	}
	if e.BuyPrice, err = blankFloat(get("Buy Price")); err != nil {
		return Entry{}, fmt.Errorf("buy price: %w", err)
	}
	if e.CostBasis, err = blankFloat(get("Cost Basis")); err != nil {
		return Entry{}, fmt.Errorf("cost basis: %w", err)
	}
	if e.PnL, err = blankFloat(get("PnL")); err != nil {
		return Entry{}, fmt.Errorf("pnl: %w", err)
	}
	return e, nil
}

// TradeLogHeader returns the column names in display order.
func TradeLogHeader() []string {
	return append([]string(nil), tradeLogHeader...)
}

// Record formats the entry exactly as it is stored on disk.
func (e Entry) Record() []string {
	return []string{
		e.Date, e.Ticker,
		blankIfZeroInt(e.SharesSold), blankIfZero(e.SellPrice),
		blankIfZeroInt(e.SharesBought), blankIfZero(e.BuyPrice),
		f2(e.CostBasis), f2(e.PnL), e.Reason,
	}
}

func (l *TradeLog) writeLocked(entries []Entry) error {
	tmp := l.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("write trade log: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(tradeLogHeader); err != nil {
		f.Close()
		return err
	}
	for _, e := range entries {
		if err := w.Write(e.Record()); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, l.path)
}

func blankIfZeroInt(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

func blankIfZero(v float64) string {
	if v == 0 {
		return ""
	}
	return f2(v)
}
