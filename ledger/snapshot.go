package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// Row is one snapshot record: a position's valuation for one day, or the
// TOTAL roll-up closing that day. Numeric fields are display-grade, rounded
// to two decimals by the engine before they get here.
type Row struct {
	Date         string
	Ticker       string
	Shares       int
	BuyPrice     float64 // persisted under the "Cost Basis" header
	StopLoss     float64
	CurrentPrice float64
	TotalValue   float64
	PnL          float64
	Action       string
	CashBalance  float64 // TOTAL rows only
	TotalEquity  float64 // TOTAL rows only
}

// IsTotal reports whether the row is the per-date roll-up.
func (r Row) IsTotal() bool { return r.Ticker == TotalTicker }

var snapshotHeader = []string{
	"Date", "Ticker", "Shares", "Cost Basis", "Stop Loss", "Current Price",
	"Total Value", "PnL", "Action", "Cash Balance", "Total Equity",
}

// SnapshotStore owns the snapshot CSV file. All mutations rewrite the file
// in full under the store's mutex.
type SnapshotStore struct {
	mu   sync.Mutex
	path string
}

// NewSnapshotStore returns a store for the snapshot table at path. The file
// is created lazily on first write.
func NewSnapshotStore(path string) *SnapshotStore {
	return &SnapshotStore{path: path}
}

// Path returns the backing file path.
func (s *SnapshotStore) Path() string { return s.path }

// Read returns every row in the table in file order. A missing file is an
// empty table; a malformed file is a fatal error since the table cannot be
// safely reconciled.
func (s *SnapshotStore) Read() ([]Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked()
}

func (s *SnapshotStore) readLocked() ([]Row, error) {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open snapshot table: %w", err)
	}
	defer f.Close()
	return ParseSnapshotCSV(f)
}

// ParseSnapshotCSV reads snapshot rows from CSV data. The dashboard edit
// path uses it to validate uploads before they replace the table.
func ParseSnapshotCSV(src io.Reader) ([]Row, error) {
	records, err := csv.NewReader(src).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse snapshot table: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	cols, err := mapHeader(records[0], snapshotHeader)
	if err != nil {
		return nil, fmt.Errorf("snapshot table: %w", err)
	}

	rows := make([]Row, 0, len(records)-1)
	for i, rec := range records[1:] {
		row, err := parseRow(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("snapshot table line %d: %w", i+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRow(rec []string, cols map[string]int) (Row, error) {
	get := func(name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(rec) {
			return ""
		}
		return rec[idx]
	}

	shares, err := blankInt(get("Shares"))
	if err != nil {
		return Row{}, fmt.Errorf("shares: %w", err)
	}
	if shares < 0 {
		return Row{}, fmt.Errorf("shares: %d is negative", shares)
	}

	row := Row{
		Date:   get("Date"),
		Ticker: get("Ticker"),
		Shares: shares,
		Action: get("Action"),
	}

	for _, fld := range []struct {
		name string
		dst  *float64
	}{
		{"Cost Basis", &row.BuyPrice},
		{"Stop Loss", &row.StopLoss},
		{"Current Price", &row.CurrentPrice},
		{"Total Value", &row.TotalValue},
		{"PnL", &row.PnL},
		{"Cash Balance", &row.CashBalance},
		{"Total Equity", &row.TotalEquity},
	} {
		v, err := blankFloat(get(fld.name))
		if err != nil {
			return Row{}, fmt.Errorf("%s: %w", fld.name, err)
		}
		*fld.dst = v
	}
	return row, nil
}

// ReplaceDay removes any existing rows for date and appends rows, keeping
// every other date untouched. Re-running the same day is therefore
// idempotent: the file ends up byte-identical for identical inputs.
func (s *SnapshotStore) ReplaceDay(date time.Time, rows []Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.readLocked()
	if err != nil {
		return err
	}

	day := date.Format(DateLayout)
	kept := make([]Row, 0, len(existing)+len(rows))
	for _, r := range existing {
		if r.Date != day {
			kept = append(kept, r)
		}
	}
	kept = append(kept, rows...)

	return s.writeLocked(kept)
}

// WriteAll replaces the entire table, backing up the previous file to a
// timestamped copy under a backups directory first. This is the dashboard
// CSV upload/edit path.
func (s *SnapshotStore) WriteAll(rows []Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); err == nil {
		backups := filepath.Join(filepath.Dir(s.path), "backups")
		if err := os.MkdirAll(backups, 0o755); err != nil {
			return fmt.Errorf("create backups dir: %w", err)
		}
		stamp := time.Now().Format("20060102_150405")
		name := fmt.Sprintf("%s_%s.csv", trimExt(filepath.Base(s.path)), stamp)
		data, err := os.ReadFile(s.path)
		if err != nil {
			return fmt.Errorf("back up snapshot table: %w", err)
		}
		if err := os.WriteFile(filepath.Join(backups, name), data, 0o644); err != nil {
			return fmt.Errorf("back up snapshot table: %w", err)
		}
	}

	return s.writeLocked(rows)
}

func (s *SnapshotStore) writeLocked(rows []Row) error {
	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("write snapshot table: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(snapshotHeader); err != nil {
		f.Close()
		return err
	}
	for _, r := range rows {
		if err := w.Write(formatRow(r)); err != nil {
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
	return os.Rename(tmp, s.path)
}

// SnapshotHeader returns the column names in display order.
func SnapshotHeader() []string {
	return append([]string(nil), snapshotHeader...)
}

// Record formats the row exactly as it is stored on disk.
func (r Row) Record() []string { return formatRow(r) }

func formatRow(r Row) []string {
	if r.IsTotal() {
		return []string{
			r.Date, r.Ticker, "", "", "", "",
			f2(r.TotalValue), f2(r.PnL), r.Action,
			f2(r.CashBalance), f2(r.TotalEquity),
		}
	}
	return []string{
		r.Date, r.Ticker,
		strconv.Itoa(r.Shares),
		f2(r.BuyPrice), f2(r.StopLoss), f2(r.CurrentPrice),
		f2(r.TotalValue), f2(r.PnL), r.Action, "", "",
	}
}

// LatestDay returns the most recent date present, or false for an empty
// table. Dates compare lexically because of the fixed layout.
func (s *SnapshotStore) LatestDay() (string, bool, error) {
	rows, err := s.Read()
	if err != nil {
		return "", false, err
	}
	latest := ""
	for _, r := range rows {
		if r.Date > latest {
			latest = r.Date
		}
	}
	return latest, latest != "", nil
}

// LatestTotal returns the TOTAL row of the most recent date. Restart state
// (cash balance) is reconstructed from it.
func (s *SnapshotStore) LatestTotal() (Row, bool, error) {
	rows, err := s.Read()
	if err != nil {
		return Row{}, false, err
	}
	var latest Row
	found := false
	for _, r := range rows {
		if r.IsTotal() && (!found || r.Date >= latest.Date) {
			latest = r
			found = true
		}
	}
	return latest, found, nil
}

// Day returns the non-TOTAL rows recorded for the most recent date: the
// current holdings snapshot as persisted.
func (s *SnapshotStore) Day() ([]Row, error) {
	rows, err := s.Read()
	if err != nil {
		return nil, err
	}
	latest := ""
	for _, r := range rows {
		if r.Date > latest {
			latest = r.Date
		}
	}
	var out []Row
	for _, r := range rows {
		if r.Date == latest && !r.IsTotal() {
			out = append(out, r)
		}
	}
	return out, nil
}

func f2(x float64) string {
	return strconv.FormatFloat(x, 'f', 2, 64)
}

func blankFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func blankInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	// Tables written by pandas carry share counts like "10.0".
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}
