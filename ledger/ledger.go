// Package ledger persists the two portfolio tables: the daily position
// snapshot and the append-only trade log, both CSV files, plus a sqlite
// audit trail. Every read-modify-rewrite cycle runs under a per-store
// mutex so the scheduled run and dashboard actions cannot interleave
// half-written tables.
package ledger

const (
	// DateLayout is the calendar-day format used in both tables.
	DateLayout = "2006-01-02"

	// TotalTicker is the reserved ticker of the per-date roll-up row.
	TotalTicker = "TOTAL"
)
