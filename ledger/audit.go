package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/rustyeddy/folio/pkg/id"
)

const auditSchema = `
CREATE TABLE IF NOT EXISTS audit (
	id TEXT PRIMARY KEY,
	time DATETIME NOT NULL,
	actor TEXT NOT NULL,
	action TEXT NOT NULL,
	details TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_time ON audit(time);
`

// AuditEntry is one append-only record of who changed what.
type AuditEntry struct {
	ID      string
	Time    time.Time
	Actor   string
	Action  string
	Details string // JSON
}

// Audit is the sqlite-backed audit trail. Recording is best effort: the
// trade has already been committed by the time an entry is written, so
// failures are logged and swallowed.
type Audit struct {
	db  *sql.DB
	log zerolog.Logger
}

// OpenAudit opens (creating if necessary) the audit database at path.
func OpenAudit(path string, log zerolog.Logger) (*Audit, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	if _, err := db.Exec(auditSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init audit schema: %w", err)
	}
	return &Audit{
		db:  db,
		log: log.With().Str("component", "audit").Logger(),
	}, nil
}

// Record appends one entry. Details marshal to JSON; failures never
// propagate to the caller.
func (a *Audit) Record(actor, action string, details any) {
	if a == nil {
		return
	}
	payload, err := json.Marshal(details)
	if err != nil {
		a.log.Warn().Err(err).Str("action", action).Msg("Failed to encode audit details")
		payload = []byte("{}")
	}

	_, err = a.db.Exec(
		`INSERT INTO audit (id, time, actor, action, details) VALUES (?, ?, ?, ?, ?)`,
		id.New(), time.Now().UTC(), actor, action, string(payload),
	)
	if err != nil {
		a.log.Warn().Err(err).Str("action", action).Msg("Failed to record audit entry")
	}
}

// Recent returns up to limit entries, newest first.
func (a *Audit) Recent(limit int) ([]AuditEntry, error) {
	rows, err := a.db.Query(
		`SELECT id, time, actor, action, details FROM audit ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.Time, &e.Actor, &e.Action, &e.Details); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (a *Audit) Close() error {
	return a.db.Close()
}
