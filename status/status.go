// Package status records the last action the system took and merges it
// with live brokerage state into a single report.
package status

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/rustyeddy/folio/broker"
)

// Record is the on-disk status file.
type Record struct {
	LastAction string    `json:"last_action"`
	Time       time.Time `json:"time"`
}

// Write overwrites path with the given action and the current UTC time.
func Write(path, action string) error {
	rec := Record{LastAction: action, Time: time.Now().UTC()}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Read returns the stored record. A missing or unreadable file yields a
// zero Record and no error; the last action is simply unknown.
func Read(path string) Record {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}
	}
	return rec
}

// Report is the merged live status.
type Report struct {
	Timestamp  time.Time         `json:"timestamp"`
	Equity     float64           `json:"equity"`
	Positions  []broker.Position `json:"positions"`
	Orders     []broker.Order    `json:"orders"`
	LastAction string            `json:"last_action"`
	Errors     []string          `json:"errors,omitempty"`
}

// Live merges the last recorded action with account, position and open
// order data from the broker. Each broker call degrades independently:
// a failure leaves that section empty and adds a note to Errors.
func Live(ctx context.Context, b broker.Broker, path string) Report {
	rep := Report{
		Timestamp:  time.Now().UTC(),
		LastAction: Read(path).LastAction,
	}
	if b == nil {
		rep.Errors = append(rep.Errors, "broker not configured")
		return rep
	}

	if acct, err := b.Account(ctx); err != nil {
		rep.Errors = append(rep.Errors, "account: "+err.Error())
	} else {
		rep.Equity = acct.Equity
	}
	if positions, err := b.Positions(ctx); err != nil {
		rep.Errors = append(rep.Errors, "positions: "+err.Error())
	} else {
		rep.Positions = positions
	}
	if orders, err := b.OpenOrders(ctx); err != nil {
		rep.Errors = append(rep.Errors, "orders: "+err.Error())
	} else {
		rep.Orders = orders
	}
	return rep
}
