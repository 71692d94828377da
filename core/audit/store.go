// Package audit keeps a trail of every mutating factory call and its outcome.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/walletfactory/core/events"
	"github.com/kilianp07/walletfactory/core/model"
	"github.com/kilianp07/walletfactory/core/module"
)

// OutcomeOK marks a successful operation. Failed operations carry an events.Reason* value.
const OutcomeOK = "ok"

// Record captures one mutating call.
type Record struct {
	ID             string        `json:"id"`
	Timestamp      time.Time     `json:"timestamp"`
	Operation      string        `json:"operation"`
	Caller         model.Address `json:"caller"`
	User           model.UserID  `json:"user"`
	Wallet         model.Address `json:"wallet"`
	Owner          model.Address `json:"owner"`
	Salt           model.Salt    `json:"salt"`
	Implementation model.Address `json:"implementation"`
	Version        uint64        `json:"version,omitempty"`
	Outcome        string        `json:"outcome"`
	Error          string        `json:"error,omitempty"`
}

// Query defines filters for retrieving records. Zero fields match everything.
type Query struct {
	Start     time.Time
	End       time.Time
	User      model.UserID
	Operation string
	Outcome   string
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// Stores holds the audit store builders selectable from configuration.
var Stores = module.NewRegistry[Store]("audit store")

func (q Query) matches(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.User != (model.UserID{}) && r.User != q.User {
		return false
	}
	if q.Operation != "" && r.Operation != q.Operation {
		return false
	}
	if q.Outcome != "" && r.Outcome != q.Outcome {
		return false
	}
	return true
}

// FromEvent converts a factory event into an audit record with a fresh id.
func FromEvent(ev events.Event) Record {
	rec := Record{ID: uuid.NewString(), Timestamp: ev.When().UTC(), Operation: ev.Operation()}
	switch e := ev.(type) {
	case events.WalletCreated:
		rec.Caller = e.Caller
		rec.User = e.User
		rec.Wallet = e.Wallet
		rec.Owner = e.Owner
		rec.Salt = e.Salt
		rec.Implementation = e.Implementation
		rec.Outcome = OutcomeOK
	case events.ImplementationDeployed:
		rec.Caller = e.Caller
		rec.Implementation = e.Implementation.Address
		rec.Version = e.Implementation.Version
		rec.Outcome = OutcomeOK
	case events.OperationRejected:
		rec.Caller = e.Caller
		rec.User = e.User
		rec.Wallet = e.Wallet
		rec.Outcome = e.Reason
		if e.Err != nil {
			rec.Error = e.Err.Error()
		}
	}
	return rec
}

// NopStore discards records.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error           { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                   { return nil }
