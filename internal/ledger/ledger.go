// Package ledger implements the asset lifecycle: purchases mint assets,
// transfers move them between bases and assignments lend them to personnel.
// Every operation is authorized with the policy package, runs its writes in
// one transaction and hands an audit event to the sink after commit.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/arsenal/internal/audit"
	"github.com/erazemk/arsenal/internal/dbx"
	"github.com/erazemk/arsenal/internal/ids"
	"github.com/erazemk/arsenal/internal/model"
	"github.com/erazemk/arsenal/internal/policy"
)

// Ledger coordinates the purchase, transfer and assignment workflows over
// a shared asset registry.
type Ledger struct {
	DB    *sql.DB
	IDs   ids.Generator
	Audit audit.Sink
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
	// DirectCompletion lets CompleteTransfer accept an approved transfer
	// that never departed.
	DirectCompletion bool
}

// New returns a ledger over db. A nil generator uses UUIDv7 codes and a nil
// sink discards audit events.
func New(db *sql.DB, gen ids.Generator, sink audit.Sink) *Ledger {
	if gen == nil {
		gen = ids.UUID{}
	}
	if sink == nil {
		sink = audit.Nop{}
	}
	return &Ledger{DB: db, IDs: gen, Audit: sink, Now: time.Now}
}

func (l *Ledger) now() time.Time {
	if l.Now == nil {
		return time.Now().UTC()
	}
	return l.Now().UTC()
}

func (l *Ledger) inTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	return dbx.WithTx(ctx, l.DB, fn)
}

// emit hands one event to the audit sink. Callers invoke it only after the
// transaction has committed.
func (l *Ledger) emit(ctx context.Context, actor policy.Actor, action, resource, resourceID string, details map[string]any) {
	l.Audit.Record(ctx, audit.Event{
		ActorID:     actor.UserID,
		ActorBaseID: actor.BaseID,
		Action:      action,
		Resource:    resource,
		ResourceID:  resourceID,
		Details:     details,
		At:          l.now(),
	})
}

func notFound(what string, id int64) error {
	return fmt.Errorf("%w: %s %d", model.ErrNotFound, what, id)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", model.ErrValidation, fmt.Sprintf(format, args...))
}

func invalidState(format string, args ...any) error {
	return fmt.Errorf("%w: %s", model.ErrInvalidState, fmt.Sprintf(format, args...))
}

// stampRetired records when next left service, if the transition retired it.
func (l *Ledger) stampRetired(next *model.Asset) {
	if next.Terminal() && next.RetiredAt == nil {
		at := l.now()
		next.RetiredAt = &at
	}
}

// orNow returns *t in UTC, or now when t is nil or zero.
func orNow(t *time.Time, now time.Time) time.Time {
	if t == nil || t.IsZero() {
		return now
	}
	return t.UTC()
}
