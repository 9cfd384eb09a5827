// Package audit records an immutable event for every state-changing
// operation. Recording is best effort: it never blocks or fails the caller.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/erazemk/arsenal/internal/model"
	"github.com/erazemk/arsenal/internal/store"
)

// Actions.
const (
	ActionLogin  = "login"
	ActionLogout = "logout"

	ActionUserCreated = "user_created"
	ActionUserUpdated = "user_updated"
	ActionUserDeleted = "user_deleted"
	ActionBaseCreated = "base_created"
	ActionBaseUpdated = "base_updated"

	ActionPurchaseCreated   = "purchase_created"
	ActionPurchaseUpdated   = "purchase_updated"
	ActionPurchaseApproved  = "purchase_approved"
	ActionPurchaseCancelled = "purchase_cancelled"
	ActionPurchaseReceived  = "purchase_received"
	ActionPurchaseDeleted   = "purchase_deleted"

	ActionTransferRequested = "transfer_requested"
	ActionTransferApproved  = "transfer_approved"
	ActionTransferRejected  = "transfer_rejected"
	ActionTransferDeparted  = "transfer_departed"
	ActionTransferCompleted = "transfer_completed"
	ActionTransferCancelled = "transfer_cancelled"
	ActionTransferFailed    = "transfer_failed"

	ActionAssetAssigned       = "asset_assigned"
	ActionAssetReturned       = "asset_returned"
	ActionAssetExpended       = "asset_expended"
	ActionAssetLost           = "asset_lost"
	ActionAssetDamaged        = "asset_damaged"
	ActionAssignmentUpdated   = "assignment_updated"
	ActionAssetMaintenance    = "asset_maintenance"
	ActionAssetRestored       = "asset_restored"
	ActionAssetDecommissioned = "asset_decommissioned"
	ActionAssetPhotoUpdated   = "asset_photo_updated"
)

var severities = map[string]string{
	"delete":                  model.SeverityCritical,
	ActionUserCreated:         model.SeverityCritical,
	ActionUserUpdated:         model.SeverityCritical,
	ActionUserDeleted:         model.SeverityCritical,
	ActionPurchaseDeleted:     model.SeverityCritical,
	ActionAssetExpended:       model.SeverityCritical,
	ActionAssetLost:           model.SeverityCritical,
	ActionAssetDecommissioned: model.SeverityCritical,

	"create":                model.SeverityHigh,
	"update":                model.SeverityHigh,
	ActionBaseCreated:       model.SeverityHigh,
	ActionBaseUpdated:       model.SeverityHigh,
	ActionPurchaseUpdated:   model.SeverityHigh,
	ActionPurchaseApproved:  model.SeverityHigh,
	ActionPurchaseReceived:  model.SeverityHigh,
	ActionTransferApproved:  model.SeverityHigh,
	ActionTransferCompleted: model.SeverityHigh,
	ActionTransferFailed:    model.SeverityHigh,
	ActionAssetAssigned:     model.SeverityHigh,
	ActionAssetDamaged:      model.SeverityHigh,
	ActionAssignmentUpdated: model.SeverityHigh,

	"read":                  model.SeverityMedium,
	ActionLogin:             model.SeverityMedium,
	ActionLogout:            model.SeverityMedium,
	ActionPurchaseCreated:   model.SeverityMedium,
	ActionTransferRequested: model.SeverityMedium,
	ActionTransferDeparted:  model.SeverityMedium,
}

// SeverityFor returns the severity tier of an action. Unlisted actions are low.
func SeverityFor(action string) string {
	if s, ok := severities[action]; ok {
		return s
	}
	return model.SeverityLow
}

// Event is what a workflow hands to the sink after its transaction commits.
type Event struct {
	ActorID     int64
	ActorBaseID int64
	Action      string
	Resource    string
	ResourceID  string
	Details     map[string]any
	At          time.Time
}

// Entry converts the event to its stored form.
func (e Event) Entry() model.AuditEntry {
	entry := model.AuditEntry{
		Action:     e.Action,
		Resource:   e.Resource,
		ResourceID: e.ResourceID,
		Severity:   SeverityFor(e.Action),
		CreatedAt:  e.At,
		Details:    json.RawMessage("{}"),
	}
	if e.ActorID > 0 {
		id := e.ActorID
		entry.ActorID = &id
	}
	if e.ActorBaseID > 0 {
		id := e.ActorBaseID
		entry.ActorBaseID = &id
	}
	if len(e.Details) > 0 {
		if b, err := json.Marshal(e.Details); err == nil {
			entry.Details = b
		}
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return entry
}

// Sink receives audit events. Implementations must not block for long and
// never report failure to the caller.
type Sink interface {
	Record(ctx context.Context, e Event)
}

// Writer persists one audit entry.
type Writer interface {
	Write(ctx context.Context, e model.AuditEntry) error
}

// StoreWriter writes entries to the audit_log table.
type StoreWriter struct {
	DB *sql.DB
}

// Write appends e to the audit log.
func (w StoreWriter) Write(ctx context.Context, e model.AuditEntry) error {
	return store.AppendAudit(ctx, w.DB, &e)
}

// Nop discards every event.
type Nop struct{}

// Record does nothing.
func (Nop) Record(context.Context, Event) {}

// Memory keeps events in memory. It is safe for concurrent use.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

// Record appends e.
func (m *Memory) Record(_ context.Context, e Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

// Events returns a copy of the recorded events.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

// Actions returns the recorded action names in order.
func (m *Memory) Actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.Action
	}
	return out
}
