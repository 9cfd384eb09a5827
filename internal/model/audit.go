package model

import (
	"encoding/json"
	"time"
)

// AuditEntry is an immutable record of a state-changing operation.
type AuditEntry struct {
	ID          int64           `json:"id"`
	ActorID     *int64          `json:"actor_id,omitempty"`
	ActorBaseID *int64          `json:"actor_base_id,omitempty"`
	Action      string          `json:"action"`
	Resource    string          `json:"resource"`
	ResourceID  string          `json:"resource_id,omitempty"`
	Details     json.RawMessage `json:"details"`
	Severity    string          `json:"severity"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Audit severities.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Audited resource kinds.
const (
	ResourceAsset      = "asset"
	ResourcePurchase   = "purchase"
	ResourceTransfer   = "transfer"
	ResourceAssignment = "assignment"
	ResourceUser       = "user"
	ResourceBase       = "base"
)
