package model

import (
	"fmt"
	"time"
)

// Transfer moves existing assets from one base to another.
type Transfer struct {
	ID          int64           `json:"id"`
	Code        string          `json:"code"`
	FromBaseID  int64           `json:"from_base_id"`
	ToBaseID    int64           `json:"to_base_id"`
	Lines       []TransferLine  `json:"assets"`
	Reason      string          `json:"reason,omitempty"`
	Priority    string          `json:"priority"`
	Transport   Transport       `json:"transport"`
	Status      string          `json:"status"`
	RequestedBy int64           `json:"requested_by"`
	ApprovedBy  *int64          `json:"approved_by,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	Timeline    []TimelineEntry `json:"timeline"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	// Joined fields (not always populated).
	FromBaseName string `json:"from_base_name,omitempty"`
	ToBaseName   string `json:"to_base_name,omitempty"`
}

// TransferLine references one asset, with a snapshot of its identity taken
// when the transfer was requested.
type TransferLine struct {
	Line      int    `json:"line"`
	AssetID   int64  `json:"asset_id"`
	AssetCode string `json:"asset_code"`
	AssetType string `json:"asset_type"`
	AssetName string `json:"asset_name"`
	Quantity  int    `json:"quantity"`
}

// Transport describes how a transfer is shipped.
type Transport struct {
	Method             string     `json:"method"`
	Carrier            string     `json:"carrier,omitempty"`
	TrackingNumber     string     `json:"tracking_number,omitempty"`
	EstimatedDeparture *time.Time `json:"estimated_departure,omitempty"`
	EstimatedArrival   *time.Time `json:"estimated_arrival,omitempty"`
	ActualDeparture    *time.Time `json:"actual_departure,omitempty"`
	ActualArrival      *time.Time `json:"actual_arrival,omitempty"`
}

// TimelineEntry records one transition of a transfer.
type TimelineEntry struct {
	Action  string    `json:"action"`
	ActorID int64     `json:"actor_id"`
	Note    string    `json:"note,omitempty"`
	At      time.Time `json:"at"`
}

// Transfer statuses.
const (
	TransferStatusPending   = "pending"
	TransferStatusApproved  = "approved"
	TransferStatusInTransit = "in-transit"
	TransferStatusCompleted = "completed"
	TransferStatusCancelled = "cancelled"
	TransferStatusRejected  = "rejected"
	TransferStatusFailed    = "failed"
)

// Transfer actions, also used as timeline entry names.
const (
	TransferActionRequest  = "requested"
	TransferActionApprove  = "approved"
	TransferActionReject   = "rejected"
	TransferActionDepart   = "departed"
	TransferActionComplete = "completed"
	TransferActionCancel   = "cancelled"
	TransferActionFail     = "failed"
)

// Transfer priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Transport methods.
const (
	TransportGround = "ground"
	TransportAir    = "air"
	TransportSea    = "sea"
)

// ValidPriority reports whether p is a known priority.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// ValidTransportMethod reports whether m is a known transport method.
func ValidTransportMethod(m string) bool {
	switch m {
	case TransportGround, TransportAir, TransportSea:
		return true
	}
	return false
}

var transferTransitions = map[string]map[string]string{
	TransferActionApprove:  {TransferStatusPending: TransferStatusApproved},
	TransferActionReject:   {TransferStatusPending: TransferStatusRejected},
	TransferActionDepart:   {TransferStatusApproved: TransferStatusInTransit},
	TransferActionComplete: {TransferStatusInTransit: TransferStatusCompleted},
	TransferActionCancel: {
		TransferStatusPending:  TransferStatusCancelled,
		TransferStatusApproved: TransferStatusCancelled,
	},
	// A shipment that never arrives. Its assets were not relocated, so they
	// stay on the source base's books.
	TransferActionFail: {TransferStatusInTransit: TransferStatusFailed},
}

// NextTransferStatus returns the status a transfer reaches when action is
// applied from status, or an error wrapping ErrInvalidState.
func NextTransferStatus(status, action string) (string, error) {
	next, ok := transferTransitions[action][status]
	if !ok && TerminalTransferStatus(status) {
		return "", fmt.Errorf("%w: transfer is already %s and closed", ErrInvalidState, status)
	}
	if !ok {
		return "", fmt.Errorf("%w: transfer is %s, cannot apply %q", ErrInvalidState, status, action)
	}
	return next, nil
}

// OpenTransferStatuses are the statuses in which a transfer holds its
// assets.
var OpenTransferStatuses = []string{TransferStatusPending, TransferStatusApproved, TransferStatusInTransit}

// TerminalTransferStatus reports whether no transition leaves status.
func TerminalTransferStatus(status string) bool {
	switch status {
	case TransferStatusCompleted, TransferStatusCancelled, TransferStatusRejected, TransferStatusFailed:
		return true
	}
	return false
}
