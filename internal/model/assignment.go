package model

import (
	"fmt"
	"time"
)

// Assignment lends an asset to a person until it is reconciled.
type Assignment struct {
	ID                int64        `json:"id"`
	Code              string       `json:"code"`
	AssetID           int64        `json:"asset_id"`
	AssigneeID        int64        `json:"assignee_id"`
	AssignedBy        int64        `json:"assigned_by"`
	BaseID            int64        `json:"base_id"`
	AssignedAt        time.Time    `json:"assigned_at"`
	ExpectedReturn    *time.Time   `json:"expected_return,omitempty"`
	ActualReturn      *time.Time   `json:"actual_return,omitempty"`
	Status            string       `json:"status"`
	Purpose           string       `json:"purpose"`
	Mission           Mission      `json:"mission"`
	ConditionAssigned string       `json:"condition_assigned"`
	ConditionReturned string       `json:"condition_returned,omitempty"`
	Notes             string       `json:"notes,omitempty"`
	Expenditure       *Expenditure `json:"expenditure,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`

	// Joined fields (not always populated).
	AssetCode    string `json:"asset_code,omitempty"`
	AssigneeName string `json:"assignee_name,omitempty"`
}

// Mission is the operation an asset was assigned for.
type Mission struct {
	Name     string `json:"name,omitempty"`
	Code     string `json:"code,omitempty"`
	Location string `json:"location,omitempty"`
}

// Expenditure records how an assigned asset was consumed.
type Expenditure struct {
	At        time.Time `json:"at"`
	By        int64     `json:"expended_by"`
	Reason    string    `json:"reason"`
	Location  string    `json:"location,omitempty"`
	Mission   string    `json:"mission,omitempty"`
	WitnessID *int64    `json:"witness_id,omitempty"`
}

// Assignment statuses.
const (
	AssignmentStatusActive   = "active"
	AssignmentStatusReturned = "returned"
	AssignmentStatusExpended = "expended"
	AssignmentStatusLost     = "lost"
	AssignmentStatusDamaged  = "damaged"
)

// Asset conditions.
const (
	ConditionExcellent = "excellent"
	ConditionGood      = "good"
	ConditionFair      = "fair"
	ConditionPoor      = "poor"
	ConditionDamaged   = "damaged"
	ConditionDestroyed = "destroyed"
)

// ValidConditionAssigned reports whether c may be recorded when assigning.
func ValidConditionAssigned(c string) bool {
	switch c {
	case ConditionExcellent, ConditionGood, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

// ValidConditionReturned reports whether c may be recorded on return.
func ValidConditionReturned(c string) bool {
	return ValidConditionAssigned(c) || c == ConditionDamaged || c == ConditionDestroyed
}

// CloseEvent maps a closing outcome to the asset event it triggers.
func CloseEvent(outcome string) (string, error) {
	switch outcome {
	case AssignmentStatusReturned:
		return EventRelease, nil
	case AssignmentStatusExpended:
		return EventExpend, nil
	case AssignmentStatusLost:
		return EventLose, nil
	case AssignmentStatusDamaged:
		return EventDamage, nil
	}
	return "", fmt.Errorf("%w: unknown assignment outcome %q", ErrValidation, outcome)
}

// CheckActive returns an error wrapping ErrInvalidState unless the
// assignment is still active.
func (a *Assignment) CheckActive() error {
	if a.Status != AssignmentStatusActive {
		return fmt.Errorf("%w: assignment %s is %s", ErrInvalidState, a.Code, a.Status)
	}
	return nil
}
