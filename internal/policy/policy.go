// Package policy decides whether an actor may perform an action on a
// base-scoped resource. It performs no I/O.
package policy

import (
	"fmt"
	"slices"

	"github.com/erazemk/arsenal/internal/model"
)

// Actor is the authenticated caller of a ledger operation.
type Actor struct {
	UserID int64
	Role   string
	// BaseID is the actor's home base; 0 when the actor has none.
	BaseID int64
}

// IsAdmin reports whether the actor has the admin tier.
func (a Actor) IsAdmin() bool {
	return a.Role == model.RoleAdmin
}

// Action names an operation subject to authorization.
type Action string

// Actions.
const (
	ActionView Action = "view"

	ActionCreatePurchase  Action = "purchase.create"
	ActionUpdatePurchase  Action = "purchase.update"
	ActionApprovePurchase Action = "purchase.approve"
	ActionReceivePurchase Action = "purchase.receive"
	ActionDeletePurchase  Action = "purchase.delete"

	ActionCreateTransfer   Action = "transfer.create"
	ActionApproveTransfer  Action = "transfer.approve"
	ActionDepartTransfer   Action = "transfer.depart"
	ActionCompleteTransfer Action = "transfer.complete"
	ActionCancelTransfer   Action = "transfer.cancel"
	ActionFailTransfer     Action = "transfer.fail"

	ActionCreateAssignment Action = "assignment.create"
	ActionUpdateAssignment Action = "assignment.update"
	ActionReturnAssignment Action = "assignment.return"
	ActionExpendAssignment Action = "assignment.expend"
	ActionCloseAssignment  Action = "assignment.close"

	ActionUpdateAsset       Action = "asset.update"
	ActionMaintainAsset     Action = "asset.maintain"
	ActionDecommissionAsset Action = "asset.decommission"
)

// Deny reasons.
const (
	ReasonCrossBase        = "cross-base access denied"
	ReasonInsufficientRole = "insufficient role"
)

var approvers = []string{model.RoleAdmin, model.RoleCommander}

// allowSets lists the actions restricted to particular tiers regardless of
// base. Actions not listed are open to every known role.
var allowSets = map[Action][]string{
	ActionApprovePurchase:   approvers,
	ActionReceivePurchase:   approvers,
	ActionDeletePurchase:    {model.RoleAdmin},
	ActionApproveTransfer:   approvers,
	ActionDepartTransfer:    approvers,
	ActionCompleteTransfer:  approvers,
	ActionCancelTransfer:    approvers,
	ActionFailTransfer:      approvers,
	ActionMaintainAsset:     approvers,
	ActionDecommissionAsset: approvers,
}

// Target is the resource an action applies to. An actor matches the target
// when its home base equals any of the listed bases.
type Target struct {
	BaseIDs []int64
}

// Bases builds a target scoped to the given bases.
func Bases(ids ...int64) Target {
	return Target{BaseIDs: ids}
}

// Decision is the outcome of Authorize.
type Decision struct {
	Allowed bool
	Reason  string
}

// Err returns nil for an allow, or an error wrapping model.ErrAccessDenied.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return fmt.Errorf("%w: %s", model.ErrAccessDenied, d.Reason)
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Reason: reason} }

// Authorize decides whether actor may perform action on target.
func Authorize(actor Actor, action Action, target Target) Decision {
	if actor.IsAdmin() {
		return allow()
	}
	if !model.ValidRole(actor.Role) {
		return deny(ReasonInsufficientRole)
	}

	if roles, ok := allowSets[action]; ok && !slices.Contains(roles, actor.Role) {
		return deny(ReasonInsufficientRole)
	}

	if len(target.BaseIDs) == 0 {
		return allow()
	}
	if actor.BaseID == 0 {
		return deny(ReasonCrossBase)
	}
	for _, id := range target.BaseIDs {
		if id == actor.BaseID {
			return allow()
		}
	}
	return deny(ReasonCrossBase)
}

// Check is Authorize followed by Decision.Err.
func Check(actor Actor, action Action, target Target) error {
	return Authorize(actor, action, target).Err()
}

// ScopeBase returns the base a listing should be restricted to: the
// requested base for admins, the home base for everyone else. A non-admin
// asking for another base is denied.
func ScopeBase(actor Actor, requested int64) (int64, error) {
	if actor.IsAdmin() {
		return requested, nil
	}
	if requested != 0 && requested != actor.BaseID {
		return 0, deny(ReasonCrossBase).Err()
	}
	if actor.BaseID == 0 {
		return 0, deny(ReasonCrossBase).Err()
	}
	return actor.BaseID, nil
}
