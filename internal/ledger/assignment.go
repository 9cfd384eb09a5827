package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/erazemk/arsenal/internal/audit"
	"github.com/erazemk/arsenal/internal/dbx"
	"github.com/erazemk/arsenal/internal/ids"
	"github.com/erazemk/arsenal/internal/model"
	"github.com/erazemk/arsenal/internal/policy"
	"github.com/erazemk/arsenal/internal/store"
)

// NewAssignment is the input of CreateAssignment.
type NewAssignment struct {
	AssetID        int64         `json:"asset_id"`
	AssigneeID     int64         `json:"assignee_id"`
	ExpectedReturn *time.Time    `json:"expected_return,omitempty"`
	Purpose        string        `json:"purpose,omitempty"`
	Mission        model.Mission `json:"mission"`
	Condition      string        `json:"condition_assigned,omitempty"`
	Notes          string        `json:"notes,omitempty"`
}

// Return is the input of ReturnAsset and CloseAssignment.
type Return struct {
	At        *time.Time `json:"actual_return,omitempty"`
	Condition string     `json:"condition_returned"`
	Notes     string     `json:"notes,omitempty"`
}

// Expend is the input of ExpendAsset.
type Expend struct {
	At        *time.Time `json:"expended_at,omitempty"`
	Reason    string     `json:"reason"`
	Location  string     `json:"location,omitempty"`
	Mission   string     `json:"mission,omitempty"`
	WitnessID *int64     `json:"witness_id,omitempty"`
	Notes     string     `json:"notes,omitempty"`
}

// AssignmentUpdate is the mutable surface of an active assignment. Nil
// fields are left as they are.
type AssignmentUpdate struct {
	ExpectedReturn *time.Time     `json:"expected_return,omitempty"`
	Purpose        *string        `json:"purpose,omitempty"`
	Mission        *model.Mission `json:"mission,omitempty"`
	Notes          *string        `json:"notes,omitempty"`
}

// CreateAssignment hands an available asset to a member of personnel. The
// asset becomes assigned in the same transaction that records the
// assignment.
func (l *Ledger) CreateAssignment(ctx context.Context, actor policy.Actor, in NewAssignment) (*model.Assignment, error) {
	a, err := l.loadAsset(ctx, in.AssetID)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(actor, policy.ActionCreateAssignment, policy.Bases(a.BaseID)); err != nil {
		return nil, err
	}

	assignee, err := l.loadUser(ctx, in.AssigneeID)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(actor, policy.ActionCreateAssignment, policy.Bases(assignee.HomeBase())); err != nil {
		return nil, err
	}

	if in.Condition == "" {
		in.Condition = model.ConditionGood
	}
	if !model.ValidConditionAssigned(in.Condition) {
		return nil, invalid("invalid condition %q", in.Condition)
	}

	next, err := model.ApplyTransition(*a, model.AssetEvent{Kind: model.EventAssign, Custodian: assignee.ID})
	if err != nil {
		return nil, err
	}

	s := &model.Assignment{
		Code:              l.IDs.NewCode(ids.PrefixAssignment),
		AssetID:           a.ID,
		AssigneeID:        assignee.ID,
		AssignedBy:        actor.UserID,
		BaseID:            a.BaseID,
		AssignedAt:        l.now(),
		ExpectedReturn:    in.ExpectedReturn,
		Status:            model.AssignmentStatusActive,
		Purpose:           strings.TrimSpace(in.Purpose),
		Mission:           in.Mission,
		ConditionAssigned: in.Condition,
		Notes:             in.Notes,
	}

	err = l.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := checkNotHeld(ctx, tx, a); err != nil {
			return err
		}
		if _, err := store.UpdateAssetState(ctx, tx, a, next); err != nil {
			return err
		}
		id, err := store.InsertAssignment(ctx, tx, s)
		s.ID = id
		return err
	})
	if err != nil {
		return nil, err
	}

	l.emit(ctx, actor, audit.ActionAssetAssigned, model.ResourceAssignment, s.Code, map[string]any{
		"asset":       a.Code,
		"assignee_id": assignee.ID,
		"from":        a.Status,
		"to":          next.Status,
	})
	return store.GetAssignment(ctx, l.DB, s.ID)
}

// ReturnAsset closes an active assignment and makes the asset available
// again.
func (l *Ledger) ReturnAsset(ctx context.Context, actor policy.Actor, id int64, r Return) (*model.Assignment, error) {
	if !model.ValidConditionReturned(r.Condition) {
		return nil, invalid("invalid return condition %q", r.Condition)
	}
	return l.finish(ctx, actor, id, model.AssignmentStatusReturned, policy.ActionReturnAssignment,
		audit.ActionAssetReturned, func(s *model.Assignment) error {
			at := orNow(r.At, l.now())
			s.ActualReturn = &at
			s.ConditionReturned = r.Condition
			if r.Notes != "" {
				s.Notes = r.Notes
			}
			return nil
		})
}

// ExpendAsset records that an assigned asset was consumed. The asset
// becomes expended, which is terminal.
func (l *Ledger) ExpendAsset(ctx context.Context, actor policy.Actor, id int64, e Expend) (*model.Assignment, error) {
	if strings.TrimSpace(e.Reason) == "" {
		return nil, invalid("expenditure reason required")
	}
	if e.WitnessID != nil {
		if _, err := l.loadUser(ctx, *e.WitnessID); err != nil {
			return nil, err
		}
	}

	return l.finish(ctx, actor, id, model.AssignmentStatusExpended, policy.ActionExpendAssignment,
		audit.ActionAssetExpended, func(s *model.Assignment) error {
			at := orNow(e.At, l.now())
			s.ActualReturn = &at
			s.Expenditure = &model.Expenditure{
				At:        at,
				By:        actor.UserID,
				Reason:    strings.TrimSpace(e.Reason),
				Location:  e.Location,
				Mission:   e.Mission,
				WitnessID: e.WitnessID,
			}
			if e.Notes != "" {
				s.Notes = e.Notes
			}
			return nil
		})
}

// CloseAssignment ends an active assignment as lost or damaged. A lost
// asset is decommissioned; a damaged one goes to maintenance.
func (l *Ledger) CloseAssignment(ctx context.Context, actor policy.Actor, id int64, outcome string, r Return) (*model.Assignment, error) {
	var event string
	switch outcome {
	case model.AssignmentStatusLost:
		event = audit.ActionAssetLost
	case model.AssignmentStatusDamaged:
		event = audit.ActionAssetDamaged
	default:
		return nil, invalid("outcome must be %s or %s", model.AssignmentStatusLost, model.AssignmentStatusDamaged)
	}
	if r.Condition != "" && !model.ValidConditionReturned(r.Condition) {
		return nil, invalid("invalid return condition %q", r.Condition)
	}

	return l.finish(ctx, actor, id, outcome, policy.ActionCloseAssignment, event, func(s *model.Assignment) error {
		at := orNow(r.At, l.now())
		s.ActualReturn = &at
		s.ConditionReturned = r.Condition
		if r.Notes != "" {
			s.Notes = r.Notes
		}
		return nil
	})
}

// finish moves an active assignment to outcome and applies the matching
// event to its asset, in one transaction.
func (l *Ledger) finish(ctx context.Context, actor policy.Actor, id int64, outcome string, action policy.Action, event string,
	apply func(s *model.Assignment) error) (*model.Assignment, error) {
	s, err := l.loadAssignment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(actor, action, policy.Bases(s.BaseID)); err != nil {
		return nil, err
	}
	if err := s.CheckActive(); err != nil {
		return nil, err
	}

	a, err := l.loadAsset(ctx, s.AssetID)
	if err != nil {
		return nil, err
	}
	kind, err := model.CloseEvent(outcome)
	if err != nil {
		return nil, err
	}
	next, err := model.ApplyTransition(*a, model.AssetEvent{Kind: kind})
	if err != nil {
		return nil, err
	}
	l.stampRetired(&next)

	s.Status = outcome
	if err := apply(s); err != nil {
		return nil, err
	}

	err = l.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := store.UpdateAssetState(ctx, tx, a, next); err != nil {
			return err
		}
		return store.CloseAssignment(ctx, tx, s)
	})
	if err != nil {
		return nil, err
	}

	details := map[string]any{
		"asset":  a.Code,
		"from":   a.Status,
		"to":     next.Status,
		"status": outcome,
	}
	if s.Expenditure != nil {
		details["reason"] = s.Expenditure.Reason
		details["location"] = s.Expenditure.Location
	}
	l.emit(ctx, actor, event, model.ResourceAssignment, s.Code, details)
	return store.GetAssignment(ctx, l.DB, s.ID)
}

// UpdateAssignment changes the expected return, purpose, mission or notes
// of an active assignment.
func (l *Ledger) UpdateAssignment(ctx context.Context, actor policy.Actor, id int64, u AssignmentUpdate) (*model.Assignment, error) {
	s, err := l.loadAssignment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(actor, policy.ActionUpdateAssignment, policy.Bases(s.BaseID)); err != nil {
		return nil, err
	}
	if err := s.CheckActive(); err != nil {
		return nil, err
	}

	if u.ExpectedReturn != nil {
		t := u.ExpectedReturn.UTC()
		s.ExpectedReturn = &t
	}
	if u.Purpose != nil {
		s.Purpose = strings.TrimSpace(*u.Purpose)
	}
	if u.Mission != nil {
		s.Mission = *u.Mission
	}
	if u.Notes != nil {
		s.Notes = *u.Notes
	}

	if err := store.UpdateActiveAssignment(ctx, l.DB, s); err != nil {
		return nil, err
	}
	l.emit(ctx, actor, audit.ActionAssignmentUpdated, model.ResourceAssignment, s.Code, map[string]any{
		"asset": s.AssetCode,
	})
	return store.GetAssignment(ctx, l.DB, s.ID)
}

// GetAssignment returns an assignment the actor may see.
func (l *Ledger) GetAssignment(ctx context.Context, actor policy.Actor, id int64) (*model.Assignment, error) {
	s, err := l.loadAssignment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(actor, policy.ActionView, policy.Bases(s.BaseID)); err != nil {
		return nil, err
	}
	return s, nil
}

// ListAssignments lists assignments; non-admins only see their own base.
func (l *Ledger) ListAssignments(ctx context.Context, actor policy.Actor, f store.AssignmentFilter) ([]model.Assignment, error) {
	base, err := policy.ScopeBase(actor, f.BaseID)
	if err != nil {
		return nil, err
	}
	f.BaseID = base
	return store.ListAssignments(ctx, l.DB, f)
}

func (l *Ledger) loadAssignment(ctx context.Context, id int64) (*model.Assignment, error) {
	s, err := store.GetAssignment(ctx, l.DB, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, notFound("assignment", id)
	}
	return s, nil
}

// Assignees lists the personnel the actor may hand assets to. Non-admins
// only see their own base; an admin sees everyone unless a base is named.
func (l *Ledger) Assignees(ctx context.Context, actor policy.Actor, baseID int64) ([]model.User, error) {
	base, err := policy.ScopeBase(actor, baseID)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(actor, policy.ActionCreateAssignment, policy.Target{}); err != nil {
		return nil, err
	}
	return store.ListUsers(ctx, l.DB, base)
}

func (l *Ledger) loadUser(ctx context.Context, id int64) (*model.User, error) {
	u, err := store.GetUser(ctx, l.DB, id)
	if err != nil {
		return nil, err
	}
	if u == nil || u.DeletedAt != nil {
		return nil, notFound("user", id)
	}
	return u, nil
}
