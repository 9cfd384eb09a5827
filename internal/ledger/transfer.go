package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/arsenal/internal/audit"
	"github.com/erazemk/arsenal/internal/dbx"
	"github.com/erazemk/arsenal/internal/ids"
	"github.com/erazemk/arsenal/internal/model"
	"github.com/erazemk/arsenal/internal/policy"
	"github.com/erazemk/arsenal/internal/store"
)

// NewTransfer is the input of CreateTransfer.
type NewTransfer struct {
	FromBaseID int64           `json:"from_base_id"`
	ToBaseID   int64           `json:"to_base_id"`
	Lines      []TransferAsset `json:"assets"`
	Reason     string          `json:"reason,omitempty"`
	Priority   string          `json:"priority,omitempty"`
	Transport  model.Transport `json:"transport"`
	Notes      string          `json:"notes,omitempty"`
}

// TransferAsset is one requested line of a transfer.
type TransferAsset struct {
	AssetID  int64 `json:"asset_id"`
	Quantity int   `json:"quantity,omitempty"`
}

// Departure is the input of DepartTransfer.
type Departure struct {
	At             *time.Time `json:"actual_departure,omitempty"`
	Carrier        string     `json:"carrier,omitempty"`
	TrackingNumber string     `json:"tracking_number,omitempty"`
	Notes          string     `json:"notes,omitempty"`
}

// CreateTransfer requests moving assets from one base to another. Every
// asset must be available at the source base; the request fails as a whole
// otherwise.
func (l *Ledger) CreateTransfer(ctx context.Context, actor policy.Actor, in NewTransfer) (*model.Transfer, error) {
	if err := policy.Check(actor, policy.ActionCreateTransfer, policy.Bases(in.FromBaseID)); err != nil {
		return nil, err
	}

	if in.FromBaseID == in.ToBaseID {
		return nil, invalid("source and destination base must differ")
	}
	if len(in.Lines) == 0 {
		return nil, invalid("transfer needs at least one asset")
	}
	seen := make(map[int64]bool, len(in.Lines))
	for _, ln := range in.Lines {
		if seen[ln.AssetID] {
			return nil, invalid("asset %d listed more than once", ln.AssetID)
		}
		seen[ln.AssetID] = true
		if ln.Quantity < 0 {
			return nil, invalid("asset %d: quantity must be at least 1", ln.AssetID)
		}
	}

	if in.Priority == "" {
		in.Priority = model.PriorityMedium
	}
	if !model.ValidPriority(in.Priority) {
		return nil, invalid("invalid priority %q", in.Priority)
	}
	if in.Transport.Method == "" {
		in.Transport.Method = model.TransportGround
	}
	if !model.ValidTransportMethod(in.Transport.Method) {
		return nil, invalid("invalid transport method %q", in.Transport.Method)
	}
	in.Transport.ActualDeparture = nil
	in.Transport.ActualArrival = nil

	for _, id := range []int64{in.FromBaseID, in.ToBaseID} {
		b, err := store.GetBase(ctx, l.DB, id)
		if err != nil {
			return nil, err
		}
		if b == nil {
			return nil, notFound("base", id)
		}
	}

	now := l.now()
	t := &model.Transfer{
		Code:        l.IDs.NewCode(ids.PrefixTransfer),
		FromBaseID:  in.FromBaseID,
		ToBaseID:    in.ToBaseID,
		Reason:      in.Reason,
		Priority:    in.Priority,
		Transport:   in.Transport,
		Status:      model.TransferStatusPending,
		RequestedBy: actor.UserID,
		Notes:       in.Notes,
		Timeline: []model.TimelineEntry{
			{Action: model.TransferActionRequest, ActorID: actor.UserID, Note: in.Reason, At: now},
		},
	}

	err := l.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		assets := make([]*model.Asset, len(in.Lines))
		var missing []string
		for i, ln := range in.Lines {
			a, err := store.GetAsset(ctx, tx, ln.AssetID)
			if err != nil {
				return err
			}
			if a == nil {
				missing = append(missing, fmt.Sprint(ln.AssetID))
			}
			assets[i] = a
		}
		if len(missing) > 0 {
			return fmt.Errorf("%w: assets %s", model.ErrNotFound, strings.Join(missing, ", "))
		}
		if err := checkTransferable(assets, in.FromBaseID); err != nil {
			return err
		}
		if err := checkNotHeld(ctx, tx, assets...); err != nil {
			return err
		}

		for i, a := range assets {
			if _, err := store.TouchAsset(ctx, tx, a); err != nil {
				return err
			}
			qty := in.Lines[i].Quantity
			if qty == 0 {
				qty = 1
			}
			t.Lines = append(t.Lines, model.TransferLine{
				Line:      i + 1,
				AssetID:   a.ID,
				AssetCode: a.Code,
				AssetType: a.Type,
				AssetName: a.Name,
				Quantity:  qty,
			})
		}

		id, err := store.InsertTransfer(ctx, tx, t)
		t.ID = id
		return err
	})
	if err != nil {
		return nil, err
	}

	l.emit(ctx, actor, audit.ActionTransferRequested, model.ResourceTransfer, t.Code, map[string]any{
		"from_base_id": t.FromBaseID,
		"to_base_id":   t.ToBaseID,
		"assets":       lineCodes(t.Lines),
		"priority":     t.Priority,
	})
	return store.GetTransfer(ctx, l.DB, t.ID)
}

// checkTransferable reports every asset that cannot leave baseID, in one
// error.
func checkTransferable(assets []*model.Asset, baseID int64) error {
	var bad []string
	for _, a := range assets {
		if err := a.CheckTransferable(baseID); err != nil {
			reason := a.Status
			if a.Status == model.AssetStatusAvailable {
				reason = "not at source base"
			}
			bad = append(bad, fmt.Sprintf("%s (%s)", a.Code, reason))
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("%w: assets not transferable: %s", model.ErrInvalidState, strings.Join(bad, ", "))
	}
	return nil
}

// checkNotHeld rejects assets that an open transfer is holding. An asset
// stays held from the request until its transfer completes, fails or is
// cancelled or rejected.
func checkNotHeld(ctx context.Context, db dbx.DBTX, assets ...*model.Asset) error {
	var held []string
	for _, a := range assets {
		code, err := store.OpenTransferFor(ctx, db, a.ID)
		if err != nil {
			return err
		}
		if code != "" {
			held = append(held, fmt.Sprintf("%s (transfer %s)", a.Code, code))
		}
	}
	if len(held) > 0 {
		return invalidState("assets held by open transfers: %s", strings.Join(held, ", "))
	}
	return nil
}

// verifyLines re-reads the assets of t and checks they can still leave the
// source base.
func verifyLines(ctx context.Context, db dbx.DBTX, t *model.Transfer) ([]*model.Asset, error) {
	assets := make([]*model.Asset, len(t.Lines))
	for i, ln := range t.Lines {
		a, err := store.GetAsset(ctx, db, ln.AssetID)
		if err != nil {
			return nil, err
		}
		if a == nil {
			return nil, notFound("asset", ln.AssetID)
		}
		assets[i] = a
	}
	if err := checkTransferable(assets, t.FromBaseID); err != nil {
		return nil, err
	}
	return assets, nil
}

// GetTransfer returns a transfer the actor may see from either end.
func (l *Ledger) GetTransfer(ctx context.Context, actor policy.Actor, id int64) (*model.Transfer, error) {
	t, err := l.loadTransfer(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(actor, policy.ActionView, policy.Bases(t.FromBaseID, t.ToBaseID)); err != nil {
		return nil, err
	}
	return t, nil
}

// ListTransfers lists transfers touching a base; non-admins only see their
// own base.
func (l *Ledger) ListTransfers(ctx context.Context, actor policy.Actor, f store.TransferFilter) ([]model.Transfer, error) {
	base, err := policy.ScopeBase(actor, f.BaseID)
	if err != nil {
		return nil, err
	}
	f.BaseID = base
	return store.ListTransfers(ctx, l.DB, f)
}

// ApproveTransfer approves or rejects a pending transfer. Approval
// re-verifies that every asset is still available at the source base.
func (l *Ledger) ApproveTransfer(ctx context.Context, actor policy.Actor, id int64, decision, notes string) (*model.Transfer, error) {
	var action, event string
	switch decision {
	case model.TransferStatusApproved:
		action, event = model.TransferActionApprove, audit.ActionTransferApproved
	case model.TransferStatusRejected:
		action, event = model.TransferActionReject, audit.ActionTransferRejected
	default:
		return nil, invalid("decision must be %s or %s", model.TransferStatusApproved, model.TransferStatusRejected)
	}

	t, err := l.loadTransfer(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(actor, policy.ActionApproveTransfer, policy.Bases(t.FromBaseID, t.ToBaseID)); err != nil {
		return nil, err
	}

	return l.advanceTransfer(ctx, actor, t, action, event, notes, func(ctx context.Context, tx dbx.DBTX) error {
		approver := actor.UserID
		t.ApprovedBy = &approver
		if action != model.TransferActionApprove {
			return nil
		}
		_, err := verifyLines(ctx, tx, t)
		return err
	})
}

// DepartTransfer dispatches an approved transfer from its source base.
func (l *Ledger) DepartTransfer(ctx context.Context, actor policy.Actor, id int64, d Departure) (*model.Transfer, error) {
	t, err := l.loadTransfer(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(actor, policy.ActionDepartTransfer, policy.Bases(t.FromBaseID)); err != nil {
		return nil, err
	}

	return l.advanceTransfer(ctx, actor, t, model.TransferActionDepart, audit.ActionTransferDeparted, d.Notes, func(ctx context.Context, tx dbx.DBTX) error {
		at := orNow(d.At, l.now())
		t.Transport.ActualDeparture = &at
		if d.Carrier != "" {
			t.Transport.Carrier = d.Carrier
		}
		if d.TrackingNumber != "" {
			t.Transport.TrackingNumber = d.TrackingNumber
		}
		_, err := verifyLines(ctx, tx, t)
		return err
	})
}

// CompleteTransfer receives a transfer at its destination base. Every asset
// moves to the destination in one transaction; if any of them can no longer
// move, none do.
func (l *Ledger) CompleteTransfer(ctx context.Context, actor policy.Actor, id int64, arrival *time.Time, notes string) (*model.Transfer, error) {
	t, err := l.loadTransfer(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(actor, policy.ActionCompleteTransfer, policy.Bases(t.ToBaseID)); err != nil {
		return nil, err
	}

	return l.advanceTransfer(ctx, actor, t, model.TransferActionComplete, audit.ActionTransferCompleted, notes, func(ctx context.Context, tx dbx.DBTX) error {
		at := orNow(arrival, l.now())
		t.Transport.ActualArrival = &at

		assets, err := verifyLines(ctx, tx, t)
		if err != nil {
			return err
		}
		for _, a := range assets {
			next, err := model.ApplyTransition(*a, model.AssetEvent{Kind: model.EventRelocate, BaseID: t.ToBaseID})
			if err != nil {
				return err
			}
			if _, err := store.UpdateAssetState(ctx, tx, a, next); err != nil {
				return err
			}
		}
		return nil
	})
}

// CancelTransfer withdraws a transfer that has not departed. Assets are not
// touched; the cancellation releases them.
func (l *Ledger) CancelTransfer(ctx context.Context, actor policy.Actor, id int64, reason string) (*model.Transfer, error) {
	t, err := l.loadTransfer(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(actor, policy.ActionCancelTransfer, policy.Bases(t.FromBaseID)); err != nil {
		return nil, err
	}

	return l.advanceTransfer(ctx, actor, t, model.TransferActionCancel, audit.ActionTransferCancelled, reason, nil)
}

// FailTransfer closes an in-transit transfer whose shipment will not arrive.
// Either endpoint may record it. The assets were never relocated, so they
// remain on the source base's books and are released.
func (l *Ledger) FailTransfer(ctx context.Context, actor policy.Actor, id int64, reason string) (*model.Transfer, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, invalid("a reason is required")
	}
	t, err := l.loadTransfer(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(actor, policy.ActionFailTransfer, policy.Bases(t.FromBaseID, t.ToBaseID)); err != nil {
		return nil, err
	}

	return l.advanceTransfer(ctx, actor, t, model.TransferActionFail, audit.ActionTransferFailed, reason, nil)
}

// advanceTransfer applies action to t: it runs fn, then moves the stored
// status with a compare-and-set and appends the timeline entry, all in one
// transaction. The audit event follows the commit.
func (l *Ledger) advanceTransfer(ctx context.Context, actor policy.Actor, t *model.Transfer, action, event, note string,
	fn func(ctx context.Context, tx dbx.DBTX) error) (*model.Transfer, error) {
	from := t.Status
	next, err := model.NextTransferStatus(from, action)
	if err != nil && action == model.TransferActionComplete && l.DirectCompletion && from == model.TransferStatusApproved {
		next, err = model.TransferStatusCompleted, nil
	}
	if err != nil {
		return nil, fmt.Errorf("transfer %s: %w", t.Code, err)
	}

	err = l.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if fn != nil {
			if err := fn(ctx, tx); err != nil {
				return err
			}
		}
		t.Status = next
		if note != "" {
			t.Notes = note
		}
		if err := store.UpdateTransferStatus(ctx, tx, t, from); err != nil {
			return err
		}
		return store.AppendTimeline(ctx, tx, t.ID, model.TimelineEntry{
			Action:  action,
			ActorID: actor.UserID,
			Note:    note,
			At:      l.now(),
		})
	})
	if err != nil {
		return nil, err
	}

	l.emit(ctx, actor, event, model.ResourceTransfer, t.Code, map[string]any{
		"from":   from,
		"to":     next,
		"assets": lineCodes(t.Lines),
		"notes":  note,
	})
	return store.GetTransfer(ctx, l.DB, t.ID)
}

func (l *Ledger) loadTransfer(ctx context.Context, id int64) (*model.Transfer, error) {
	t, err := store.GetTransfer(ctx, l.DB, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, notFound("transfer", id)
	}
	return t, nil
}

func lineCodes(lines []model.TransferLine) []string {
	codes := make([]string, len(lines))
	for i, ln := range lines {
		codes[i] = ln.AssetCode
	}
	return codes
}
