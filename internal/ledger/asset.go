package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/erazemk/arsenal/internal/audit"
	"github.com/erazemk/arsenal/internal/dbx"
	"github.com/erazemk/arsenal/internal/imaging"
	"github.com/erazemk/arsenal/internal/model"
	"github.com/erazemk/arsenal/internal/policy"
	"github.com/erazemk/arsenal/internal/store"
)

// GetAsset returns an asset the actor may see.
func (l *Ledger) GetAsset(ctx context.Context, actor policy.Actor, id int64) (*model.Asset, error) {
	a, err := l.loadAsset(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(actor, policy.ActionView, policy.Bases(a.BaseID)); err != nil {
		return nil, err
	}
	return a, nil
}

// GetAssetByCode returns an asset the actor may see, looked up by its code.
func (l *Ledger) GetAssetByCode(ctx context.Context, actor policy.Actor, code string) (*model.Asset, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, invalid("asset code required")
	}
	a, err := store.GetAssetByCode(ctx, l.DB, code)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("%w: asset %s", model.ErrNotFound, code)
	}
	if err := policy.Check(actor, policy.ActionView, policy.Bases(a.BaseID)); err != nil {
		return nil, err
	}
	return a, nil
}

// ListAssets lists assets; non-admins only see their own base.
func (l *Ledger) ListAssets(ctx context.Context, actor policy.Actor, f store.AssetFilter) ([]model.Asset, error) {
	base, err := policy.ScopeBase(actor, f.BaseID)
	if err != nil {
		return nil, err
	}
	f.BaseID = base
	return store.ListAssets(ctx, l.DB, f)
}

// SendToMaintenance takes an available asset out of service for repair.
func (l *Ledger) SendToMaintenance(ctx context.Context, actor policy.Actor, id int64, notes string) (*model.Asset, error) {
	return l.transition(ctx, actor, id, model.EventMaintain, policy.ActionMaintainAsset, audit.ActionAssetMaintenance, notes)
}

// ReturnFromMaintenance makes an asset in maintenance available again.
func (l *Ledger) ReturnFromMaintenance(ctx context.Context, actor policy.Actor, id int64, notes string) (*model.Asset, error) {
	return l.transition(ctx, actor, id, model.EventRestore, policy.ActionMaintainAsset, audit.ActionAssetRestored, notes)
}

// Decommission permanently retires an asset that is not assigned.
func (l *Ledger) Decommission(ctx context.Context, actor policy.Actor, id int64, notes string) (*model.Asset, error) {
	return l.transition(ctx, actor, id, model.EventDecommission, policy.ActionDecommissionAsset, audit.ActionAssetDecommissioned, notes)
}

// transition applies a registry event outside any workflow. Assets held by
// an open transfer are refused; the write is a compare-and-set on the
// asset's version.
func (l *Ledger) transition(ctx context.Context, actor policy.Actor, id int64, kind string, action policy.Action, event, notes string) (*model.Asset, error) {
	a, err := l.loadAsset(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(actor, action, policy.Bases(a.BaseID)); err != nil {
		return nil, err
	}

	next, err := model.ApplyTransition(*a, model.AssetEvent{Kind: kind})
	if err != nil {
		return nil, err
	}
	l.stampRetired(&next)
	err = l.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := checkNotHeld(ctx, tx, a); err != nil {
			return err
		}
		_, err := store.UpdateAssetState(ctx, tx, a, next)
		return err
	})
	if err != nil {
		return nil, err
	}

	l.emit(ctx, actor, event, model.ResourceAsset, a.Code, map[string]any{
		"from":  a.Status,
		"to":    next.Status,
		"notes": notes,
	})
	return store.GetAsset(ctx, l.DB, a.ID)
}

// SetAssetPhoto normalizes data with the imaging package and stores it as
// the asset's photo.
func (l *Ledger) SetAssetPhoto(ctx context.Context, actor policy.Actor, id int64, data []byte) (*model.Asset, error) {
	a, err := l.loadAsset(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(actor, policy.ActionUpdateAsset, policy.Bases(a.BaseID)); err != nil {
		return nil, err
	}

	photo, err := imaging.ProcessPhoto(data)
	if errors.Is(err, imaging.ErrUnsupported) {
		return nil, fmt.Errorf("%w: %v", model.ErrValidation, err)
	}
	if err != nil {
		return nil, err
	}
	if err := store.SetAssetPhoto(ctx, l.DB, a.ID, photo.Data, photo.MIME); err != nil {
		return nil, err
	}

	l.emit(ctx, actor, audit.ActionAssetPhotoUpdated, model.ResourceAsset, a.Code, map[string]any{
		"bytes":  len(photo.Data),
		"width":  photo.Width,
		"height": photo.Height,
	})
	return store.GetAsset(ctx, l.DB, a.ID)
}

// GetAssetPhoto returns an asset's photo and its MIME type.
func (l *Ledger) GetAssetPhoto(ctx context.Context, actor policy.Actor, id int64) ([]byte, string, error) {
	a, err := l.loadAsset(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if err := policy.Check(actor, policy.ActionView, policy.Bases(a.BaseID)); err != nil {
		return nil, "", err
	}

	data, mime, err := store.GetAssetPhoto(ctx, l.DB, a.ID)
	if err != nil {
		return nil, "", err
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: asset %s has no photo", model.ErrNotFound, a.Code)
	}
	return data, mime, nil
}

// BaseSummary reports a base's holdings, balances and movement over an
// optional period, narrowed to one asset type when the filter names one.
func (l *Ledger) BaseSummary(ctx context.Context, actor policy.Actor, baseID int64, f store.SummaryFilter) (*model.BaseSummary, error) {
	if err := policy.Check(actor, policy.ActionView, policy.Bases(baseID)); err != nil {
		return nil, err
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, invalid("period ends before it starts")
	}
	if f.AssetType != "" && !model.ValidAssetType(f.AssetType) {
		return nil, invalid("invalid asset type %q", f.AssetType)
	}

	b, err := store.GetBase(ctx, l.DB, baseID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, notFound("base", baseID)
	}
	return store.GetBaseSummary(ctx, l.DB, baseID, f)
}

func (l *Ledger) loadAsset(ctx context.Context, id int64) (*model.Asset, error) {
	a, err := store.GetAsset(ctx, l.DB, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, notFound("asset", id)
	}
	return a, nil
}
