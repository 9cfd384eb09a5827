package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/arsenal/internal/audit"
	"github.com/erazemk/arsenal/internal/dbx"
	"github.com/erazemk/arsenal/internal/ids"
	"github.com/erazemk/arsenal/internal/model"
	"github.com/erazemk/arsenal/internal/policy"
	"github.com/erazemk/arsenal/internal/store"
)

// NewPurchase is the input of CreatePurchase. TotalAmount, when present, is
// checked against the computed total.
type NewPurchase struct {
	BaseID      int64                `json:"base_id"`
	Items       []model.PurchaseItem `json:"items"`
	Supplier    model.Supplier       `json:"supplier"`
	OrderNumber string               `json:"order_number"`
	OrderDate   *time.Time           `json:"order_date,omitempty"`
	TotalAmount *decimal.Decimal     `json:"total_amount,omitempty"`
	Notes       string               `json:"notes,omitempty"`
}

// PurchaseUpdate changes a pending purchase. Nil fields are left as they are.
type PurchaseUpdate struct {
	Items       []model.PurchaseItem `json:"items,omitempty"`
	Supplier    *model.Supplier      `json:"supplier,omitempty"`
	OrderNumber *string              `json:"order_number,omitempty"`
	OrderDate   *time.Time           `json:"order_date,omitempty"`
	TotalAmount *decimal.Decimal     `json:"total_amount,omitempty"`
	Notes       *string              `json:"notes,omitempty"`
}

// validatePurchase numbers the lines, checks every field and returns the
// computed total.
func validatePurchase(p *model.Purchase, claimed *decimal.Decimal) (decimal.Decimal, error) {
	if len(p.Items) == 0 {
		return decimal.Zero, invalid("purchase needs at least one line")
	}
	for i := range p.Items {
		p.Items[i].Line = i + 1
		if err := p.Items[i].Validate(); err != nil {
			return decimal.Zero, err
		}
		p.Items[i].TotalCost = p.Items[i].LineTotal()
	}
	if n := model.TotalUnits(p.Items); n > model.MaxUnitsPerPurchase {
		return decimal.Zero, invalid("purchase of %d units exceeds %d", n, model.MaxUnitsPerPurchase)
	}
	if strings.TrimSpace(p.Supplier.Name) == "" {
		return decimal.Zero, invalid("supplier name required")
	}
	if strings.TrimSpace(p.OrderNumber) == "" {
		return decimal.Zero, invalid("order number required")
	}

	total := model.ComputeTotal(p.Items)
	if claimed != nil && !claimed.Equal(total) {
		return decimal.Zero, invalid("total amount %s does not match computed %s", claimed, total)
	}
	return total, nil
}

// CreatePurchase records a pending purchase for a base.
func (l *Ledger) CreatePurchase(ctx context.Context, actor policy.Actor, in NewPurchase) (*model.Purchase, error) {
	if err := policy.Check(actor, policy.ActionCreatePurchase, policy.Bases(in.BaseID)); err != nil {
		return nil, err
	}

	now := l.now()
	p := &model.Purchase{
		Code:        l.IDs.NewCode(ids.PrefixPurchase),
		BaseID:      in.BaseID,
		Items:       append([]model.PurchaseItem(nil), in.Items...),
		Supplier:    in.Supplier,
		OrderNumber: strings.TrimSpace(in.OrderNumber),
		OrderDate:   orNow(in.OrderDate, now),
		Status:      model.PurchaseStatusPending,
		Notes:       in.Notes,
		CreatedBy:   actor.UserID,
	}
	total, err := validatePurchase(p, in.TotalAmount)
	if err != nil {
		return nil, err
	}
	p.TotalAmount = total

	base, err := store.GetBase(ctx, l.DB, in.BaseID)
	if err != nil {
		return nil, err
	}
	if base == nil {
		return nil, notFound("base", in.BaseID)
	}

	err = l.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		id, err := store.InsertPurchase(ctx, tx, p)
		p.ID = id
		return err
	})
	if err != nil {
		return nil, err
	}

	l.emit(ctx, actor, audit.ActionPurchaseCreated, model.ResourcePurchase, p.Code, map[string]any{
		"base_id": p.BaseID,
		"total":   p.TotalAmount.String(),
		"units":   p.UnitCount(),
	})
	return store.GetPurchase(ctx, l.DB, p.ID)
}

// GetPurchase returns a purchase the actor may see.
func (l *Ledger) GetPurchase(ctx context.Context, actor policy.Actor, id int64) (*model.Purchase, error) {
	p, err := l.loadPurchase(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(actor, policy.ActionView, policy.Bases(p.BaseID)); err != nil {
		return nil, err
	}
	return p, nil
}

// ListPurchases lists purchases; non-admins only see their own base.
func (l *Ledger) ListPurchases(ctx context.Context, actor policy.Actor, f store.PurchaseFilter) ([]model.Purchase, error) {
	base, err := policy.ScopeBase(actor, f.BaseID)
	if err != nil {
		return nil, err
	}
	f.BaseID = base
	return store.ListPurchases(ctx, l.DB, f)
}

// UpdatePurchase replaces the mutable fields of a pending purchase.
func (l *Ledger) UpdatePurchase(ctx context.Context, actor policy.Actor, id int64, u PurchaseUpdate) (*model.Purchase, error) {
	p, err := l.loadPurchase(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(actor, policy.ActionUpdatePurchase, policy.Bases(p.BaseID)); err != nil {
		return nil, err
	}
	if p.Status != model.PurchaseStatusPending {
		return nil, invalidState("purchase %s is %s, only pending purchases can be edited", p.Code, p.Status)
	}

	if u.Items != nil {
		p.Items = u.Items
	}
	if u.Supplier != nil {
		p.Supplier = *u.Supplier
	}
	if u.OrderNumber != nil {
		p.OrderNumber = strings.TrimSpace(*u.OrderNumber)
	}
	if u.OrderDate != nil {
		p.OrderDate = u.OrderDate.UTC()
	}
	if u.Notes != nil {
		p.Notes = *u.Notes
	}
	total, err := validatePurchase(p, u.TotalAmount)
	if err != nil {
		return nil, err
	}
	p.TotalAmount = total

	err = l.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return store.ReplacePendingPurchase(ctx, tx, p)
	})
	if err != nil {
		return nil, err
	}

	l.emit(ctx, actor, audit.ActionPurchaseUpdated, model.ResourcePurchase, p.Code, map[string]any{
		"total": p.TotalAmount.String(),
		"units": p.UnitCount(),
	})
	return store.GetPurchase(ctx, l.DB, p.ID)
}

// ApprovePurchase moves a purchase to approved or cancelled. Approval is
// only possible from pending; cancellation from pending or approved.
func (l *Ledger) ApprovePurchase(ctx context.Context, actor policy.Actor, id int64, newStatus, notes string) (*model.Purchase, error) {
	if newStatus != model.PurchaseStatusApproved && newStatus != model.PurchaseStatusCancelled {
		return nil, invalid("status must be %s or %s", model.PurchaseStatusApproved, model.PurchaseStatusCancelled)
	}

	p, err := l.loadPurchase(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(actor, policy.ActionApprovePurchase, policy.Bases(p.BaseID)); err != nil {
		return nil, err
	}
	if p.Status != model.PurchaseStatusPending && p.Status != model.PurchaseStatusApproved {
		return nil, invalidState("purchase %s is %s", p.Code, p.Status)
	}
	if p.Status == newStatus {
		return nil, invalidState("purchase %s is already %s", p.Code, p.Status)
	}

	if err := store.SetPurchaseStatus(ctx, l.DB, p.ID, p.Status, newStatus, actor.UserID, l.now(), notes); err != nil {
		return nil, err
	}

	action := audit.ActionPurchaseApproved
	if newStatus == model.PurchaseStatusCancelled {
		action = audit.ActionPurchaseCancelled
	}
	l.emit(ctx, actor, action, model.ResourcePurchase, p.Code, map[string]any{
		"from":  p.Status,
		"to":    newStatus,
		"notes": notes,
	})
	return store.GetPurchase(ctx, l.DB, p.ID)
}

// ReceivePurchase marks an approved purchase received and mints one asset
// per unit of every line at the purchase's base. Either every asset is
// created and the purchase is received, or nothing changes.
func (l *Ledger) ReceivePurchase(ctx context.Context, actor policy.Actor, id int64, deliveryDate *time.Time, notes string) (*model.Purchase, []model.Asset, error) {
	p, err := l.loadPurchase(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if err := policy.Check(actor, policy.ActionReceivePurchase, policy.Bases(p.BaseID)); err != nil {
		return nil, nil, err
	}
	if p.Status != model.PurchaseStatusApproved {
		return nil, nil, invalidState("purchase %s is %s, only approved purchases can be received", p.Code, p.Status)
	}

	delivered := orNow(deliveryDate, l.now())
	err = l.inTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := store.MarkPurchaseReceived(ctx, tx, p.ID, delivered, notes); err != nil {
			return err
		}
		for _, it := range p.Items {
			for unit := 1; unit <= it.Quantity; unit++ {
				a := &model.Asset{
					Code:     ids.AssetCode(model.AssetTypePrefix(it.AssetType), p.Code, it.Line, unit),
					Name:     it.Name,
					Type:     it.AssetType,
					Category: it.Category,
					Specs:    it.Specs,
					BaseID:   p.BaseID,
					Status:   model.AssetStatusAvailable,
					Provenance: model.Provenance{
						PurchaseID:   p.ID,
						PurchaseCode: p.Code,
						Date:         p.OrderDate,
						UnitCost:     it.UnitCost,
						Supplier:     p.Supplier.Name,
						OrderNumber:  p.OrderNumber,
					},
				}
				if _, err := store.InsertAsset(ctx, tx, a); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	assets, err := store.ListAssets(ctx, l.DB, store.AssetFilter{PurchaseID: p.ID})
	if err != nil {
		return nil, nil, err
	}
	l.emit(ctx, actor, audit.ActionPurchaseReceived, model.ResourcePurchase, p.Code, map[string]any{
		"from":          p.Status,
		"to":            model.PurchaseStatusReceived,
		"assets":        len(assets),
		"delivery_date": delivered,
	})

	received, err := store.GetPurchase(ctx, l.DB, p.ID)
	if err != nil {
		return nil, nil, err
	}
	return received, assets, nil
}

// DeletePurchase removes a pending purchase.
func (l *Ledger) DeletePurchase(ctx context.Context, actor policy.Actor, id int64) error {
	p, err := l.loadPurchase(ctx, id)
	if err != nil {
		return err
	}
	if err := policy.Check(actor, policy.ActionDeletePurchase, policy.Bases(p.BaseID)); err != nil {
		return err
	}
	if p.Status != model.PurchaseStatusPending {
		return invalidState("purchase %s is %s, only pending purchases can be deleted", p.Code, p.Status)
	}

	if err := store.DeletePendingPurchase(ctx, l.DB, p.ID); err != nil {
		return err
	}
	l.emit(ctx, actor, audit.ActionPurchaseDeleted, model.ResourcePurchase, p.Code, map[string]any{
		"base_id": p.BaseID,
		"total":   p.TotalAmount.String(),
	})
	return nil
}

func (l *Ledger) loadPurchase(ctx context.Context, id int64) (*model.Purchase, error) {
	p, err := store.GetPurchase(ctx, l.DB, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, notFound("purchase", id)
	}
	return p, nil
}
