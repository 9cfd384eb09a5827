package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/arsenal/internal/audit"
	"github.com/erazemk/arsenal/internal/db"
	"github.com/erazemk/arsenal/internal/ids"
	"github.com/erazemk/arsenal/internal/model"
	"github.com/erazemk/arsenal/internal/policy"
	"github.com/erazemk/arsenal/internal/store"
)

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fixture is a ledger over a fresh database with two bases, Alpha and
// Bravo, each staffed by a commander and an officer, plus an admin.
type fixture struct {
	l    *Ledger
	sink *audit.Memory

	alpha, bravo *model.Base

	admin, cmdA, offA, cmdB, offB policy.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	database := db.NewTestDB(t)

	f := &fixture{sink: &audit.Memory{}}
	f.l = New(database, &ids.Sequence{}, f.sink)
	f.l.Now = func() time.Time { return testTime }

	var err error
	f.alpha, err = store.CreateBase(ctx, database, "Alpha", model.Location{City: "Ljubljana", Country: "SI"})
	require.NoError(t, err)
	f.bravo, err = store.CreateBase(ctx, database, "Bravo", model.Location{City: "Maribor", Country: "SI"})
	require.NoError(t, err)

	f.admin = f.user(t, "admin", model.RoleAdmin, 0)
	f.cmdA = f.user(t, "cmd-alpha", model.RoleCommander, f.alpha.ID)
	f.offA = f.user(t, "off-alpha", model.RoleOfficer, f.alpha.ID)
	f.cmdB = f.user(t, "cmd-bravo", model.RoleCommander, f.bravo.ID)
	f.offB = f.user(t, "off-bravo", model.RoleOfficer, f.bravo.ID)
	return f
}

func (f *fixture) user(t *testing.T, username, role string, baseID int64) policy.Actor {
	t.Helper()
	u := &model.User{Username: username, PasswordHash: "hash", Role: role}
	if baseID > 0 {
		u.BaseID = &baseID
	}
	created, err := store.CreateUser(context.Background(), f.l.DB, u)
	require.NoError(t, err)
	return policy.Actor{UserID: created.ID, Role: created.Role, BaseID: created.HomeBase()}
}

func line(assetType, name string, qty int, unitCost int64) model.PurchaseItem {
	return model.PurchaseItem{
		AssetType: assetType,
		Category:  "general",
		Name:      name,
		Quantity:  qty,
		UnitCost:  decimal.NewFromInt(unitCost),
	}
}

func newPurchase(baseID int64, items ...model.PurchaseItem) NewPurchase {
	return NewPurchase{
		BaseID:      baseID,
		Items:       items,
		Supplier:    model.Supplier{Name: "Acme Defence", Contact: "sales@acme.test"},
		OrderNumber: "ORD-1",
	}
}

// stock creates, approves and receives a purchase at base, returning the
// minted assets.
func (f *fixture) stock(t *testing.T, base *model.Base, items ...model.PurchaseItem) []model.Asset {
	t.Helper()
	ctx := context.Background()
	actor := f.cmdA
	if base.ID == f.bravo.ID {
		actor = f.cmdB
	}

	p, err := f.l.CreatePurchase(ctx, actor, newPurchase(base.ID, items...))
	require.NoError(t, err)
	_, err = f.l.ApprovePurchase(ctx, actor, p.ID, model.PurchaseStatusApproved, "")
	require.NoError(t, err)
	_, assets, err := f.l.ReceivePurchase(ctx, actor, p.ID, nil, "")
	require.NoError(t, err)
	return assets
}

// rifle stocks a single weapon at base.
func (f *fixture) rifle(t *testing.T, base *model.Base) model.Asset {
	t.Helper()
	return f.stock(t, base, line(model.AssetTypeWeapon, "Rifle", 1, 1200))[0]
}

func (f *fixture) asset(t *testing.T, id int64) *model.Asset {
	t.Helper()
	a, err := store.GetAsset(context.Background(), f.l.DB, id)
	require.NoError(t, err)
	require.NotNil(t, a)
	return a
}

func (f *fixture) activeAssignments(t *testing.T, assetID int64) int {
	t.Helper()
	n, err := store.CountActiveAssignments(context.Background(), f.l.DB, assetID)
	require.NoError(t, err)
	return n
}

// force moves an asset to status directly in the store, as an out-of-band
// change the workflows did not make.
func (f *fixture) force(t *testing.T, id int64, status string) {
	t.Helper()
	a := f.asset(t, id)
	next := *a
	next.Status = status
	_, err := store.UpdateAssetState(context.Background(), f.l.DB, a, next)
	require.NoError(t, err)
}
