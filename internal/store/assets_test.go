package store

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/erazemk/arsenal/internal/db"
	"github.com/erazemk/arsenal/internal/model"
)

func TestInsertAndGetAsset(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	base := seedBase(t, database, "Alpha")
	user := seedUser(t, database, "admin", model.RoleAdmin, 0)

	a := seedAsset(t, database, "WPN-1", base.ID, user.ID)
	if a.Status != model.AssetStatusAvailable || a.Version != 1 {
		t.Errorf("unexpected new asset state: %s v%d", a.Status, a.Version)
	}
	if !a.Provenance.UnitCost.Equal(decimal.NewFromInt(1200)) {
		t.Errorf("expected unit cost 1200, got %s", a.Provenance.UnitCost)
	}
	if !a.Provenance.Date.Equal(testTime) {
		t.Errorf("expected provenance date %v, got %v", testTime, a.Provenance.Date)
	}
	if a.BaseName != "Alpha" {
		t.Errorf("expected base name Alpha, got %q", a.BaseName)
	}

	byCode, err := GetAssetByCode(ctx, database, "WPN-1")
	if err != nil || byCode == nil || byCode.ID != a.ID {
		t.Fatalf("GetAssetByCode: %v %v", byCode, err)
	}

	missing, err := GetAsset(ctx, database, 999)
	if err != nil || missing != nil {
		t.Errorf("expected nil, nil for missing asset, got %v, %v", missing, err)
	}
}

func TestInsertAssetDuplicateCodeIsConflict(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	base := seedBase(t, database, "Alpha")
	user := seedUser(t, database, "admin", model.RoleAdmin, 0)

	a := seedAsset(t, database, "WPN-1", base.ID, user.ID)
	_, err := InsertAsset(ctx, database, a)
	if !errors.Is(err, model.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestUpdateAssetStateCompareAndSet(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	base := seedBase(t, database, "Alpha")
	user := seedUser(t, database, "officer", model.RoleOfficer, base.ID)

	a := seedAsset(t, database, "WPN-1", base.ID, user.ID)
	next, err := model.ApplyTransition(*a, model.AssetEvent{Kind: model.EventAssign, Custodian: user.ID})
	if err != nil {
		t.Fatal(err)
	}

	v, err := UpdateAssetState(ctx, database, a, next)
	if err != nil {
		t.Fatalf("UpdateAssetState: %v", err)
	}
	if v != 2 {
		t.Errorf("expected version 2, got %d", v)
	}

	// Same stale snapshot loses.
	if _, err := UpdateAssetState(ctx, database, a, next); !errors.Is(err, model.ErrConflict) {
		t.Errorf("expected ErrConflict for stale version, got %v", err)
	}

	got, _ := GetAsset(ctx, database, a.ID)
	if got.Status != model.AssetStatusAssigned || got.CustodianID == nil || *got.CustodianID != user.ID {
		t.Errorf("unexpected stored state: %s %v", got.Status, got.CustodianID)
	}
}

func TestAssignedAssetRequiresCustodian(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	base := seedBase(t, database, "Alpha")
	user := seedUser(t, database, "officer", model.RoleOfficer, base.ID)

	a := seedAsset(t, database, "WPN-1", base.ID, user.ID)
	bad := *a
	bad.Status = model.AssetStatusAssigned
	if _, err := UpdateAssetState(ctx, database, a, bad); err == nil {
		t.Error("expected check constraint to reject assigned asset without custodian")
	}
}

func TestRetiredAssetRequiresTimestamp(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	base := seedBase(t, database, "Alpha")
	user := seedUser(t, database, "officer", model.RoleOfficer, base.ID)

	a := seedAsset(t, database, "WPN-1", base.ID, user.ID)
	next := *a
	next.Status = model.AssetStatusDecommissioned
	if _, err := UpdateAssetState(ctx, database, a, next); err == nil {
		t.Fatal("expected check constraint to reject a retired asset without retired_at")
	}

	at := testTime
	next.RetiredAt = &at
	if _, err := UpdateAssetState(ctx, database, a, next); err != nil {
		t.Fatalf("UpdateAssetState: %v", err)
	}
	got, _ := GetAsset(ctx, database, a.ID)
	if got.RetiredAt == nil || !got.RetiredAt.Equal(testTime) {
		t.Errorf("expected retired_at %v, got %v", testTime, got.RetiredAt)
	}
}

func TestTouchAsset(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	base := seedBase(t, database, "Alpha")
	user := seedUser(t, database, "officer", model.RoleOfficer, base.ID)

	a := seedAsset(t, database, "WPN-1", base.ID, user.ID)
	if _, err := TouchAsset(ctx, database, a); err != nil {
		t.Fatalf("TouchAsset: %v", err)
	}
	if _, err := TouchAsset(ctx, database, a); !errors.Is(err, model.ErrConflict) {
		t.Errorf("expected ErrConflict on second touch with old version, got %v", err)
	}
}

func TestListAssetsFiltered(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	alpha := seedBase(t, database, "Alpha")
	bravo := seedBase(t, database, "Bravo")
	user := seedUser(t, database, "admin", model.RoleAdmin, 0)

	seedAsset(t, database, "WPN-1", alpha.ID, user.ID)
	seedAsset(t, database, "WPN-2", alpha.ID, user.ID)
	seedAsset(t, database, "WPN-3", bravo.ID, user.ID)

	all, _ := ListAssets(ctx, database, AssetFilter{})
	if len(all) != 3 {
		t.Errorf("expected 3 assets, got %d", len(all))
	}
	atAlpha, _ := ListAssets(ctx, database, AssetFilter{BaseID: alpha.ID, Status: model.AssetStatusAvailable})
	if len(atAlpha) != 2 {
		t.Errorf("expected 2 assets at Alpha, got %d", len(atAlpha))
	}
	vehicles, _ := ListAssets(ctx, database, AssetFilter{Type: model.AssetTypeVehicle})
	if len(vehicles) != 0 {
		t.Errorf("expected no vehicles, got %d", len(vehicles))
	}
}

func TestAssetPhoto(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	base := seedBase(t, database, "Alpha")
	user := seedUser(t, database, "admin", model.RoleAdmin, 0)
	a := seedAsset(t, database, "WPN-1", base.ID, user.ID)

	if err := SetAssetPhoto(ctx, database, a.ID, []byte{0xff, 0xd8}, "image/jpeg"); err != nil {
		t.Fatalf("SetAssetPhoto: %v", err)
	}
	data, mime, err := GetAssetPhoto(ctx, database, a.ID)
	if err != nil {
		t.Fatalf("GetAssetPhoto: %v", err)
	}
	if len(data) != 2 || mime != "image/jpeg" {
		t.Errorf("unexpected photo: %d bytes, %q", len(data), mime)
	}
}
