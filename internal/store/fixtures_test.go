package store

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/arsenal/internal/model"
)

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seedBase(t *testing.T, database *sql.DB, name string) *model.Base {
	t.Helper()
	b, err := CreateBase(context.Background(), database, name, model.Location{Country: "SI"})
	if err != nil {
		t.Fatalf("CreateBase: %v", err)
	}
	return b
}

func seedUser(t *testing.T, database *sql.DB, username, role string, baseID int64) *model.User {
	t.Helper()
	u := &model.User{Username: username, PasswordHash: "hash", Role: role}
	if baseID > 0 {
		u.BaseID = &baseID
	}
	created, err := CreateUser(context.Background(), database, u)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return created
}

func seedPurchase(t *testing.T, database *sql.DB, code string, baseID, userID int64, items ...model.PurchaseItem) *model.Purchase {
	t.Helper()
	p := &model.Purchase{
		Code:        code,
		BaseID:      baseID,
		Items:       items,
		Supplier:    model.Supplier{Name: "Acme"},
		OrderNumber: "ORD-" + code,
		OrderDate:   testTime,
		TotalAmount: model.ComputeTotal(items),
		Status:      model.PurchaseStatusPending,
		CreatedBy:   userID,
	}
	id, err := InsertPurchase(context.Background(), database, p)
	if err != nil {
		t.Fatalf("InsertPurchase: %v", err)
	}
	p.ID = id
	return p
}

// seedAsset inserts an available asset at baseID backed by a one-line purchase.
func seedAsset(t *testing.T, database *sql.DB, code string, baseID, userID int64) *model.Asset {
	t.Helper()
	ctx := context.Background()
	p := seedPurchase(t, database, "PO-"+code, baseID, userID, model.PurchaseItem{
		Line: 1, AssetType: model.AssetTypeWeapon, Category: "rifle", Name: "Rifle", Quantity: 1,
		UnitCost: decimal.NewFromInt(1200),
	})
	a := &model.Asset{
		Code: code, Name: "Rifle", Type: model.AssetTypeWeapon, Category: "rifle",
		BaseID: baseID, Status: model.AssetStatusAvailable,
		Provenance: model.Provenance{
			PurchaseID: p.ID, PurchaseCode: p.Code, Date: testTime,
			UnitCost: decimal.NewFromInt(1200), Supplier: "Acme", OrderNumber: p.OrderNumber,
		},
	}
	id, err := InsertAsset(ctx, database, a)
	if err != nil {
		t.Fatalf("InsertAsset: %v", err)
	}
	got, err := GetAsset(ctx, database, id)
	if err != nil || got == nil {
		t.Fatalf("GetAsset: %v", fmt.Sprint(got, err))
	}
	return got
}
