package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/arsenal/internal/dbx"
	"github.com/erazemk/arsenal/internal/model"
)

const assetColumns = `a.id, a.code, a.name, a.type, a.category, a.specs, a.base_id, a.status, a.custodian_id,
	a.purchase_id, a.purchase_code, a.purchase_date, a.unit_cost, a.supplier, a.order_number,
	a.photo_mime, a.version, a.retired_at, a.created_at, a.updated_at, b.name`

const assetFrom = ` FROM assets a JOIN bases b ON b.id = a.base_id`

func scanAsset(s scanner) (*model.Asset, error) {
	a := &model.Asset{}
	var photoMime sql.NullString
	err := s.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.Category, &a.Specs, &a.BaseID, &a.Status, &a.CustodianID,
		&a.Provenance.PurchaseID, &a.Provenance.PurchaseCode, &a.Provenance.Date, &a.Provenance.UnitCost,
		&a.Provenance.Supplier, &a.Provenance.OrderNumber,
		&photoMime, &a.Version, &a.RetiredAt, &a.CreatedAt, &a.UpdatedAt, &a.BaseName)
	if err != nil {
		return nil, err
	}
	a.PhotoMime = photoMime.String
	return a, nil
}

// InsertAsset creates an asset row from a, which must carry its provenance.
// Returns the new asset ID.
func InsertAsset(ctx context.Context, db dbx.DBTX, a *model.Asset) (int64, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO assets (code, name, type, category, specs, base_id, status,
		                     purchase_id, purchase_code, purchase_date, unit_cost, supplier, order_number)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Code, a.Name, a.Type, a.Category, a.Specs, a.BaseID, a.Status,
		a.Provenance.PurchaseID, a.Provenance.PurchaseCode, a.Provenance.Date, a.Provenance.UnitCost,
		a.Provenance.Supplier, a.Provenance.OrderNumber,
	)
	if err != nil {
		return 0, wrap(err, "creating asset "+a.Code)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting asset id: %w", err)
	}
	return id, nil
}

// GetAsset returns an asset by ID.
func GetAsset(ctx context.Context, db dbx.DBTX, id int64) (*model.Asset, error) {
	a, err := scanAsset(db.QueryRowContext(ctx, `SELECT `+assetColumns+assetFrom+` WHERE a.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting asset: %w", err)
	}
	return a, nil
}

// GetAssetByCode returns an asset by its code.
func GetAssetByCode(ctx context.Context, db dbx.DBTX, code string) (*model.Asset, error) {
	a, err := scanAsset(db.QueryRowContext(ctx, `SELECT `+assetColumns+assetFrom+` WHERE a.code = ?`, code))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting asset by code: %w", err)
	}
	return a, nil
}

// AssetFilter narrows ListAssets. Zero values are ignored.
type AssetFilter struct {
	BaseID      int64
	Type        string
	Category    string
	Status      string
	CustodianID int64
	PurchaseID  int64
}

// ListAssets returns assets matching the filter, ordered by code.
func ListAssets(ctx context.Context, db dbx.DBTX, f AssetFilter) ([]model.Asset, error) {
	var where []string
	var args []any
	if f.BaseID > 0 {
		where = append(where, "a.base_id = ?")
		args = append(args, f.BaseID)
	}
	if f.Type != "" {
		where = append(where, "a.type = ?")
		args = append(args, f.Type)
	}
	if f.Category != "" {
		where = append(where, "a.category = ?")
		args = append(args, f.Category)
	}
	if f.Status != "" {
		where = append(where, "a.status = ?")
		args = append(args, f.Status)
	}
	if f.CustodianID > 0 {
		where = append(where, "a.custodian_id = ?")
		args = append(args, f.CustodianID)
	}
	if f.PurchaseID > 0 {
		where = append(where, "a.purchase_id = ?")
		args = append(args, f.PurchaseID)
	}

	query := `SELECT ` + assetColumns + assetFrom
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY a.code`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}
	defer rows.Close()

	var assets []model.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning asset: %w", err)
		}
		assets = append(assets, *a)
	}
	return assets, rows.Err()
}

// UpdateAssetState writes next's status, base, custodian and retirement over prev,
// provided the stored version still equals prev.Version. On success the
// version is advanced and returned; a stale version yields model.ErrConflict.
func UpdateAssetState(ctx context.Context, db dbx.DBTX, prev *model.Asset, next model.Asset) (int64, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE assets SET status = ?, base_id = ?, custodian_id = ?, retired_at = ?, version = version + 1,
		        updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND version = ?`,
		next.Status, next.BaseID, next.CustodianID, next.RetiredAt, prev.ID, prev.Version,
	)
	if err != nil {
		return 0, wrap(err, "updating asset "+prev.Code)
	}
	n, _ := result.RowsAffected()
	if err := expectOne(n, "asset "+prev.Code); err != nil {
		return 0, err
	}
	return prev.Version + 1, nil
}

// TouchAsset advances an asset's version without changing its state, so
// that any other writer holding the old version loses its compare-and-set.
func TouchAsset(ctx context.Context, db dbx.DBTX, a *model.Asset) (int64, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE assets SET version = version + 1 WHERE id = ? AND version = ?`,
		a.ID, a.Version,
	)
	if err != nil {
		return 0, wrap(err, "claiming asset "+a.Code)
	}
	n, _ := result.RowsAffected()
	if err := expectOne(n, "asset "+a.Code); err != nil {
		return 0, err
	}
	return a.Version + 1, nil
}

// SetAssetPhoto sets an asset's photo.
func SetAssetPhoto(ctx context.Context, db dbx.DBTX, id int64, photo []byte, mime string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE assets SET photo = ?, photo_mime = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		photo, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting asset photo: %w", err)
	}
	return nil
}

// GetAssetPhoto returns an asset's photo and its MIME type.
func GetAssetPhoto(ctx context.Context, db dbx.DBTX, id int64) ([]byte, string, error) {
	var photo []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT photo, photo_mime FROM assets WHERE id = ?`, id,
	).Scan(&photo, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting asset photo: %w", err)
	}
	return photo, mime.String, nil
}
