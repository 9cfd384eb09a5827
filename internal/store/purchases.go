package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/arsenal/internal/dbx"
	"github.com/erazemk/arsenal/internal/model"
)

const purchaseColumns = `p.id, p.code, p.base_id, p.supplier_name, p.supplier_contact, p.order_number, p.order_date,
	p.total_amount, p.status, p.delivery_date, p.notes, p.created_by, p.approved_by, p.approved_at,
	p.created_at, p.updated_at, b.name`

const purchaseFrom = ` FROM purchases p JOIN bases b ON b.id = p.base_id`

func scanPurchase(s scanner) (*model.Purchase, error) {
	p := &model.Purchase{}
	var notes sql.NullString
	err := s.Scan(&p.ID, &p.Code, &p.BaseID, &p.Supplier.Name, &p.Supplier.Contact, &p.OrderNumber, &p.OrderDate,
		&p.TotalAmount, &p.Status, &p.DeliveryDate, &notes, &p.CreatedBy, &p.ApprovedBy, &p.ApprovedAt,
		&p.CreatedAt, &p.UpdatedAt, &p.BaseName)
	if err != nil {
		return nil, err
	}
	p.Notes = notes.String
	return p, nil
}

// InsertPurchase stores a purchase with its line items and returns its ID.
// Run it inside a transaction so a failing line leaves nothing behind.
func InsertPurchase(ctx context.Context, db dbx.DBTX, p *model.Purchase) (int64, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO purchases (code, base_id, supplier_name, supplier_contact, order_number, order_date,
		                        total_amount, status, notes, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Code, p.BaseID, p.Supplier.Name, p.Supplier.Contact, p.OrderNumber, p.OrderDate,
		p.TotalAmount, p.Status, p.Notes, p.CreatedBy,
	)
	if err != nil {
		return 0, wrap(err, "creating purchase")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting purchase id: %w", err)
	}

	if err := insertPurchaseItems(ctx, db, id, p.Items); err != nil {
		return 0, err
	}
	return id, nil
}

func insertPurchaseItems(ctx context.Context, db dbx.DBTX, purchaseID int64, items []model.PurchaseItem) error {
	for _, it := range items {
		_, err := db.ExecContext(ctx,
			`INSERT INTO purchase_items (purchase_id, line_no, asset_type, category, name, quantity, unit_cost, specs)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			purchaseID, it.Line, it.AssetType, it.Category, it.Name, it.Quantity, it.UnitCost, it.Specs,
		)
		if err != nil {
			return fmt.Errorf("creating purchase line %d: %w", it.Line, err)
		}
	}
	return nil
}

// GetPurchase returns a purchase with its line items.
func GetPurchase(ctx context.Context, db dbx.DBTX, id int64) (*model.Purchase, error) {
	p, err := scanPurchase(db.QueryRowContext(ctx, `SELECT `+purchaseColumns+purchaseFrom+` WHERE p.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting purchase: %w", err)
	}

	p.Items, err = listPurchaseItems(ctx, db, id)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func listPurchaseItems(ctx context.Context, db dbx.DBTX, purchaseID int64) ([]model.PurchaseItem, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT line_no, asset_type, category, name, quantity, unit_cost, specs
		 FROM purchase_items WHERE purchase_id = ? ORDER BY line_no`, purchaseID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing purchase items: %w", err)
	}
	defer rows.Close()

	var items []model.PurchaseItem
	for rows.Next() {
		var it model.PurchaseItem
		if err := rows.Scan(&it.Line, &it.AssetType, &it.Category, &it.Name, &it.Quantity, &it.UnitCost, &it.Specs); err != nil {
			return nil, fmt.Errorf("scanning purchase item: %w", err)
		}
		it.TotalCost = it.LineTotal()
		items = append(items, it)
	}
	return items, rows.Err()
}

// PurchaseFilter narrows ListPurchases. Zero values are ignored.
type PurchaseFilter struct {
	BaseID    int64
	Status    string
	AssetType string
}

// ListPurchases returns purchases matching the filter, newest first.
// Line items are not loaded.
func ListPurchases(ctx context.Context, db dbx.DBTX, f PurchaseFilter) ([]model.Purchase, error) {
	var where []string
	var args []any
	if f.BaseID > 0 {
		where = append(where, "p.base_id = ?")
		args = append(args, f.BaseID)
	}
	if f.Status != "" {
		where = append(where, "p.status = ?")
		args = append(args, f.Status)
	}
	if f.AssetType != "" {
		where = append(where, "EXISTS (SELECT 1 FROM purchase_items i WHERE i.purchase_id = p.id AND i.asset_type = ?)")
		args = append(args, f.AssetType)
	}

	query := `SELECT ` + purchaseColumns + purchaseFrom
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY p.created_at DESC, p.id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing purchases: %w", err)
	}
	defer rows.Close()

	var purchases []model.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning purchase: %w", err)
		}
		purchases = append(purchases, *p)
	}
	return purchases, rows.Err()
}

// ReplacePendingPurchase overwrites a pending purchase's supplier, order,
// notes, total and line items.
func ReplacePendingPurchase(ctx context.Context, db dbx.DBTX, p *model.Purchase) error {
	result, err := db.ExecContext(ctx,
		`UPDATE purchases SET supplier_name = ?, supplier_contact = ?, order_number = ?, order_date = ?,
		        total_amount = ?, notes = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = 'pending'`,
		p.Supplier.Name, p.Supplier.Contact, p.OrderNumber, p.OrderDate, p.TotalAmount, p.Notes, p.ID,
	)
	if err != nil {
		return wrap(err, "updating purchase")
	}
	n, _ := result.RowsAffected()
	if err := expectOne(n, "purchase "+p.Code); err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, `DELETE FROM purchase_items WHERE purchase_id = ?`, p.ID); err != nil {
		return fmt.Errorf("clearing purchase items: %w", err)
	}
	return insertPurchaseItems(ctx, db, p.ID, p.Items)
}

// SetPurchaseStatus moves a purchase from one status to another, recording
// the approver. A purchase no longer in from yields model.ErrConflict.
func SetPurchaseStatus(ctx context.Context, db dbx.DBTX, id int64, from, to string, approvedBy int64, at time.Time, notes string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE purchases SET status = ?, approved_by = ?, approved_at = ?,
		        notes = CASE WHEN ? = '' THEN notes ELSE ? END, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ?`,
		to, approvedBy, at, notes, notes, id, from,
	)
	if err != nil {
		return wrap(err, "updating purchase status")
	}
	n, _ := result.RowsAffected()
	return expectOne(n, fmt.Sprintf("purchase %d", id))
}

// MarkPurchaseReceived moves an approved purchase to received.
func MarkPurchaseReceived(ctx context.Context, db dbx.DBTX, id int64, deliveryDate time.Time, notes string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE purchases SET status = 'received', delivery_date = ?,
		        notes = CASE WHEN ? = '' THEN notes ELSE ? END, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = 'approved'`,
		deliveryDate, notes, notes, id,
	)
	if err != nil {
		return wrap(err, "receiving purchase")
	}
	n, _ := result.RowsAffected()
	return expectOne(n, fmt.Sprintf("purchase %d", id))
}

// DeletePendingPurchase removes a pending purchase and its line items.
func DeletePendingPurchase(ctx context.Context, db dbx.DBTX, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM purchases WHERE id = ? AND status = 'pending'`, id)
	if err != nil {
		return wrap(err, "deleting purchase")
	}
	n, _ := result.RowsAffected()
	return expectOne(n, fmt.Sprintf("purchase %d", id))
}
