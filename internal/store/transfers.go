package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/arsenal/internal/dbx"
	"github.com/erazemk/arsenal/internal/model"
)

const transferColumns = `t.id, t.code, t.from_base_id, t.to_base_id, t.reason, t.priority, t.transport_method,
	t.carrier, t.tracking_number, t.estimated_departure, t.estimated_arrival, t.actual_departure, t.actual_arrival,
	t.status, t.requested_by, t.approved_by, t.notes, t.created_at, t.updated_at,
	fb.name AS from_base_name, tb.name AS to_base_name`

const transferFrom = ` FROM transfers t
	JOIN bases fb ON fb.id = t.from_base_id
	JOIN bases tb ON tb.id = t.to_base_id`

func scanTransfer(s scanner) (*model.Transfer, error) {
	t := &model.Transfer{}
	var notes sql.NullString
	err := s.Scan(&t.ID, &t.Code, &t.FromBaseID, &t.ToBaseID, &t.Reason, &t.Priority, &t.Transport.Method,
		&t.Transport.Carrier, &t.Transport.TrackingNumber, &t.Transport.EstimatedDeparture, &t.Transport.EstimatedArrival,
		&t.Transport.ActualDeparture, &t.Transport.ActualArrival,
		&t.Status, &t.RequestedBy, &t.ApprovedBy, &notes, &t.CreatedAt, &t.UpdatedAt,
		&t.FromBaseName, &t.ToBaseName)
	if err != nil {
		return nil, err
	}
	t.Notes = notes.String
	return t, nil
}

// InsertTransfer stores a transfer with its lines and timeline and returns
// its ID.
func InsertTransfer(ctx context.Context, db dbx.DBTX, t *model.Transfer) (int64, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO transfers (code, from_base_id, to_base_id, reason, priority, transport_method, carrier,
		                        tracking_number, estimated_departure, estimated_arrival, status, requested_by, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Code, t.FromBaseID, t.ToBaseID, t.Reason, t.Priority, t.Transport.Method, t.Transport.Carrier,
		t.Transport.TrackingNumber, t.Transport.EstimatedDeparture, t.Transport.EstimatedArrival,
		t.Status, t.RequestedBy, t.Notes,
	)
	if err != nil {
		return 0, wrap(err, "creating transfer")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting transfer id: %w", err)
	}

	for _, l := range t.Lines {
		_, err := db.ExecContext(ctx,
			`INSERT INTO transfer_lines (transfer_id, line_no, asset_id, asset_code, asset_type, asset_name, quantity)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, l.Line, l.AssetID, l.AssetCode, l.AssetType, l.AssetName, l.Quantity,
		)
		if err != nil {
			return 0, fmt.Errorf("creating transfer line %d: %w", l.Line, err)
		}
	}

	for _, e := range t.Timeline {
		if err := AppendTimeline(ctx, db, id, e); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// AppendTimeline adds an entry to a transfer's timeline.
func AppendTimeline(ctx context.Context, db dbx.DBTX, transferID int64, e model.TimelineEntry) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO transfer_timeline (transfer_id, action, actor_id, note, created_at) VALUES (?, ?, ?, ?, ?)`,
		transferID, e.Action, e.ActorID, e.Note, e.At,
	)
	if err != nil {
		return fmt.Errorf("appending transfer timeline: %w", err)
	}
	return nil
}

// GetTransfer returns a transfer with its lines and timeline.
func GetTransfer(ctx context.Context, db dbx.DBTX, id int64) (*model.Transfer, error) {
	t, err := scanTransfer(db.QueryRowContext(ctx, `SELECT `+transferColumns+transferFrom+` WHERE t.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting transfer: %w", err)
	}

	if t.Lines, err = listTransferLines(ctx, db, id); err != nil {
		return nil, err
	}
	if t.Timeline, err = listTimeline(ctx, db, id); err != nil {
		return nil, err
	}
	return t, nil
}

func listTransferLines(ctx context.Context, db dbx.DBTX, transferID int64) ([]model.TransferLine, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT line_no, asset_id, asset_code, asset_type, asset_name, quantity
		 FROM transfer_lines WHERE transfer_id = ? ORDER BY line_no`, transferID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing transfer lines: %w", err)
	}
	defer rows.Close()

	var lines []model.TransferLine
	for rows.Next() {
		var l model.TransferLine
		if err := rows.Scan(&l.Line, &l.AssetID, &l.AssetCode, &l.AssetType, &l.AssetName, &l.Quantity); err != nil {
			return nil, fmt.Errorf("scanning transfer line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func listTimeline(ctx context.Context, db dbx.DBTX, transferID int64) ([]model.TimelineEntry, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT action, actor_id, note, created_at FROM transfer_timeline WHERE transfer_id = ? ORDER BY id`,
		transferID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing transfer timeline: %w", err)
	}
	defer rows.Close()

	var entries []model.TimelineEntry
	for rows.Next() {
		var e model.TimelineEntry
		var note sql.NullString
		if err := rows.Scan(&e.Action, &e.ActorID, &note, &e.At); err != nil {
			return nil, fmt.Errorf("scanning timeline entry: %w", err)
		}
		e.Note = note.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// TransferFilter narrows ListTransfers. Zero values are ignored.
type TransferFilter struct {
	// BaseID matches either endpoint.
	BaseID   int64
	Status   string
	Priority string
	AssetID  int64
}

// ListTransfers returns transfers matching the filter, newest first.
// Lines and timeline are not loaded.
func ListTransfers(ctx context.Context, db dbx.DBTX, f TransferFilter) ([]model.Transfer, error) {
	var where []string
	var args []any
	if f.BaseID > 0 {
		where = append(where, "(t.from_base_id = ? OR t.to_base_id = ?)")
		args = append(args, f.BaseID, f.BaseID)
	}
	if f.Status != "" {
		where = append(where, "t.status = ?")
		args = append(args, f.Status)
	}
	if f.Priority != "" {
		where = append(where, "t.priority = ?")
		args = append(args, f.Priority)
	}
	if f.AssetID > 0 {
		where = append(where, "EXISTS (SELECT 1 FROM transfer_lines l WHERE l.transfer_id = t.id AND l.asset_id = ?)")
		args = append(args, f.AssetID)
	}

	query := `SELECT ` + transferColumns + transferFrom
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY t.created_at DESC, t.id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transfers: %w", err)
	}
	defer rows.Close()

	var transfers []model.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transfer: %w", err)
		}
		transfers = append(transfers, *t)
	}
	return transfers, rows.Err()
}

// UpdateTransferStatus writes t's status, approver, transport and notes,
// provided the stored status still equals from.
func UpdateTransferStatus(ctx context.Context, db dbx.DBTX, t *model.Transfer, from string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE transfers SET status = ?, approved_by = ?, carrier = ?, tracking_number = ?,
		        actual_departure = ?, actual_arrival = ?, notes = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ?`,
		t.Status, t.ApprovedBy, t.Transport.Carrier, t.Transport.TrackingNumber,
		t.Transport.ActualDeparture, t.Transport.ActualArrival, t.Notes, t.ID, from,
	)
	if err != nil {
		return wrap(err, "updating transfer status")
	}
	n, _ := result.RowsAffected()
	return expectOne(n, "transfer "+t.Code)
}

// OpenTransferFor returns the code of the open transfer holding an asset,
// or "" when none does.
func OpenTransferFor(ctx context.Context, db dbx.DBTX, assetID int64) (string, error) {
	args := []any{assetID}
	for _, s := range model.OpenTransferStatuses {
		args = append(args, s)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(model.OpenTransferStatuses)), ", ")

	var code string
	err := db.QueryRowContext(ctx,
		`SELECT t.code FROM transfer_lines l JOIN transfers t ON t.id = l.transfer_id
		 WHERE l.asset_id = ? AND t.status IN (`+placeholders+`)
		 ORDER BY t.id LIMIT 1`, args...,
	).Scan(&code)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("checking open transfers: %w", err)
	}
	return code, nil
}
