package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/arsenal/internal/dbx"
	"github.com/erazemk/arsenal/internal/model"
)

const assignmentColumns = `s.id, s.code, s.asset_id, s.assignee_id, s.assigned_by, s.base_id, s.assigned_at,
	s.expected_return, s.actual_return, s.status, s.purpose, s.mission_name, s.mission_code, s.mission_location,
	s.condition_assigned, s.condition_returned, s.notes,
	s.expended_at, s.expended_by, s.expend_reason, s.expend_location, s.expend_mission, s.expend_witness,
	s.created_at, s.updated_at, a.code, u.username`

const assignmentFrom = ` FROM assignments s
	JOIN assets a ON a.id = s.asset_id
	JOIN users u ON u.id = s.assignee_id`

func scanAssignment(sc scanner) (*model.Assignment, error) {
	s := &model.Assignment{}
	var condReturned, notes, reason, location, mission sql.NullString
	var expendedBy sql.NullInt64
	var exp model.Expenditure
	var expendedAt sql.NullTime
	err := sc.Scan(&s.ID, &s.Code, &s.AssetID, &s.AssigneeID, &s.AssignedBy, &s.BaseID, &s.AssignedAt,
		&s.ExpectedReturn, &s.ActualReturn, &s.Status, &s.Purpose, &s.Mission.Name, &s.Mission.Code, &s.Mission.Location,
		&s.ConditionAssigned, &condReturned, &notes,
		&expendedAt, &expendedBy, &reason, &location, &mission, &exp.WitnessID,
		&s.CreatedAt, &s.UpdatedAt, &s.AssetCode, &s.AssigneeName)
	if err != nil {
		return nil, err
	}
	s.ConditionReturned = condReturned.String
	s.Notes = notes.String
	if expendedAt.Valid {
		exp.At = expendedAt.Time
		exp.By = expendedBy.Int64
		exp.Reason = reason.String
		exp.Location = location.String
		exp.Mission = mission.String
		s.Expenditure = &exp
	}
	return s, nil
}

// InsertAssignment stores a new assignment and returns its ID. A second
// active assignment for the same asset yields model.ErrConflict.
func InsertAssignment(ctx context.Context, db dbx.DBTX, s *model.Assignment) (int64, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO assignments (code, asset_id, assignee_id, assigned_by, base_id, assigned_at, expected_return,
		                          status, purpose, mission_name, mission_code, mission_location,
		                          condition_assigned, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.Code, s.AssetID, s.AssigneeID, s.AssignedBy, s.BaseID, s.AssignedAt, s.ExpectedReturn,
		s.Status, s.Purpose, s.Mission.Name, s.Mission.Code, s.Mission.Location,
		s.ConditionAssigned, s.Notes,
	)
	if err != nil {
		return 0, wrap(err, "creating assignment")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting assignment id: %w", err)
	}
	return id, nil
}

// GetAssignment returns an assignment by ID.
func GetAssignment(ctx context.Context, db dbx.DBTX, id int64) (*model.Assignment, error) {
	s, err := scanAssignment(db.QueryRowContext(ctx, `SELECT `+assignmentColumns+assignmentFrom+` WHERE s.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting assignment: %w", err)
	}
	return s, nil
}

// AssignmentFilter narrows ListAssignments. Zero values are ignored.
type AssignmentFilter struct {
	BaseID     int64
	Status     string
	AssigneeID int64
	AssetID    int64
}

// ListAssignments returns assignments matching the filter, newest first.
func ListAssignments(ctx context.Context, db dbx.DBTX, f AssignmentFilter) ([]model.Assignment, error) {
	var where []string
	var args []any
	if f.BaseID > 0 {
		where = append(where, "s.base_id = ?")
		args = append(args, f.BaseID)
	}
	if f.Status != "" {
		where = append(where, "s.status = ?")
		args = append(args, f.Status)
	}
	if f.AssigneeID > 0 {
		where = append(where, "s.assignee_id = ?")
		args = append(args, f.AssigneeID)
	}
	if f.AssetID > 0 {
		where = append(where, "s.asset_id = ?")
		args = append(args, f.AssetID)
	}

	query := `SELECT ` + assignmentColumns + assignmentFrom
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY s.assigned_at DESC, s.id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing assignments: %w", err)
	}
	defer rows.Close()

	var out []model.Assignment
	for rows.Next() {
		s, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning assignment: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// CountActiveAssignments returns how many active assignments reference an asset.
func CountActiveAssignments(ctx context.Context, db dbx.DBTX, assetID int64) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM assignments WHERE asset_id = ? AND status = 'active'`, assetID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting active assignments: %w", err)
	}
	return n, nil
}

// CloseAssignment writes s's terminal status, return details and
// expenditure, provided the stored assignment is still active.
func CloseAssignment(ctx context.Context, db dbx.DBTX, s *model.Assignment) error {
	var exp model.Expenditure
	var expendedAt, expendedBy any
	if s.Expenditure != nil {
		exp = *s.Expenditure
		expendedAt, expendedBy = exp.At, exp.By
	}

	result, err := db.ExecContext(ctx,
		`UPDATE assignments SET status = ?, actual_return = ?, condition_returned = NULLIF(?, ''), notes = ?,
		        expended_at = ?, expended_by = ?, expend_reason = NULLIF(?, ''), expend_location = NULLIF(?, ''),
		        expend_mission = NULLIF(?, ''), expend_witness = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = 'active'`,
		s.Status, s.ActualReturn, s.ConditionReturned, s.Notes,
		expendedAt, expendedBy, exp.Reason, exp.Location, exp.Mission, exp.WitnessID,
		s.ID,
	)
	if err != nil {
		return wrap(err, "closing assignment")
	}
	n, _ := result.RowsAffected()
	return expectOne(n, "assignment "+s.Code)
}

// UpdateActiveAssignment writes the fields that may change while an
// assignment is active: expected return, purpose, mission and notes.
func UpdateActiveAssignment(ctx context.Context, db dbx.DBTX, s *model.Assignment) error {
	result, err := db.ExecContext(ctx,
		`UPDATE assignments SET expected_return = ?, purpose = ?, mission_name = ?, mission_code = ?,
		        mission_location = ?, notes = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = 'active'`,
		s.ExpectedReturn, s.Purpose, s.Mission.Name, s.Mission.Code, s.Mission.Location, s.Notes, s.ID,
	)
	if err != nil {
		return wrap(err, "updating assignment")
	}
	n, _ := result.RowsAffected()
	return expectOne(n, "assignment "+s.Code)
}
