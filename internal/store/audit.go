package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/arsenal/internal/dbx"
	"github.com/erazemk/arsenal/internal/model"
)

// AppendAudit inserts an audit entry. Audit rows are never updated.
func AppendAudit(ctx context.Context, db dbx.DBTX, e *model.AuditEntry) error {
	details := string(e.Details)
	if details == "" {
		details = "{}"
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO audit_log (actor_id, actor_base_id, action, resource, resource_id, details, severity, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ActorID, e.ActorBaseID, e.Action, e.Resource, e.ResourceID, details, e.Severity, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("appending audit entry: %w", err)
	}
	return nil
}

// AuditFilter narrows ListAudit. Zero values are ignored.
type AuditFilter struct {
	Resource   string
	ResourceID string
	ActorID    int64
	Severity   string
	Since      time.Time
	Limit      int
}

// ListAudit returns audit entries matching the filter, newest first.
func ListAudit(ctx context.Context, db dbx.DBTX, f AuditFilter) ([]model.AuditEntry, error) {
	var where []string
	var args []any
	if f.Resource != "" {
		where = append(where, "resource = ?")
		args = append(args, f.Resource)
	}
	if f.ResourceID != "" {
		where = append(where, "resource_id = ?")
		args = append(args, f.ResourceID)
	}
	if f.ActorID > 0 {
		where = append(where, "actor_id = ?")
		args = append(args, f.ActorID)
	}
	if f.Severity != "" {
		where = append(where, "severity = ?")
		args = append(args, f.Severity)
	}
	if !f.Since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, f.Since)
	}

	query := `SELECT id, actor_id, actor_base_id, action, resource, resource_id, details, severity, created_at FROM audit_log`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing audit entries: %w", err)
	}
	defer rows.Close()

	var entries []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		var details string
		if err := rows.Scan(&e.ID, &e.ActorID, &e.ActorBaseID, &e.Action, &e.Resource, &e.ResourceID,
			&details, &e.Severity, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		e.Details = []byte(details)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
