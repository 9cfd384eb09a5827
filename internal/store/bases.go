package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/arsenal/internal/dbx"
	"github.com/erazemk/arsenal/internal/model"
)

// CreateBase creates a new base.
func CreateBase(ctx context.Context, db dbx.DBTX, name string, loc model.Location) (*model.Base, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO bases (name, city, state, country) VALUES (?, ?, ?, ?)`,
		name, loc.City, loc.State, loc.Country,
	)
	if err != nil {
		return nil, wrap(err, "creating base")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting base id: %w", err)
	}

	return GetBase(ctx, db, id)
}

// GetBase returns a base by ID.
func GetBase(ctx context.Context, db dbx.DBTX, id int64) (*model.Base, error) {
	b := &model.Base{}
	err := db.QueryRowContext(ctx,
		`SELECT id, name, city, state, country, status, created_at FROM bases WHERE id = ?`, id,
	).Scan(&b.ID, &b.Name, &b.Location.City, &b.Location.State, &b.Location.Country, &b.Status, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting base: %w", err)
	}
	return b, nil
}

// ListBases returns all bases ordered by name.
func ListBases(ctx context.Context, db dbx.DBTX) ([]model.Base, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, city, state, country, status, created_at FROM bases ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing bases: %w", err)
	}
	defer rows.Close()

	var bases []model.Base
	for rows.Next() {
		var b model.Base
		if err := rows.Scan(&b.ID, &b.Name, &b.Location.City, &b.Location.State, &b.Location.Country, &b.Status, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning base: %w", err)
		}
		bases = append(bases, b)
	}
	return bases, rows.Err()
}

// UpdateBase updates a base's name, location and status.
func UpdateBase(ctx context.Context, db dbx.DBTX, id int64, name string, loc model.Location, status string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE bases SET name = ?, city = ?, state = ?, country = ?, status = ? WHERE id = ?`,
		name, loc.City, loc.State, loc.Country, status, id,
	)
	if err != nil {
		return wrap(err, "updating base")
	}
	return nil
}
