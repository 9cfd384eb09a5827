package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS bases (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL UNIQUE,
    city       TEXT NOT NULL DEFAULT '',
    state      TEXT NOT NULL DEFAULT '',
    country    TEXT NOT NULL DEFAULT '',
    status     TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'inactive', 'maintenance')),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    name          TEXT NOT NULL DEFAULT '',
    rank          TEXT NOT NULL DEFAULT '',
    role          TEXT NOT NULL DEFAULT 'officer' CHECK (role IN ('admin', 'commander', 'officer')),
    base_id       INTEGER REFERENCES bases(id),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS purchases (
    id               INTEGER PRIMARY KEY,
    code             TEXT NOT NULL UNIQUE,
    base_id          INTEGER NOT NULL REFERENCES bases(id),
    supplier_name    TEXT NOT NULL,
    supplier_contact TEXT NOT NULL DEFAULT '',
    order_number     TEXT NOT NULL,
    order_date       DATETIME NOT NULL,
    total_amount     TEXT NOT NULL,
    status           TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'received', 'cancelled')),
    delivery_date    DATETIME,
    notes            TEXT,
    created_by       INTEGER NOT NULL REFERENCES users(id),
    approved_by      INTEGER REFERENCES users(id),
    approved_at      DATETIME,
    created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS purchase_items (
    purchase_id INTEGER NOT NULL REFERENCES purchases(id) ON DELETE CASCADE,
    line_no     INTEGER NOT NULL,
    asset_type  TEXT NOT NULL CHECK (asset_type IN ('vehicle', 'weapon', 'ammunition', 'equipment')),
    category    TEXT NOT NULL,
    name        TEXT NOT NULL,
    quantity    INTEGER NOT NULL CHECK (quantity > 0),
    unit_cost   TEXT NOT NULL,
    specs       TEXT NOT NULL DEFAULT '{}',
    PRIMARY KEY (purchase_id, line_no)
);

CREATE TABLE IF NOT EXISTS assets (
    id            INTEGER PRIMARY KEY,
    code          TEXT NOT NULL UNIQUE,
    name          TEXT NOT NULL,
    type          TEXT NOT NULL CHECK (type IN ('vehicle', 'weapon', 'ammunition', 'equipment')),
    category      TEXT NOT NULL,
    specs         TEXT NOT NULL DEFAULT '{}',
    base_id       INTEGER NOT NULL REFERENCES bases(id),
    status        TEXT NOT NULL DEFAULT 'available'
                  CHECK (status IN ('available', 'assigned', 'maintenance', 'decommissioned', 'expended')),
    custodian_id  INTEGER REFERENCES users(id),
    purchase_id   INTEGER NOT NULL REFERENCES purchases(id),
    purchase_code TEXT NOT NULL,
    purchase_date DATETIME NOT NULL,
    unit_cost     TEXT NOT NULL,
    supplier      TEXT NOT NULL,
    order_number  TEXT NOT NULL,
    photo         BLOB,
    photo_mime    TEXT,
    version       INTEGER NOT NULL DEFAULT 1,
    retired_at    DATETIME,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CHECK ((status = 'assigned') = (custodian_id IS NOT NULL)),
    CHECK ((status IN ('decommissioned', 'expended')) = (retired_at IS NOT NULL))
);

CREATE TABLE IF NOT EXISTS transfers (
    id                  INTEGER PRIMARY KEY,
    code                TEXT NOT NULL UNIQUE,
    from_base_id        INTEGER NOT NULL REFERENCES bases(id),
    to_base_id          INTEGER NOT NULL REFERENCES bases(id),
    reason              TEXT NOT NULL DEFAULT '',
    priority            TEXT NOT NULL DEFAULT 'medium' CHECK (priority IN ('low', 'medium', 'high', 'urgent')),
    transport_method    TEXT NOT NULL DEFAULT 'ground' CHECK (transport_method IN ('ground', 'air', 'sea')),
    carrier             TEXT NOT NULL DEFAULT '',
    tracking_number     TEXT NOT NULL DEFAULT '',
    estimated_departure DATETIME,
    estimated_arrival   DATETIME,
    actual_departure    DATETIME,
    actual_arrival      DATETIME,
    status              TEXT NOT NULL DEFAULT 'pending'
                        CHECK (status IN ('pending', 'approved', 'in-transit', 'completed', 'cancelled', 'rejected', 'failed')),
    requested_by        INTEGER NOT NULL REFERENCES users(id),
    approved_by         INTEGER REFERENCES users(id),
    notes               TEXT,
    created_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CHECK (from_base_id <> to_base_id)
);

CREATE TABLE IF NOT EXISTS transfer_lines (
    transfer_id INTEGER NOT NULL REFERENCES transfers(id),
    line_no     INTEGER NOT NULL,
    asset_id    INTEGER NOT NULL REFERENCES assets(id),
    asset_code  TEXT NOT NULL,
    asset_type  TEXT NOT NULL,
    asset_name  TEXT NOT NULL,
    quantity    INTEGER NOT NULL DEFAULT 1 CHECK (quantity > 0),
    PRIMARY KEY (transfer_id, line_no),
    UNIQUE (transfer_id, asset_id)
);

CREATE TABLE IF NOT EXISTS transfer_timeline (
    id          INTEGER PRIMARY KEY,
    transfer_id INTEGER NOT NULL REFERENCES transfers(id),
    action      TEXT NOT NULL,
    actor_id    INTEGER NOT NULL REFERENCES users(id),
    note        TEXT,
    created_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS assignments (
    id                 INTEGER PRIMARY KEY,
    code               TEXT NOT NULL UNIQUE,
    asset_id           INTEGER NOT NULL REFERENCES assets(id),
    assignee_id        INTEGER NOT NULL REFERENCES users(id),
    assigned_by        INTEGER NOT NULL REFERENCES users(id),
    base_id            INTEGER NOT NULL REFERENCES bases(id),
    assigned_at        DATETIME NOT NULL,
    expected_return    DATETIME,
    actual_return      DATETIME,
    status             TEXT NOT NULL DEFAULT 'active'
                       CHECK (status IN ('active', 'returned', 'expended', 'lost', 'damaged')),
    purpose            TEXT NOT NULL,
    mission_name       TEXT NOT NULL DEFAULT '',
    mission_code       TEXT NOT NULL DEFAULT '',
    mission_location   TEXT NOT NULL DEFAULT '',
    condition_assigned TEXT NOT NULL DEFAULT 'good'
                       CHECK (condition_assigned IN ('excellent', 'good', 'fair', 'poor')),
    condition_returned TEXT
                       CHECK (condition_returned IN ('excellent', 'good', 'fair', 'poor', 'damaged', 'destroyed')),
    notes              TEXT,
    expended_at        DATETIME,
    expended_by        INTEGER REFERENCES users(id),
    expend_reason      TEXT,
    expend_location    TEXT,
    expend_mission     TEXT,
    expend_witness     INTEGER REFERENCES users(id),
    created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_assignments_asset_active
    ON assignments(asset_id) WHERE status = 'active';

CREATE TABLE IF NOT EXISTS audit_log (
    id            INTEGER PRIMARY KEY,
    actor_id      INTEGER,
    actor_base_id INTEGER,
    action        TEXT NOT NULL,
    resource      TEXT NOT NULL,
    resource_id   TEXT NOT NULL DEFAULT '',
    details       TEXT NOT NULL DEFAULT '{}',
    severity      TEXT NOT NULL CHECK (severity IN ('low', 'medium', 'high', 'critical')),
    created_at    DATETIME NOT NULL
);

CREATE TRIGGER IF NOT EXISTS audit_log_no_update
    BEFORE UPDATE ON audit_log
    BEGIN SELECT RAISE(ABORT, 'audit log is append-only'); END;

CREATE TRIGGER IF NOT EXISTS audit_log_no_delete
    BEFORE DELETE ON audit_log
    BEGIN SELECT RAISE(ABORT, 'audit log is append-only'); END;

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// EnsureSchema creates all tables, indexes and triggers if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: lookup indexes for the base-scoped list queries.
	`CREATE INDEX IF NOT EXISTS idx_assets_base_status ON assets(base_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_purchases_base_status ON purchases(base_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_transfers_from ON transfers(from_base_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_transfers_to ON transfers(to_base_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_assignments_base_status ON assignments(base_id, status)`,
	// Migration 2: audit queries filter on time and resource.
	`CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_log(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_resource ON audit_log(resource, resource_id)`,
}

// Migrate ensures the schema and then runs the migrations in order.
func Migrate(db *sql.DB) error {
	if err := EnsureSchema(db); err != nil {
		return err
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
