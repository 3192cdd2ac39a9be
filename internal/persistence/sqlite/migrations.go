package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// migration is a single ordered schema change. Versions must be unique and
// strictly increasing; applied versions are recorded in schema_migrations.
type migration struct {
	version     int
	description string
	statements  []string
}

var migrations = []migration{
	{
		version:     1,
		description: "create units table",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS units (
				id TEXT PRIMARY KEY,
				property_id TEXT NOT NULL,
				name TEXT NOT NULL,
				is_available INTEGER NOT NULL DEFAULT 1,
				base_price TEXT NOT NULL,
				currency TEXT NOT NULL,
				max_guests INTEGER NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_units_property ON units(property_id)`,
		},
	},
	{
		version:     2,
		description: "create unit_blocks table",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS unit_blocks (
				id TEXT PRIMARY KEY,
				unit_id TEXT NOT NULL REFERENCES units(id),
				booking_id TEXT,
				start_date TEXT NOT NULL,
				end_date TEXT NOT NULL,
				status TEXT NOT NULL,
				reason TEXT NOT NULL DEFAULT '',
				notes TEXT,
				created_at TEXT NOT NULL,
				deleted_at TEXT,
				is_deleted INTEGER NOT NULL DEFAULT 0,
				CHECK (start_date <= end_date)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_unit_blocks_unit_range ON unit_blocks(unit_id, start_date, end_date)`,
			`CREATE INDEX IF NOT EXISTS idx_unit_blocks_booking ON unit_blocks(booking_id)`,
		},
	},
	{
		version:     3,
		description: "create pricing_rules table",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS pricing_rules (
				id TEXT PRIMARY KEY,
				unit_id TEXT NOT NULL REFERENCES units(id),
				start_date TEXT NOT NULL,
				end_date TEXT NOT NULL,
				start_time TEXT,
				end_time TEXT,
				price_type TEXT NOT NULL,
				price_amount TEXT NOT NULL,
				percentage_change TEXT,
				pricing_tier TEXT NOT NULL,
				min_price TEXT,
				max_price TEXT,
				currency TEXT NOT NULL,
				description TEXT,
				created_at TEXT NOT NULL,
				deleted_at TEXT,
				is_deleted INTEGER NOT NULL DEFAULT 0,
				CHECK (start_date <= end_date)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_pricing_rules_unit_range ON pricing_rules(unit_id, start_date, end_date)`,
		},
	},
}

// Migrate applies all pending schema migrations in version order.
func (cp *ConnectionPool) Migrate(ctx context.Context) error {
	_, err := cp.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	for _, m := range migrations {
		applied, err := cp.migrationApplied(ctx, m.version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		err = cp.WithTransaction(ctx, func(tx *sql.Tx) error {
			for _, stmt := range m.statements {
				if _, err := tx.Exec(stmt); err != nil {
					return fmt.Errorf("migration %d (%s): %w", m.version, m.description, err)
				}
			}
			_, err := tx.Exec(
				"INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)",
				m.version, m.description, time.Now().UTC().Format(time.RFC3339),
			)
			if err != nil {
				return fmt.Errorf("failed to record migration %d: %w", m.version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func (cp *ConnectionPool) migrationApplied(ctx context.Context, version int) (bool, error) {
	var count int
	err := cp.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM schema_migrations WHERE version = ?", version).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check migration %d: %w", version, err)
	}
	return count > 0, nil
}
