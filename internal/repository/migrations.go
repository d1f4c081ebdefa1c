package repository

import (
	"context"
	"database/sql"
	"fmt"

	"entgo.io/ent/dialect"
)

// SchemaVersion is the latest migration this build knows about.
const SchemaVersion = 2

// Migration is one forward-only schema step. Up returns the statements for
// the given ent dialect.
type Migration struct {
	Up          func(dialectName string) []string
	Description string
	Version     int
}

func idColumn(dialectName string) string {
	if dialectName == dialect.Postgres {
		return "BIGSERIAL PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial estimates schema",
		Up: func(d string) []string {
			return []string{
				`CREATE TABLE IF NOT EXISTS estimates (
					id ` + idColumn(d) + `,
					vendor_name TEXT NOT NULL,
					vendor_address TEXT NOT NULL DEFAULT '',
					estimate_date TEXT NOT NULL,
					total_excl_tax BIGINT NOT NULL CHECK (total_excl_tax >= 0),
					total_incl_tax BIGINT NOT NULL CHECK (total_incl_tax >= 0),
					method TEXT NOT NULL DEFAULT '',
					warnings TEXT NOT NULL DEFAULT '[]',
					created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE TABLE IF NOT EXISTS estimate_items (
					id ` + idColumn(d) + `,
					estimate_id BIGINT NOT NULL REFERENCES estimates(id) ON DELETE CASCADE,
					raw_name TEXT NOT NULL,
					corrected_name TEXT NOT NULL DEFAULT '',
					canonical_name TEXT NOT NULL,
					cost_type TEXT NOT NULL CHECK (cost_type IN ('parts', 'labor', 'statutory_fees', 'other')),
					amount_excl_tax BIGINT NOT NULL CHECK (amount_excl_tax >= 0),
					quantity INTEGER NOT NULL DEFAULT 1 CHECK (quantity >= 1),
					confidence TEXT NOT NULL DEFAULT ''
				)`,
				`CREATE INDEX IF NOT EXISTS idx_estimate_items_canonical ON estimate_items(canonical_name)`,
				`CREATE INDEX IF NOT EXISTS idx_estimate_items_estimate ON estimate_items(estimate_id)`,
			}
		},
	},
	{
		Version:     2,
		Description: "Index vendor and date lookups for search and export",
		Up: func(string) []string {
			return []string{
				`CREATE INDEX IF NOT EXISTS idx_estimates_vendor ON estimates(vendor_name)`,
				`CREATE INDEX IF NOT EXISTS idx_estimates_date ON estimates(estimate_date)`,
			}
		},
	},
}

// Migrate applies every migration newer than the recorded schema version.
func (db *DB) Migrate(ctx context.Context) error {
	sqlDB := db.drv.DB()
	if _, err := sqlDB.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	current, err := db.CurrentVersion(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := db.apply(ctx, sqlDB, m); err != nil {
			return err
		}
		db.logger.Info("repository.migration.applied", "version", m.Version, "description", m.Description)
	}

	if v, err := db.CurrentVersion(ctx); err != nil {
		return err
	} else if v != SchemaVersion {
		return fmt.Errorf("schema version mismatch: expected %d, got %d", SchemaVersion, v)
	}
	return nil
}

func (db *DB) apply(ctx context.Context, sqlDB *sql.DB, m Migration) error {
	tx, err := sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	for _, q := range m.Up(db.dialect) {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", m.Version, err)
		}
	}

	q, args := db.builder().Insert("schema_migrations").
		Columns("version", "description").
		Values(m.Version, m.Description).
		Query()
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
	}
	return nil
}

// CurrentVersion returns the highest applied migration, or 0.
func (db *DB) CurrentVersion(ctx context.Context) (int, error) {
	var v sql.NullInt64
	err := db.drv.DB().QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return int(v.Int64), nil
}
