package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(ctx context.Context, tx *sql.Tx, d dialect) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial ledger schema",
		Up: func(ctx context.Context, tx *sql.Tx, d dialect) error {
			queries := []string{
				fmt.Sprintf(`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					owner_id TEXT NOT NULL,
					title TEXT NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					amount %[1]s NOT NULL,
					type TEXT NOT NULL CHECK (type IN ('INCOME', 'EXPENSE')),
					category TEXT NOT NULL,
					payment_method TEXT NOT NULL DEFAULT '',
					date %[2]s NOT NULL,
					recurring_status TEXT NOT NULL DEFAULT 'NON_RECURRING',
					created_at %[2]s NOT NULL,
					updated_at %[2]s NOT NULL
				)`, d.amountType(), d.timeType()),
				`CREATE INDEX IF NOT EXISTS idx_transactions_owner_date ON transactions(owner_id, date)`,
			}
			return execAll(ctx, tx, queries)
		},
	},
	{
		Version:     2,
		Description: "Add recurrence rule columns",
		Up: func(ctx context.Context, tx *sql.Tx, _ dialect) error {
			return execAll(ctx, tx, []string{
				`ALTER TABLE transactions ADD COLUMN recurring_interval TEXT`,
				`ALTER TABLE transactions ADD COLUMN recurring_interval_count INTEGER`,
			})
		},
	},
	{
		Version:     3,
		Description: "Add filter indexes",
		Up: func(ctx context.Context, tx *sql.Tx, _ dialect) error {
			return execAll(ctx, tx, []string{
				`CREATE INDEX IF NOT EXISTS idx_transactions_owner_type ON transactions(owner_id, type)`,
				`CREATE INDEX IF NOT EXISTS idx_transactions_owner_recurring ON transactions(owner_id, recurring_status)`,
			})
		},
	},
}

func execAll(ctx context.Context, tx *sql.Tx, queries []string) error {
	for _, query := range queries {
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// Migrate applies all pending database migrations.
func (s *SQLStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	if err := s.dialect.bootstrap(ctx, s.db); err != nil {
		return storeErr("prepare schema versioning", err)
	}

	currentVersion, err := s.dialect.schemaVersion(ctx, s.db)
	if err != nil {
		return storeErr("get schema version", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return storeErr("begin transaction", txErr)
		}

		if upErr := migration.Up(ctx, tx, s.dialect); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if execErr := s.dialect.setSchemaVersion(ctx, tx, migration.Version); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"driver", s.dialect.name(),
			"version", migration.Version,
			"description", migration.Description)
	}

	finalVersion, err := s.dialect.schemaVersion(ctx, s.db)
	if err != nil {
		return storeErr("verify final schema version", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion reports the schema version currently applied to the database.
func (s *SQLStorage) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := s.dialect.bootstrap(ctx, s.db); err != nil {
		return 0, storeErr("prepare schema versioning", err)
	}
	version, err := s.dialect.schemaVersion(ctx, s.db)
	if err != nil {
		return 0, storeErr("get schema version", err)
	}
	return version, nil
}
