package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a
// fatal error.
const ExpectedSchemaVersion = 4

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Supplier learning profiles and alias index",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS supplier_profiles (
					company_id TEXT NOT NULL,
					normalized_name TEXT NOT NULL,
					display_name TEXT NOT NULL,
					category TEXT NOT NULL,
					default_account TEXT,
					default_account_name TEXT,
					default_vat_code TEXT,
					default_cost_center TEXT,
					aliases TEXT,
					account_history TEXT,
					patterns TEXT,
					learning_stats TEXT,
					created_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL,
					PRIMARY KEY (company_id, normalized_name)
				)`,
				`CREATE TABLE IF NOT EXISTS supplier_aliases (
					company_id TEXT NOT NULL,
					alias TEXT NOT NULL,
					primary_name TEXT NOT NULL,
					PRIMARY KEY (company_id, alias)
				)`,
				`CREATE INDEX idx_supplier_aliases_primary ON supplier_aliases(company_id, primary_name)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Transaction patterns",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS transaction_patterns (
					company_id TEXT NOT NULL,
					pattern_id TEXT NOT NULL,
					pattern TEXT NOT NULL,
					account TEXT NOT NULL,
					account_name TEXT,
					usage_count INTEGER NOT NULL DEFAULT 0,
					success_rate REAL NOT NULL DEFAULT 0,
					last_used DATETIME NOT NULL,
					created_at DATETIME NOT NULL,
					PRIMARY KEY (company_id, pattern_id)
				)`,
				`CREATE INDEX idx_patterns_success_rate ON transaction_patterns(company_id, success_rate)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Jobs from document splitting",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS jobs (
					id TEXT PRIMARY KEY,
					company_id TEXT NOT NULL,
					file_name TEXT NOT NULL,
					primary_image_ref TEXT NOT NULL,
					status TEXT NOT NULL,
					page_refs TEXT NOT NULL,
					page_numbers TEXT NOT NULL,
					document_index INTEGER NOT NULL DEFAULT 0,
					is_multi_page BOOLEAN NOT NULL DEFAULT 0,
					split_from_original BOOLEAN NOT NULL DEFAULT 0,
					created_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_jobs_company ON jobs(company_id, created_at)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     4,
		Description: "Correction audit trail",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS corrections (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					company_id TEXT NOT NULL,
					normalized_name TEXT NOT NULL,
					original_account TEXT,
					corrected_account TEXT NOT NULL,
					corrected_account_name TEXT,
					timestamp DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_corrections_company_time ON corrections(company_id, timestamp)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
