package storage

import (
	"database/sql"
	"fmt"
)

// SentinelPresetID is the immutable, undeletable "local preset" row.
const SentinelPresetID = 1

// InitSchema creates all required tables, indexes and seed rows.
// This is idempotent - safe to call multiple times.
func InitSchema(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	ddlStatements := []string{
		// cloud_services: one row per configured provider account. The
		// credential_values blob is AES-GCM encrypted; its keys are defined by
		// the registry descriptor for service_type, not by this schema.
		`CREATE TABLE IF NOT EXISTS cloud_services (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			created TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			service_type TEXT NOT NULL DEFAULT '',
			credential_values BLOB NOT NULL DEFAULT ''
		)`,

		// presets: named field-value bundles owned by a service. The
		// specification_values keys are defined by the owning service type's
		// preset descriptor.
		`CREATE TABLE IF NOT EXISTS presets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			service INTEGER NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			preset_type TEXT NOT NULL,
			specification_values TEXT NOT NULL DEFAULT '{}',
			created TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (service) REFERENCES cloud_services(id) ON DELETE CASCADE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_presets_service ON presets(service)`,

		// admin_tokens: bcrypt-hashed bearer tokens for the admin API.
		`CREATE TABLE IF NOT EXISTS admin_tokens (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			token_hash TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, stmt := range ddlStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute DDL: %w", err)
		}
	}

	return seed(db)
}

// seed inserts the initial Azure service row and the sentinel local preset if
// they are absent.
func seed(db *sql.DB) error {
	if _, err := db.Exec(
		`INSERT OR IGNORE INTO cloud_services (id, name, service_type, credential_values) VALUES (1, 'Azure', 'azureDefault', '')`,
	); err != nil {
		return fmt.Errorf("failed to seed cloud_services: %w", err)
	}

	if _, err := db.Exec(
		`INSERT OR IGNORE INTO presets (id, service, name, description, preset_type, specification_values)
		 VALUES (?, 1, 'Local', 'Run on the local executor without cloud provisioning', 'local', '{}')`,
		SentinelPresetID,
	); err != nil {
		return fmt.Errorf("failed to seed presets: %w", err)
	}

	return nil
}
