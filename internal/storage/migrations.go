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
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema: organizations, claims, documents",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS organizations (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					trust_score REAL NOT NULL DEFAULT 50,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS claims (
					id TEXT PRIMARY KEY,
					claim_number TEXT,
					org_id TEXT NOT NULL,
					patient_id TEXT,
					status TEXT NOT NULL DEFAULT 'draft',
					claimed_amount REAL NOT NULL DEFAULT 0,
					approved_amount REAL NOT NULL DEFAULT 0,
					admission_date DATETIME,
					discharge_date DATETIME,
					diagnosis_codes TEXT NOT NULL DEFAULT '[]',
					procedure_codes TEXT NOT NULL DEFAULT '[]',
					patient_age INTEGER NOT NULL DEFAULT 0,
					trust_score REAL,
					fraud_probability REAL,
					anomaly_score REAL,
					approval_likelihood REAL,
					recommendation TEXT,
					confidence REAL,
					analyzed_at DATETIME,
					explanation TEXT,
					matched_policies TEXT NOT NULL DEFAULT '[]',
					detected_risks TEXT NOT NULL DEFAULT '[]',
					violation_flags TEXT NOT NULL DEFAULT '[]',
					reviewer_suggestion TEXT NOT NULL DEFAULT '',
					workflow_stage TEXT NOT NULL DEFAULT '',
					auto_approval_eligible INTEGER NOT NULL DEFAULT 0,
					sla_deadline DATETIME,
					sla_breached INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (org_id) REFERENCES organizations(id)
				)`,
				`CREATE INDEX idx_claims_org ON claims(org_id)`,
				`CREATE INDEX idx_claims_patient ON claims(patient_id)`,
				`CREATE INDEX idx_claims_status ON claims(status)`,
				`CREATE INDEX idx_claims_created ON claims(created_at)`,

				`CREATE TABLE IF NOT EXISTS documents (
					id TEXT PRIMARY KEY,
					claim_id TEXT NOT NULL,
					file_name TEXT NOT NULL,
					mime_type TEXT NOT NULL DEFAULT '',
					ocr_extracted INTEGER NOT NULL DEFAULT 0,
					ocr_text TEXT NOT NULL DEFAULT '',
					ocr_confidence REAL NOT NULL DEFAULT 0,
					ocr_data TEXT NOT NULL DEFAULT '{}',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (claim_id) REFERENCES claims(id)
				)`,
				`CREATE INDEX idx_documents_claim ON documents(claim_id)`,
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
		Description: "Scoring result history and audit trail",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS scoring_results (
					id TEXT PRIMARY KEY,
					claim_id TEXT NOT NULL,
					model_version TEXT NOT NULL,
					fraud_score REAL NOT NULL,
					approval_score REAL NOT NULL,
					stat_anomaly_score REAL NOT NULL,
					deep_anomaly_score REAL NOT NULL,
					text_consistency_score REAL NOT NULL,
					entities TEXT NOT NULL DEFAULT '{}',
					trust_score REAL NOT NULL,
					fraud_probability REAL NOT NULL,
					anomaly_score REAL NOT NULL,
					approval_likelihood REAL NOT NULL,
					recommendation TEXT NOT NULL,
					confidence REAL NOT NULL,
					feature_importances TEXT NOT NULL DEFAULT '{}',
					risk_factors TEXT NOT NULL DEFAULT '[]',
					explanation_text TEXT NOT NULL DEFAULT '',
					pipeline TEXT NOT NULL DEFAULT '',
					processing_ms INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (claim_id) REFERENCES claims(id)
				)`,
				`CREATE INDEX idx_scoring_results_claim ON scoring_results(claim_id)`,

				`CREATE TABLE IF NOT EXISTS audit_events (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					event_type TEXT NOT NULL,
					resource_type TEXT NOT NULL,
					resource_id TEXT NOT NULL,
					event_data TEXT NOT NULL DEFAULT '{}',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_audit_events_resource ON audit_events(resource_type, resource_id)`,
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
		Description: "Organization trust score history",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS org_trust_history (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					org_id TEXT NOT NULL,
					score REAL NOT NULL,
					previous_score REAL NOT NULL,
					factors TEXT NOT NULL DEFAULT '{}',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (org_id) REFERENCES organizations(id)
				)
			`)
			return err
		},
	},
}

// Migrate applies any pending schema migrations.
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
