package db

import (
	"database/sql"
	"fmt"
	"log"
)

// Ordered list of migrations. Each entry runs once, tracked by schema_version.
// NEVER reorder or remove entries, only append new ones.
var migrations = []string{
	// v1: playground preference order per rule, stored as a JSON array
	`ALTER TABLE booking_rules ADD COLUMN IF NOT EXISTS playground_order TEXT`,
	// v2: per-rule trigger time
	`ALTER TABLE booking_rules ADD COLUMN IF NOT EXISTS trigger_time TEXT NOT NULL DEFAULT '00:00'`,
}

const baseSchema = `
CREATE TABLE IF NOT EXISTS booking_rules (
	id SERIAL PRIMARY KEY,
	day_of_week INT NOT NULL,
	target_time TEXT NOT NULL,
	duration INT NOT NULL DEFAULT 60,
	activity TEXT NOT NULL DEFAULT 'football_5v5',
	enabled BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS booking_logs (
	id SERIAL PRIMARY KEY,
	rule_id INT REFERENCES booking_rules(id),
	target_date TEXT NOT NULL,
	target_time TEXT NOT NULL,
	booked_time TEXT,
	playground TEXT,
	status TEXT NOT NULL,
	booking_id TEXT,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
	version INT PRIMARY KEY
);
`

// InitSchema creates the base tables, runs any pending migrations and seeds
// the default settings.
func InitSchema(db *sql.DB) error {
	if _, err := db.Exec(baseSchema); err != nil {
		return fmt.Errorf("creating base schema: %w", err)
	}

	var current sql.NullInt64
	if err := db.QueryRow(`SELECT MAX(version) FROM schema_version`).Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for i := int(current.Int64); i < len(migrations); i++ {
		log.Printf("[DB] Running migration v%d...", i+1)
		if _, err := db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("migration v%d: %w", i+1, err)
		}
		if _, err := db.Exec(`INSERT INTO schema_version (version) VALUES ($1)`, i+1); err != nil {
			return fmt.Errorf("recording migration v%d: %w", i+1, err)
		}
	}

	seeds := map[string]string{
		"booking_advance_days": "45",
		"timezone":             "Europe/Paris",
	}
	for key, value := range seeds {
		if _, err := db.Exec(
			`INSERT INTO settings (key, value) VALUES ($1, $2) ON CONFLICT (key) DO NOTHING`,
			key, value,
		); err != nil {
			return fmt.Errorf("seeding setting %s: %w", key, err)
		}
	}
	return nil
}
