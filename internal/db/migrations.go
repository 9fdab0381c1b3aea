package db

import (
	"database/sql"
	"fmt"

	"github.com/kareemzeiad-ops/kero-feeder/internal/ration"
)

type migration struct {
	version int
	name    string
	sql     string
	// seed runs after sql inside the same transaction.
	seed func(tx *sql.Tx) error
}

var migrations = []migration{
	{
		version: 1,
		name:    "reference_schema",
		sql: `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  name TEXT NOT NULL,
  applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS ingredients (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL UNIQUE,
  protein REAL NOT NULL DEFAULT 0,
  tdn REAL NOT NULL DEFAULT 0,
  fiber REAL NOT NULL DEFAULT 0,
  fat REAL NOT NULL DEFAULT 0,
  cap_pct REAL NOT NULL DEFAULT 100,
  position INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS additives (
  name TEXT PRIMARY KEY,
  dose REAL NOT NULL CHECK(dose >= 0),
  position INTEGER NOT NULL DEFAULT 0,
  updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS purposes (
  name TEXT PRIMARY KEY,
  protein_target REAL NOT NULL,
  position INTEGER NOT NULL DEFAULT 0,
  updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS animal_types (
  name TEXT PRIMARY KEY,
  position INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_ingredients_position ON ingredients(position);
`,
	},
	{
		version: 2,
		name:    "app_config",
		sql: `
CREATE TABLE IF NOT EXISTS app_config (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`,
	},
	{
		version: 3,
		name:    "seed_reference_dataset",
		seed:    seedDataset,
	},
}

func ApplyMigrations(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  name TEXT NOT NULL,
  applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`); err != nil {
		return fmt.Errorf("ensure schema_migrations table: %w", err)
	}

	for _, m := range migrations {
		var exists int
		err := db.QueryRow(`SELECT 1 FROM schema_migrations WHERE version = ?`, m.version).Scan(&exists)
		if err == nil {
			continue
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("check migration version %d: %w", m.version, err)
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration tx: %w", err)
		}

		if m.sql != "" {
			if _, err := tx.Exec(m.sql); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("apply migration version %d (%s): %w", m.version, m.name, err)
			}
		}
		if m.seed != nil {
			if err := m.seed(tx); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("seed migration version %d (%s): %w", m.version, m.name, err)
			}
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations(version, name) VALUES(?, ?)`, m.version, m.name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration version %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration version %d: %w", m.version, err)
		}
	}

	return nil
}

// seedDataset loads the compiled-in reference dataset. It only runs once, so
// rows a user later deletes stay deleted.
func seedDataset(tx *sql.Tx) error {
	data := ration.Builtin()
	for i, ing := range data.Ingredients {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO ingredients(name, protein, tdn, fiber, fat, cap_pct, position) VALUES(?, ?, ?, ?, ?, ?, ?)`,
			ing.Name, ing.Protein, ing.TDN, ing.Fiber, ing.Fat, ing.CapPct, i+1); err != nil {
			return fmt.Errorf("seed ingredient %s: %w", ing.Name, err)
		}
	}
	for i, a := range data.Additives {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO additives(name, dose, position) VALUES(?, ?, ?)`, a.Name, a.Dose, i+1); err != nil {
			return fmt.Errorf("seed additive %s: %w", a.Name, err)
		}
	}
	for i, p := range data.Purposes {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO purposes(name, protein_target, position) VALUES(?, ?, ?)`, p.Name, p.ProteinTarget, i+1); err != nil {
			return fmt.Errorf("seed purpose %s: %w", p.Name, err)
		}
	}
	for i, name := range data.AnimalTypes {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO animal_types(name, position) VALUES(?, ?)`, name, i+1); err != nil {
			return fmt.Errorf("seed animal type %s: %w", name, err)
		}
	}
	return nil
}
