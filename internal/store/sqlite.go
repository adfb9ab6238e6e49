// Package store provides the SQLite persistence layer: the entity
// catalog with full-text search, the sources catalog, and the job and
// journal tables the runner operates on.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store wraps a WAL-mode SQLite database.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS plants (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	name            TEXT NOT NULL,
	scientific_name TEXT NOT NULL DEFAULT '',
	family          TEXT NOT NULL DEFAULT '',
	common_names    TEXT NOT NULL DEFAULT '[]',
	description     TEXT NOT NULL DEFAULT '',
	taxonomy_id     TEXT NOT NULL DEFAULT '',
	created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_plants_name       ON plants(name);
CREATE INDEX IF NOT EXISTS idx_plants_scientific ON plants(scientific_name);

CREATE TABLE IF NOT EXISTS ingredients (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	name              TEXT NOT NULL,
	synonyms          TEXT NOT NULL DEFAULT '[]',
	cas_number        TEXT NOT NULL DEFAULT '',
	pubchem_cid       TEXT NOT NULL DEFAULT '',
	inchi_key         TEXT NOT NULL DEFAULT '',
	smiles            TEXT NOT NULL DEFAULT '',
	molecular_formula TEXT NOT NULL DEFAULT '',
	molecular_weight  REAL NOT NULL DEFAULT 0,
	description       TEXT NOT NULL DEFAULT '',
	created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_ingredients_name    ON ingredients(name);
CREATE INDEX IF NOT EXISTS idx_ingredients_pubchem ON ingredients(pubchem_cid);

CREATE TABLE IF NOT EXISTS ailments (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL,
	synonyms    TEXT NOT NULL DEFAULT '[]',
	icd10_code  TEXT NOT NULL DEFAULT '',
	mesh_id     TEXT NOT NULL DEFAULT '',
	category    TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_ailments_name ON ailments(name);

CREATE TABLE IF NOT EXISTS recipes (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL,
	tradition   TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	preparation TEXT NOT NULL DEFAULT '',
	dosage      TEXT NOT NULL DEFAULT '',
	source_id   INTEGER,
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (source_id) REFERENCES sources(id)
);
CREATE INDEX IF NOT EXISTS idx_recipes_name ON recipes(name);

CREATE TABLE IF NOT EXISTS sources (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	name         TEXT NOT NULL UNIQUE,
	url          TEXT NOT NULL DEFAULT '',
	source_type  TEXT NOT NULL DEFAULT 'manual',
	priority     INTEGER NOT NULL DEFAULT 50,
	enabled      INTEGER NOT NULL DEFAULT 1,
	last_scraped DATETIME,
	config       TEXT,
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS jobs (
	id            TEXT PRIMARY KEY,
	job_type      TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'pending',
	query         TEXT,
	progress      TEXT,
	results_count INTEGER NOT NULL DEFAULT 0,
	error         TEXT NOT NULL DEFAULT '',
	started_at    DATETIME,
	completed_at  DATETIME,
	created_at    DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_jobs_status     ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);

CREATE TABLE IF NOT EXISTS job_results (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	job_id      TEXT NOT NULL,
	result_type TEXT NOT NULL DEFAULT '',
	result_data TEXT,
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (job_id) REFERENCES jobs(id)
);

CREATE TABLE IF NOT EXISTS journal (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	job_id     TEXT,
	event_type TEXT NOT NULL,
	event_data TEXT,
	created_at DATETIME NOT NULL,
	FOREIGN KEY (job_id) REFERENCES jobs(id)
);
CREATE INDEX IF NOT EXISTS idx_journal_job_id ON journal(job_id);

CREATE VIRTUAL TABLE IF NOT EXISTS fts_plants USING fts5(
	name, scientific_name, common_names, description,
	content='plants', content_rowid='id'
);
CREATE VIRTUAL TABLE IF NOT EXISTS fts_ingredients USING fts5(
	name, synonyms, description,
	content='ingredients', content_rowid='id'
);
CREATE VIRTUAL TABLE IF NOT EXISTS fts_ailments USING fts5(
	name, synonyms, description,
	content='ailments', content_rowid='id'
);
CREATE VIRTUAL TABLE IF NOT EXISTS fts_recipes USING fts5(
	name, description, preparation,
	content='recipes', content_rowid='id'
);

CREATE TRIGGER IF NOT EXISTS plants_ai AFTER INSERT ON plants BEGIN
	INSERT INTO fts_plants(rowid, name, scientific_name, common_names, description)
	VALUES (new.id, new.name, new.scientific_name, new.common_names, new.description);
END;
CREATE TRIGGER IF NOT EXISTS plants_ad AFTER DELETE ON plants BEGIN
	INSERT INTO fts_plants(fts_plants, rowid, name, scientific_name, common_names, description)
	VALUES ('delete', old.id, old.name, old.scientific_name, old.common_names, old.description);
END;
CREATE TRIGGER IF NOT EXISTS ingredients_ai AFTER INSERT ON ingredients BEGIN
	INSERT INTO fts_ingredients(rowid, name, synonyms, description)
	VALUES (new.id, new.name, new.synonyms, new.description);
END;
CREATE TRIGGER IF NOT EXISTS ingredients_ad AFTER DELETE ON ingredients BEGIN
	INSERT INTO fts_ingredients(fts_ingredients, rowid, name, synonyms, description)
	VALUES ('delete', old.id, old.name, old.synonyms, old.description);
END;
CREATE TRIGGER IF NOT EXISTS ailments_ai AFTER INSERT ON ailments BEGIN
	INSERT INTO fts_ailments(rowid, name, synonyms, description)
	VALUES (new.id, new.name, new.synonyms, new.description);
END;
CREATE TRIGGER IF NOT EXISTS ailments_ad AFTER DELETE ON ailments BEGIN
	INSERT INTO fts_ailments(fts_ailments, rowid, name, synonyms, description)
	VALUES ('delete', old.id, old.name, old.synonyms, old.description);
END;
CREATE TRIGGER IF NOT EXISTS recipes_ai AFTER INSERT ON recipes BEGIN
	INSERT INTO fts_recipes(rowid, name, description, preparation)
	VALUES (new.id, new.name, new.description, new.preparation);
END;
CREATE TRIGGER IF NOT EXISTS recipes_ad AFTER DELETE ON recipes BEGIN
	INSERT INTO fts_recipes(fts_recipes, rowid, name, description, preparation)
	VALUES ('delete', old.id, old.name, old.description, old.preparation);
END;
`

// New opens (or creates) the SQLite database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// WAL mode for better concurrent read performance; the single-writer
	// discipline above this layer relies on it.
	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err = db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Stats returns per-table row counts for display.
func (s *Store) Stats(ctx context.Context) (map[string]int, error) {
	stats := make(map[string]int)
	for _, table := range []string{"plants", "ingredients", "ailments", "recipes", "sources", "jobs"} {
		var n int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		stats[table] = n
	}
	return stats, nil
}

// jsonText marshals v for a TEXT column, nil for empty maps.
func jsonText(v map[string]any) any {
	if len(v) == 0 {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return string(b)
}

// jsonList marshals a string slice for a TEXT column, "[]" when empty.
func jsonList(v []string) string {
	if len(v) == 0 {
		return "[]"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func unmarshalList(s string) []string {
	if s == "" || s == "[]" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}
