package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
)

// SchemaVersion is the version marker written to the meta table on migration.
// Opening a database written by a newer Tethys fails with ErrSchemaNewer.
const SchemaVersion = 1

// ErrSchemaNewer is returned by Migrate when the on-disk schema version is
// greater than SchemaVersion.
var ErrSchemaNewer = errors.New("database schema is newer than this version of tethys")

// Store is the SQLite data access layer for the index.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode, foreign keys,
// and a busy timeout enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes and records the schema version.
// Idempotent. Fails with ErrSchemaNewer if the database was written by a
// newer Tethys.
func (s *Store) Migrate() error {
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	stored, err := s.GetMeta("schema_version")
	if err != nil {
		return fmt.Errorf("migrate: read schema version: %w", err)
	}
	if stored != "" {
		v, err := strconv.Atoi(stored)
		if err != nil {
			return fmt.Errorf("migrate: malformed schema version %q", stored)
		}
		if v > SchemaVersion {
			return fmt.Errorf("migrate: stored version %d, supported %d: %w", v, SchemaVersion, ErrSchemaNewer)
		}
		return nil
	}
	return s.SetMeta("schema_version", strconv.Itoa(SchemaVersion))
}

// Reset drops every row from every table, keeping the schema and version
// marker in place. Used by Rebuild before a full reindex.
func (s *Store) Reset() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("reset: begin: %w", err)
	}
	defer tx.Rollback()

	// Leaf tables first so FK checks never fire mid-delete.
	for _, table := range []string{"call_edges", "file_deps", "imports", "refs", "symbols", "files"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("reset: clear %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("reset: commit: %w", err)
	}
	return nil
}

// GetMeta returns the value for a meta key, or "" if the key is absent.
func (s *Store) GetMeta(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get meta %q: %w", key, err)
	}
	return value, nil
}

// SetMeta writes a meta key, replacing any previous value.
func (s *Store) SetMeta(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set meta %q: %w", key, err)
	}
	return nil
}

const schemaDDL = `
-- Schema metadata (version marker and ad-hoc key/value pairs)

CREATE TABLE IF NOT EXISTS meta (
  key             TEXT PRIMARY KEY,
  value           TEXT NOT NULL
);

-- Indexed source files

CREATE TABLE IF NOT EXISTS files (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE,
  language        TEXT NOT NULL,
  mtime_ns        INTEGER NOT NULL,
  size_bytes      INTEGER NOT NULL,
  content_hash    INTEGER,
  indexed_at      INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_files_path ON files(path);
CREATE INDEX IF NOT EXISTS idx_files_language ON files(language);

-- Symbol definitions

CREATE TABLE IF NOT EXISTS symbols (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
  name            TEXT NOT NULL,
  module_path     TEXT NOT NULL,
  qualified_name  TEXT NOT NULL,
  kind            TEXT NOT NULL,
  line            INTEGER NOT NULL,
  column          INTEGER NOT NULL,
  end_line        INTEGER,
  end_column      INTEGER,
  signature       TEXT,
  visibility      TEXT NOT NULL,
  parent_symbol_id INTEGER REFERENCES symbols(id) ON DELETE CASCADE,
  is_test         INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);
CREATE INDEX IF NOT EXISTS idx_symbols_module_path ON symbols(module_path);
CREATE INDEX IF NOT EXISTS idx_symbols_qualified ON symbols(qualified_name);
CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file_id);
CREATE INDEX IF NOT EXISTS idx_symbols_kind ON symbols(kind);
CREATE INDEX IF NOT EXISTS idx_symbols_is_test ON symbols(is_test) WHERE is_test = 1;

-- References (usages of symbols). symbol_id is NULL until the resolve pass
-- binds it; reference_name holds the candidate name until then.

CREATE TABLE IF NOT EXISTS refs (
  id              INTEGER PRIMARY KEY,
  symbol_id       INTEGER REFERENCES symbols(id) ON DELETE CASCADE,
  file_id         INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
  kind            TEXT NOT NULL,
  line            INTEGER NOT NULL,
  column          INTEGER NOT NULL,
  end_line        INTEGER,
  end_column      INTEGER,
  in_symbol_id    INTEGER REFERENCES symbols(id) ON DELETE CASCADE,
  reference_name  TEXT
);

CREATE INDEX IF NOT EXISTS idx_refs_symbol ON refs(symbol_id);
CREATE INDEX IF NOT EXISTS idx_refs_file ON refs(file_id);
CREATE INDEX IF NOT EXISTS idx_refs_in_symbol ON refs(in_symbol_id);
CREATE INDEX IF NOT EXISTS idx_refs_unresolved ON refs(symbol_id) WHERE symbol_id IS NULL;

-- Import statements for cross-file reference resolution

CREATE TABLE IF NOT EXISTS imports (
  file_id         INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
  symbol_name     TEXT NOT NULL,
  source_module   TEXT NOT NULL,
  alias           TEXT,
  PRIMARY KEY (file_id, symbol_name, source_module)
);

CREATE INDEX IF NOT EXISTS idx_imports_file ON imports(file_id);
CREATE INDEX IF NOT EXISTS idx_imports_symbol ON imports(symbol_name);

-- File-level dependencies (denormalized for fast impact queries)

CREATE TABLE IF NOT EXISTS file_deps (
  from_file_id    INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
  to_file_id      INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
  ref_count       INTEGER NOT NULL DEFAULT 1,
  PRIMARY KEY (from_file_id, to_file_id)
);

CREATE INDEX IF NOT EXISTS idx_file_deps_to ON file_deps(to_file_id);

-- Pre-computed call graph edges, populated from refs where both the
-- enclosing symbol and the target are resolved.

CREATE TABLE IF NOT EXISTS call_edges (
  caller_symbol_id INTEGER NOT NULL REFERENCES symbols(id) ON DELETE CASCADE,
  callee_symbol_id INTEGER NOT NULL REFERENCES symbols(id) ON DELETE CASCADE,
  call_count       INTEGER NOT NULL DEFAULT 1,
  PRIMARY KEY (caller_symbol_id, callee_symbol_id)
);

CREATE INDEX IF NOT EXISTS idx_call_edges_callee ON call_edges(callee_symbol_id);
CREATE INDEX IF NOT EXISTS idx_call_edges_caller ON call_edges(caller_symbol_id);
`
