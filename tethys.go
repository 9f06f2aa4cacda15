package tethys

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jward/tethys/internal/store"
)

// Tethys binds the indexing pipeline and query API to a single workspace
// root and database file.
type Tethys struct {
	workspace string // absolute
	dbPath    string
	store     *store.Store
	logger    *slog.Logger
	progress  func(path string)
}

// Option configures a Tethys handle.
type Option func(*Tethys)

// WithLogger sets the logger used by the pipeline. Defaults to
// slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tethys) {
		t.logger = logger
	}
}

// WithProgress installs a callback invoked once per file committed during
// indexing. Used by the CLI to drive its progress display.
func WithProgress(fn func(path string)) Option {
	return func(t *Tethys) {
		t.progress = fn
	}
}

// Open opens (or creates) the index for a workspace, with the database at
// .tethys/index.db under the workspace root.
func Open(workspaceRoot string, opts ...Option) (*Tethys, error) {
	abs, err := filepath.Abs(workspaceRoot)
	if err != nil {
		return nil, fmt.Errorf("tethys: resolve workspace root: %w", err)
	}
	return OpenWithDB(abs, filepath.Join(abs, ".tethys", "index.db"), opts...)
}

// OpenWithDB opens (or creates) the index for a workspace with an explicit
// database path.
func OpenWithDB(workspaceRoot, dbPath string, opts ...Option) (*Tethys, error) {
	abs, err := filepath.Abs(workspaceRoot)
	if err != nil {
		return nil, fmt.Errorf("tethys: resolve workspace root: %w", err)
	}
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("tethys: workspace root is not a directory: %s", abs)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("tethys: create database directory: %w", err)
	}

	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("tethys: open store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("tethys: migrate: %w", err)
	}

	t := &Tethys{
		workspace: abs,
		dbPath:    dbPath,
		store:     s,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Close releases the database.
func (t *Tethys) Close() error {
	return t.store.Close()
}

// DBPath returns the path of the backing database file.
func (t *Tethys) DBPath() string {
	return t.dbPath
}

// Workspace returns the absolute workspace root.
func (t *Tethys) Workspace() string {
	return t.workspace
}

// absPath resolves a possibly workspace-relative path to the absolute form
// stored in the index.
func (t *Tethys) absPath(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(t.workspace, path)
}
