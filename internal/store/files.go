package store

import (
	"database/sql"
	"fmt"
)

const fileCols = `id, path, language, mtime_ns, size_bytes, content_hash, indexed_at`

func (s *Store) scanFile(scanner interface{ Scan(...any) error }) (*File, error) {
	f := &File{}
	var hash sql.NullInt64
	err := scanner.Scan(&f.ID, &f.Path, &f.Language, &f.MtimeNs, &f.SizeBytes, &hash, &f.IndexedAt)
	if err != nil {
		return nil, err
	}
	if hash.Valid {
		h := uint64(hash.Int64)
		f.ContentHash = &h
	}
	return f, nil
}

// UpsertFile inserts a file row or, if the path already exists, refreshes its
// language, mtime, size, content hash, and indexed_at. Idempotent by path.
func (s *Store) UpsertFile(f *File) (int64, error) {
	var hash any
	if f.ContentHash != nil {
		hash = int64(*f.ContentHash)
	}
	_, err := s.db.Exec(
		`INSERT INTO files (path, language, mtime_ns, size_bytes, content_hash, indexed_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
		   language = excluded.language,
		   mtime_ns = excluded.mtime_ns,
		   size_bytes = excluded.size_bytes,
		   content_hash = excluded.content_hash,
		   indexed_at = excluded.indexed_at`,
		f.Path, f.Language, f.MtimeNs, f.SizeBytes, hash, f.IndexedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("upsert file: %w", err)
	}
	var id int64
	if err := s.db.QueryRow("SELECT id FROM files WHERE path = ?", f.Path).Scan(&id); err != nil {
		return 0, fmt.Errorf("upsert file: read id: %w", err)
	}
	f.ID = id
	return id, nil
}

// FileByPath returns the file with the given path, or nil if absent.
func (s *Store) FileByPath(path string) (*File, error) {
	f, err := s.scanFile(s.db.QueryRow("SELECT "+fileCols+" FROM files WHERE path = ?", path))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

// FileByID returns the file with the given id, or nil if absent.
func (s *Store) FileByID(id int64) (*File, error) {
	f, err := s.scanFile(s.db.QueryRow("SELECT "+fileCols+" FROM files WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by id: %w", err)
	}
	return f, nil
}

// AllFiles returns every file row.
func (s *Store) AllFiles() ([]*File, error) {
	rows, err := s.db.Query("SELECT " + fileCols + " FROM files")
	if err != nil {
		return nil, fmt.Errorf("all files: %w", err)
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f, err := s.scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// DeleteFile removes a file row. Symbols, refs, imports, file_deps, and
// call_edges that mention it go with it via ON DELETE CASCADE.
func (s *Store) DeleteFile(id int64) error {
	if _, err := s.db.Exec("DELETE FROM files WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// FilePaths returns a map of file id to path for every file.
func (s *Store) FilePaths() (map[int64]string, error) {
	rows, err := s.db.Query("SELECT id, path FROM files")
	if err != nil {
		return nil, fmt.Errorf("file paths: %w", err)
	}
	defer rows.Close()
	paths := make(map[int64]string)
	for rows.Next() {
		var id int64
		var path string
		if err := rows.Scan(&id, &path); err != nil {
			return nil, fmt.Errorf("scan file path: %w", err)
		}
		paths[id] = path
	}
	return paths, rows.Err()
}
