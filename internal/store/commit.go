package store

import (
	"database/sql"
	"fmt"
)

// SymbolRecord is a to-be-inserted symbol. Its parent, if any, is referenced
// by local index into the same batch rather than a database id.
type SymbolRecord struct {
	Symbol
	ParentLocal int // index into FileFacts.Symbols, -1 for none
}

// ReferenceRecord is a to-be-inserted reference. The enclosing definition is
// referenced by local index into the batch's symbols.
type ReferenceRecord struct {
	Reference
	ContainingLocal int // index into FileFacts.Symbols, -1 for none
}

// FileFacts is everything an extractor produced for one file. Extractors
// build FileFacts as plain values; they never touch the store.
type FileFacts struct {
	Symbols []SymbolRecord
	Refs    []ReferenceRecord
	Imports []Import
}

// ReplaceFileFacts transactionally replaces all indexed data for a file:
// the file row is upserted, its previous symbols, refs, and imports are
// deleted, and the new facts are inserted. Symbols go in first so parent and
// containing-symbol links resolve; parents must precede children in the
// batch (extractors emit definitions in document order, which guarantees it).
func (s *Store) ReplaceFileFacts(f *File, facts *FileFacts) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("replace file facts: begin: %w", err)
	}
	defer tx.Rollback()

	fileID, err := upsertFileTx(tx, f)
	if err != nil {
		return fmt.Errorf("replace file facts: %w", err)
	}

	// Cascade-delete the file's previous rows before the bulk insert.
	for _, q := range []string{
		"DELETE FROM symbols WHERE file_id = ?",
		"DELETE FROM refs WHERE file_id = ?",
		"DELETE FROM imports WHERE file_id = ?",
	} {
		if _, err := tx.Exec(q, fileID); err != nil {
			return fmt.Errorf("replace file facts: clear old rows: %w", err)
		}
	}

	localToID := make([]int64, len(facts.Symbols))
	for i := range facts.Symbols {
		rec := facts.Symbols[i]
		rec.FileID = fileID
		if rec.ParentLocal >= 0 {
			id := localToID[rec.ParentLocal]
			rec.ParentSymbolID = &id
		}
		id, err := insertSymbolTx(tx, &rec.Symbol)
		if err != nil {
			return fmt.Errorf("replace file facts: symbol %q: %w", rec.Name, err)
		}
		localToID[i] = id
	}

	for i := range facts.Refs {
		rec := facts.Refs[i]
		rec.FileID = fileID
		if rec.ContainingLocal >= 0 {
			id := localToID[rec.ContainingLocal]
			rec.InSymbolID = &id
		}
		if err := insertReferenceTx(tx, &rec.Reference); err != nil {
			return fmt.Errorf("replace file facts: reference: %w", err)
		}
	}

	for i := range facts.Imports {
		imp := facts.Imports[i]
		imp.FileID = fileID
		if err := insertImportTx(tx, &imp); err != nil {
			return fmt.Errorf("replace file facts: import %q: %w", imp.SymbolName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replace file facts: commit: %w", err)
	}
	f.ID = fileID
	return nil
}

func upsertFileTx(tx *sql.Tx, f *File) (int64, error) {
	var hash any
	if f.ContentHash != nil {
		hash = int64(*f.ContentHash)
	}
	_, err := tx.Exec(
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
	if err := tx.QueryRow("SELECT id FROM files WHERE path = ?", f.Path).Scan(&id); err != nil {
		return 0, fmt.Errorf("upsert file: read id: %w", err)
	}
	return id, nil
}

func insertSymbolTx(tx *sql.Tx, sym *Symbol) (int64, error) {
	res, err := tx.Exec(
		`INSERT INTO symbols (file_id, name, module_path, qualified_name, kind, line, column,
			end_line, end_column, signature, visibility, parent_symbol_id, is_test)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sym.FileID, sym.Name, sym.ModulePath, sym.QualifiedName, sym.Kind,
		sym.Line, sym.Column, sym.EndLine, sym.EndColumn, sym.Signature,
		sym.Visibility, sym.ParentSymbolID, sym.IsTest,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	sym.ID = id
	return id, nil
}

func insertReferenceTx(tx *sql.Tx, ref *Reference) error {
	res, err := tx.Exec(
		`INSERT INTO refs (symbol_id, file_id, kind, line, column, end_line, end_column,
			in_symbol_id, reference_name)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ref.SymbolID, ref.FileID, ref.Kind, ref.Line, ref.Column,
		ref.EndLine, ref.EndColumn, ref.InSymbolID, ref.ReferenceName,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ref.ID = id
	return nil
}

func insertImportTx(tx *sql.Tx, imp *Import) error {
	// Duplicate use lines collapse onto the same row.
	_, err := tx.Exec(
		`INSERT OR REPLACE INTO imports (file_id, symbol_name, source_module, alias)
		 VALUES (?, ?, ?, ?)`,
		imp.FileID, imp.SymbolName, imp.SourceModule, imp.Alias,
	)
	return err
}
