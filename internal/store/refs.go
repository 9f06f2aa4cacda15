package store

import "fmt"

const refCols = `id, symbol_id, file_id, kind, line, column, end_line, end_column, in_symbol_id, reference_name`

func scanReference(scanner interface{ Scan(...any) error }) (*Reference, error) {
	r := &Reference{}
	err := scanner.Scan(
		&r.ID, &r.SymbolID, &r.FileID, &r.Kind, &r.Line, &r.Column,
		&r.EndLine, &r.EndColumn, &r.InSymbolID, &r.ReferenceName,
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Store) queryReferences(query string, args ...any) ([]*Reference, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var refs []*Reference
	for rows.Next() {
		r, err := scanReference(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reference: %w", err)
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

// ReferencesByFile returns all references recorded in a file.
func (s *Store) ReferencesByFile(fileID int64) ([]*Reference, error) {
	return s.queryReferences("SELECT "+refCols+" FROM refs WHERE file_id = ?", fileID)
}

// ReferencesToSymbol returns resolved references targeting a symbol.
func (s *Store) ReferencesToSymbol(symbolID int64) ([]*Reference, error) {
	return s.queryReferences(
		"SELECT "+refCols+" FROM refs WHERE symbol_id = ? ORDER BY file_id, line", symbolID)
}

// UnresolvedReferences returns references still carrying a reference_name.
func (s *Store) UnresolvedReferences() ([]*Reference, error) {
	return s.queryReferences(
		"SELECT " + refCols + " FROM refs WHERE symbol_id IS NULL AND reference_name IS NOT NULL")
}

// BindReference sets a reference's target and clears its candidate name.
// Resolved references never carry a stale name.
func (s *Store) BindReference(refID, symbolID int64) error {
	_, err := s.db.Exec(
		"UPDATE refs SET symbol_id = ?, reference_name = NULL WHERE id = ?", symbolID, refID)
	if err != nil {
		return fmt.Errorf("bind reference %d: %w", refID, err)
	}
	return nil
}

// ResolvedCount returns the number of references with a bound target.
func (s *Store) ResolvedCount() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM refs WHERE symbol_id IS NOT NULL").Scan(&n); err != nil {
		return 0, fmt.Errorf("resolved count: %w", err)
	}
	return n, nil
}
