package store

import "fmt"

// PanicRow is one panic-prone call site: a method call whose name is on the
// panic allowlist (unwrap, expect), joined with its enclosing definition.
type PanicRow struct {
	FileID           int64
	Path             string
	Line             int
	Column           int
	Method           string
	ContainingSymbol string
	IsTest           bool
}

// PanicPoints returns panic-prone call sites. Sites inside test functions
// are excluded unless includeTests is set; fileFilter, when non-empty, keeps
// only files whose path contains the substring.
func (s *Store) PanicPoints(methods []string, includeTests bool, fileFilter string) ([]*PanicRow, error) {
	if len(methods) == 0 {
		return nil, nil
	}
	query := `SELECT f.id, f.path, r.line, r.column, r.reference_name,
			COALESCE(sym.qualified_name, ''), COALESCE(sym.is_test, 0)
		 FROM refs r
		 JOIN files f ON f.id = r.file_id
		 LEFT JOIN symbols sym ON sym.id = r.in_symbol_id
		 WHERE r.kind = ? AND r.reference_name IN (` + placeholderList(len(methods)) + `)`
	args := []any{RefCall}
	for _, m := range methods {
		args = append(args, m)
	}
	if !includeTests {
		query += " AND COALESCE(sym.is_test, 0) = 0"
	}
	if fileFilter != "" {
		query += ` AND f.path LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(fileFilter)+"%")
	}
	query += " ORDER BY f.path, r.line, r.column"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("panic points: %w", err)
	}
	defer rows.Close()

	var points []*PanicRow
	for rows.Next() {
		p := &PanicRow{}
		if err := rows.Scan(&p.FileID, &p.Path, &p.Line, &p.Column, &p.Method,
			&p.ContainingSymbol, &p.IsTest); err != nil {
			return nil, fmt.Errorf("panic points: scan: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// CountPanicPoints returns (production, test) counts of panic-prone sites.
func (s *Store) CountPanicPoints(methods []string) (int, int, error) {
	if len(methods) == 0 {
		return 0, 0, nil
	}
	query := `SELECT COALESCE(sym.is_test, 0), COUNT(*)
		 FROM refs r
		 LEFT JOIN symbols sym ON sym.id = r.in_symbol_id
		 WHERE r.kind = ? AND r.reference_name IN (` + placeholderList(len(methods)) + `)
		 GROUP BY COALESCE(sym.is_test, 0)`
	args := []any{RefCall}
	for _, m := range methods {
		args = append(args, m)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return 0, 0, fmt.Errorf("count panic points: %w", err)
	}
	defer rows.Close()

	var prod, test int
	for rows.Next() {
		var isTest bool
		var count int
		if err := rows.Scan(&isTest, &count); err != nil {
			return 0, 0, fmt.Errorf("count panic points: scan: %w", err)
		}
		if isTest {
			test = count
		} else {
			prod = count
		}
	}
	return prod, test, rows.Err()
}
