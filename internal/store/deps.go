package store

import "fmt"

func (s *Store) queryFileDeps(query string, args ...any) ([]*FileDep, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var deps []*FileDep
	for rows.Next() {
		d := &FileDep{}
		if err := rows.Scan(&d.FromFileID, &d.ToFileID, &d.RefCount); err != nil {
			return nil, fmt.Errorf("scan file dep: %w", err)
		}
		deps = append(deps, d)
	}
	return deps, rows.Err()
}

const fileDepCols = `from_file_id, to_file_id, ref_count`

// AllFileDeps returns every file dependency edge. Used to bulk-load the
// file graph for BFS/SCC traversal.
func (s *Store) AllFileDeps() ([]*FileDep, error) {
	return s.queryFileDeps("SELECT " + fileDepCols + " FROM file_deps")
}

// DependentsOf returns edges pointing at the given file (who depends on it).
func (s *Store) DependentsOf(toFileID int64) ([]*FileDep, error) {
	return s.queryFileDeps(
		"SELECT "+fileDepCols+" FROM file_deps WHERE to_file_id = ?", toFileID)
}

// DependenciesOf returns edges leaving the given file (what it depends on).
func (s *Store) DependenciesOf(fromFileID int64) ([]*FileDep, error) {
	return s.queryFileDeps(
		"SELECT "+fileDepCols+" FROM file_deps WHERE from_file_id = ?", fromFileID)
}

func (s *Store) queryCallEdges(query string, args ...any) ([]*CallEdge, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var edges []*CallEdge
	for rows.Next() {
		e := &CallEdge{}
		if err := rows.Scan(&e.CallerSymbolID, &e.CalleeSymbolID, &e.CallCount); err != nil {
			return nil, fmt.Errorf("scan call edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

const callEdgeCols = `caller_symbol_id, callee_symbol_id, call_count`

// AllCallEdges returns every call edge. Used to bulk-load the symbol graph.
func (s *Store) AllCallEdges() ([]*CallEdge, error) {
	return s.queryCallEdges("SELECT " + callEdgeCols + " FROM call_edges")
}

// CallersByCallee returns call edges whose callee is the given symbol.
func (s *Store) CallersByCallee(calleeSymbolID int64) ([]*CallEdge, error) {
	return s.queryCallEdges(
		"SELECT "+callEdgeCols+" FROM call_edges WHERE callee_symbol_id = ?", calleeSymbolID)
}

// CalleesByCaller returns call edges whose caller is the given symbol.
func (s *Store) CalleesByCaller(callerSymbolID int64) ([]*CallEdge, error) {
	return s.queryCallEdges(
		"SELECT "+callEdgeCols+" FROM call_edges WHERE caller_symbol_id = ?", callerSymbolID)
}

// SymbolsUsedBetween returns the distinct names of symbols in toFile that
// fromFile references. Backs the "which functions of F are used" impact
// display.
func (s *Store) SymbolsUsedBetween(fromFileID, toFileID int64) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT sym.name
		 FROM refs r
		 JOIN symbols sym ON sym.id = r.symbol_id
		 WHERE r.file_id = ? AND sym.file_id = ?
		 ORDER BY sym.name`,
		fromFileID, toFileID,
	)
	if err != nil {
		return nil, fmt.Errorf("symbols used between: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("symbols used between: scan: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// UpsertCallEdge inserts a call edge or adds to its count.
func (s *Store) UpsertCallEdge(callerID, calleeID int64, count int) error {
	_, err := s.db.Exec(
		`INSERT INTO call_edges (caller_symbol_id, callee_symbol_id, call_count)
		 VALUES (?, ?, ?)
		 ON CONFLICT(caller_symbol_id, callee_symbol_id)
		 DO UPDATE SET call_count = call_count + excluded.call_count`,
		callerID, calleeID, count,
	)
	if err != nil {
		return fmt.Errorf("upsert call edge: %w", err)
	}
	return nil
}
