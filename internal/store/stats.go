package store

import "fmt"

// Stats are aggregate counts over the whole index.
type Stats struct {
	FileCount               int
	FilesByLanguage         map[Language]int
	SymbolCount             int
	SymbolsByKind           map[SymbolKind]int
	ReferenceCount          int
	ResolvedReferenceCount  int
	FileDependencyCount     int
	CallEdgeCount           int
	TestCount               int
	SkippedUnknownLanguages int
	SkippedUnknownKinds     int
}

// Stats computes aggregate counts. Language and kind tags this build does
// not recognize (a database written by a newer Tethys) are counted into the
// SkippedUnknown fields rather than dropped silently.
func (s *Store) Stats() (*Stats, error) {
	st := &Stats{
		FilesByLanguage: make(map[Language]int),
		SymbolsByKind:   make(map[SymbolKind]int),
	}

	rows, err := s.db.Query("SELECT language, COUNT(*) FROM files GROUP BY language")
	if err != nil {
		return nil, fmt.Errorf("stats: files: %w", err)
	}
	for rows.Next() {
		var lang Language
		var count int
		if err := rows.Scan(&lang, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("stats: scan language: %w", err)
		}
		st.FileCount += count
		if KnownLanguages[lang] {
			st.FilesByLanguage[lang] = count
		} else {
			st.SkippedUnknownLanguages += count
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stats: files: %w", err)
	}

	rows, err = s.db.Query("SELECT kind, COUNT(*) FROM symbols GROUP BY kind")
	if err != nil {
		return nil, fmt.Errorf("stats: symbols: %w", err)
	}
	for rows.Next() {
		var kind SymbolKind
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("stats: scan kind: %w", err)
		}
		st.SymbolCount += count
		if KnownSymbolKinds[kind] {
			st.SymbolsByKind[kind] = count
		} else {
			st.SkippedUnknownKinds += count
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stats: symbols: %w", err)
	}

	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM refs", &st.ReferenceCount},
		{"SELECT COUNT(*) FROM refs WHERE symbol_id IS NOT NULL", &st.ResolvedReferenceCount},
		{"SELECT COUNT(*) FROM file_deps", &st.FileDependencyCount},
		{"SELECT COUNT(*) FROM call_edges", &st.CallEdgeCount},
		{"SELECT COUNT(*) FROM symbols WHERE is_test = 1", &st.TestCount},
	}
	for _, c := range counts {
		if err := s.db.QueryRow(c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("stats: count: %w", err)
		}
	}

	return st, nil
}
