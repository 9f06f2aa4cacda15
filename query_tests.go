package tethys

import "fmt"

// GetTestSymbols returns every symbol flagged as a test.
func (t *Tethys) GetTestSymbols() ([]*Symbol, error) {
	syms, err := t.store.TestSymbols()
	if err != nil {
		return nil, fmt.Errorf("tethys: test symbols: %w", err)
	}
	return syms, nil
}

// GetAffectedTests returns the test symbols that could be affected by
// changes to the given files: tests defined in the changed files themselves
// or in any file that transitively depends on one of them.
func (t *Tethys) GetAffectedTests(changedFiles []string) ([]*Symbol, error) {
	if len(changedFiles) == 0 {
		return nil, nil
	}

	g, _, err := t.fileDepGraph()
	if err != nil {
		return nil, fmt.Errorf("tethys: affected tests: %w", err)
	}

	affected := make(map[int64]bool)
	for _, path := range changedFiles {
		f, err := t.GetFile(path)
		if err != nil {
			return nil, err
		}
		if f == nil {
			continue
		}
		affected[f.ID] = true
		for _, visit := range g.BFS(f.ID, DefaultMaxDepth, true) {
			affected[visit.Node] = true
		}
	}

	ids := make([]int64, 0, len(affected))
	for id := range affected {
		ids = append(ids, id)
	}
	tests, err := t.store.TestSymbolsInFiles(ids)
	if err != nil {
		return nil, fmt.Errorf("tethys: affected tests: %w", err)
	}
	return tests, nil
}
