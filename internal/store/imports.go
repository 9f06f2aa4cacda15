package store

import "fmt"

// ImportsByFile returns all imports recorded for a file.
func (s *Store) ImportsByFile(fileID int64) ([]*Import, error) {
	rows, err := s.db.Query(
		"SELECT file_id, symbol_name, source_module, alias FROM imports WHERE file_id = ?", fileID)
	if err != nil {
		return nil, fmt.Errorf("imports by file: %w", err)
	}
	defer rows.Close()
	var imports []*Import
	for rows.Next() {
		imp := &Import{}
		if err := rows.Scan(&imp.FileID, &imp.SymbolName, &imp.SourceModule, &imp.Alias); err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		imports = append(imports, imp)
	}
	return imports, rows.Err()
}

// AllImports returns imports grouped by file id.
func (s *Store) AllImports() (map[int64][]*Import, error) {
	rows, err := s.db.Query("SELECT file_id, symbol_name, source_module, alias FROM imports")
	if err != nil {
		return nil, fmt.Errorf("all imports: %w", err)
	}
	defer rows.Close()
	byFile := make(map[int64][]*Import)
	for rows.Next() {
		imp := &Import{}
		if err := rows.Scan(&imp.FileID, &imp.SymbolName, &imp.SourceModule, &imp.Alias); err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		byFile[imp.FileID] = append(byFile[imp.FileID], imp)
	}
	return byFile, rows.Err()
}
