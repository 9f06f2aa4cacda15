package store

import (
	"database/sql"
	"fmt"
	"strings"
)

// SymbolCols is the column list for symbol queries.
const SymbolCols = `id, file_id, name, module_path, qualified_name, kind, line, column,
	end_line, end_column, signature, visibility, parent_symbol_id, is_test`

func scanSymbol(scanner interface{ Scan(...any) error }) (*Symbol, error) {
	sym := &Symbol{}
	err := scanner.Scan(
		&sym.ID, &sym.FileID, &sym.Name, &sym.ModulePath, &sym.QualifiedName,
		&sym.Kind, &sym.Line, &sym.Column, &sym.EndLine, &sym.EndColumn,
		&sym.Signature, &sym.Visibility, &sym.ParentSymbolID, &sym.IsTest,
	)
	if err != nil {
		return nil, err
	}
	return sym, nil
}

func (s *Store) querySymbols(query string, args ...any) ([]*Symbol, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var symbols []*Symbol
	for rows.Next() {
		sym, err := scanSymbol(rows)
		if err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

// SymbolByID returns the symbol with the given id, or nil if absent.
func (s *Store) SymbolByID(id int64) (*Symbol, error) {
	sym, err := scanSymbol(s.db.QueryRow("SELECT "+SymbolCols+" FROM symbols WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("symbol by id: %w", err)
	}
	return sym, nil
}

// SymbolsByFile returns all symbols defined in a file, ordered by position.
func (s *Store) SymbolsByFile(fileID int64) ([]*Symbol, error) {
	return s.querySymbols(
		"SELECT "+SymbolCols+" FROM symbols WHERE file_id = ? ORDER BY line, column", fileID)
}

// SymbolsByName returns all symbols with the given short name.
func (s *Store) SymbolsByName(name string) ([]*Symbol, error) {
	return s.querySymbols("SELECT "+SymbolCols+" FROM symbols WHERE name = ?", name)
}

// SymbolsByQualifiedName returns symbols whose qualified name matches exactly.
func (s *Store) SymbolsByQualifiedName(qualified string) ([]*Symbol, error) {
	return s.querySymbols("SELECT "+SymbolCols+" FROM symbols WHERE qualified_name = ?", qualified)
}

// LookupSymbol finds symbols by qualified name, falling back to short name.
// This is the entry point used by name-based queries (callers, impact,
// reachability): callers may pass "Helper::new" or just "new".
func (s *Store) LookupSymbol(name string) ([]*Symbol, error) {
	syms, err := s.SymbolsByQualifiedName(name)
	if err != nil {
		return nil, err
	}
	if len(syms) > 0 {
		return syms, nil
	}
	return s.SymbolsByName(name)
}

// SearchSymbols returns symbols whose name or qualified name contains the
// query substring, optionally filtered by kind, capped at limit.
func (s *Store) SearchSymbols(query string, kind *SymbolKind, limit int) ([]*Symbol, error) {
	pattern := "%" + escapeLike(query) + "%"
	sqlQuery := "SELECT " + SymbolCols + ` FROM symbols
		 WHERE (name LIKE ? ESCAPE '\' OR qualified_name LIKE ? ESCAPE '\')`
	args := []any{pattern, pattern}
	if kind != nil {
		sqlQuery += " AND kind = ?"
		args = append(args, *kind)
	}
	sqlQuery += " ORDER BY name, qualified_name LIMIT ?"
	args = append(args, limit)
	return s.querySymbols(sqlQuery, args...)
}

// TestSymbols returns every symbol flagged is_test.
func (s *Store) TestSymbols() ([]*Symbol, error) {
	return s.querySymbols("SELECT " + SymbolCols + " FROM symbols WHERE is_test = 1 ORDER BY qualified_name")
}

// TestSymbolsInFiles returns is_test symbols whose file id is in the set.
func (s *Store) TestSymbolsInFiles(fileIDs []int64) ([]*Symbol, error) {
	if len(fileIDs) == 0 {
		return nil, nil
	}
	query := "SELECT " + SymbolCols + " FROM symbols WHERE is_test = 1 AND file_id IN (" +
		placeholderList(len(fileIDs)) + ") ORDER BY qualified_name"
	return s.querySymbols(query, int64sToArgs(fileIDs)...)
}

// SymbolsByIDs bulk-loads symbols for the given ids.
func (s *Store) SymbolsByIDs(ids []int64) (map[int64]*Symbol, error) {
	result := make(map[int64]*Symbol, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	syms, err := s.querySymbols(
		"SELECT "+SymbolCols+" FROM symbols WHERE id IN ("+placeholderList(len(ids))+")",
		int64sToArgs(ids)...)
	if err != nil {
		return nil, err
	}
	for _, sym := range syms {
		result[sym.ID] = sym
	}
	return result, nil
}

// SymbolAt returns the narrowest symbol whose recorded range contains the
// 0-based position, or nil. Used to map LSP locations back onto symbols.
func (s *Store) SymbolAt(fileID int64, line, col int) (*Symbol, error) {
	row := s.db.QueryRow(
		`SELECT `+SymbolCols+` FROM symbols
		 WHERE file_id = ?
		   AND (line < ? OR (line = ? AND column <= ?))
		   AND (end_line > ? OR (end_line = ? AND end_column >= ?))
		 ORDER BY (end_line - line) ASC, (end_column - column) ASC
		 LIMIT 1`,
		fileID,
		line, line, col,
		line, line, col,
	)
	sym, err := scanSymbol(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("symbol at: %w", err)
	}
	return sym, nil
}

// escapeLike escapes LIKE wildcards in a user-supplied substring.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}
