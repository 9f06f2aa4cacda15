package store

import (
	"fmt"
	"sort"
	"strings"
)

// ResolveResult summarizes a resolve pass.
type ResolveResult struct {
	Resolved   int
	Unresolved []string // distinct names that could not be bound, sorted
}

// pathSep returns the qualification separator for a language.
func pathSep(lang Language) string {
	if lang == LangCSharp {
		return "."
	}
	return "::"
}

// symbolTable holds the in-memory lookup maps the resolve pass works against.
type symbolTable struct {
	byFQN      map[string][]*Symbol // module_path+sep+name, plus qualified_name
	byFileName map[int64]map[string][]*Symbol
}

func (s *Store) loadSymbolTable(langByFile map[int64]Language) (*symbolTable, error) {
	syms, err := s.querySymbols("SELECT " + SymbolCols + " FROM symbols")
	if err != nil {
		return nil, fmt.Errorf("load symbol table: %w", err)
	}
	t := &symbolTable{
		byFQN:      make(map[string][]*Symbol),
		byFileName: make(map[int64]map[string][]*Symbol),
	}
	for _, sym := range syms {
		sep := pathSep(langByFile[sym.FileID])
		if sym.ModulePath != "" {
			fqn := sym.ModulePath + sep + sym.Name
			t.byFQN[fqn] = append(t.byFQN[fqn], sym)
		}
		if sym.QualifiedName != sym.Name {
			t.byFQN[sym.QualifiedName] = append(t.byFQN[sym.QualifiedName], sym)
		}
		inFile := t.byFileName[sym.FileID]
		if inFile == nil {
			inFile = make(map[string][]*Symbol)
			t.byFileName[sym.FileID] = inFile
		}
		inFile[sym.Name] = append(inFile[sym.Name], sym)
		if sym.QualifiedName != sym.Name {
			inFile[sym.QualifiedName] = append(inFile[sym.QualifiedName], sym)
		}
	}
	return t, nil
}

// ResolvePass binds unresolved references to symbols using the file's
// imports, same-file definitions, and workspace-wide qualified names, in
// that order. Wildcard imports are consulted last and only bind when they
// produce exactly one candidate. Bound rows get symbol_id set and
// reference_name cleared; the rest stay in place for diagnostics.
func (s *Store) ResolvePass() (*ResolveResult, error) {
	files, err := s.AllFiles()
	if err != nil {
		return nil, fmt.Errorf("resolve pass: %w", err)
	}
	langByFile := make(map[int64]Language, len(files))
	for _, f := range files {
		langByFile[f.ID] = f.Language
	}

	table, err := s.loadSymbolTable(langByFile)
	if err != nil {
		return nil, fmt.Errorf("resolve pass: %w", err)
	}
	importsByFile, err := s.AllImports()
	if err != nil {
		return nil, fmt.Errorf("resolve pass: %w", err)
	}
	unresolved, err := s.UnresolvedReferences()
	if err != nil {
		return nil, fmt.Errorf("resolve pass: %w", err)
	}

	bindings := make(map[int64]int64) // ref id -> symbol id
	missing := make(map[string]bool)

	for _, ref := range unresolved {
		name := *ref.ReferenceName
		sep := pathSep(langByFile[ref.FileID])

		target := resolveName(name, ref.FileID, sep, table, importsByFile[ref.FileID])
		if target != nil {
			bindings[ref.ID] = target.ID
		} else {
			missing[name] = true
		}
	}

	if err := s.applyBindings(bindings); err != nil {
		return nil, fmt.Errorf("resolve pass: %w", err)
	}

	names := make([]string, 0, len(missing))
	for name := range missing {
		names = append(names, name)
	}
	sort.Strings(names)
	return &ResolveResult{Resolved: len(bindings), Unresolved: names}, nil
}

// resolveName applies the resolution ladder for one candidate name.
func resolveName(name string, fileID int64, sep string, table *symbolTable, imports []*Import) *Symbol {
	// 1. Exact import (by imported name or alias) -> qualified lookup. For
	// a qualified candidate like "b::b_fn", the leading segment is matched
	// against imports instead, expanding to "crate::b::b_fn".
	first, rest, qualified := splitFirst(name, sep)
	for _, imp := range imports {
		if imp.SymbolName == "*" {
			continue
		}
		matches := imp.SymbolName == first || (imp.Alias != nil && *imp.Alias == first)
		if !matches {
			continue
		}
		fqn := imp.SourceModule + sep + imp.SymbolName
		if qualified {
			fqn += sep + rest
		}
		if sym := uniqueMatch(table.byFQN[fqn]); sym != nil {
			return sym
		}
	}

	// 2. Same-file definition.
	if inFile := table.byFileName[fileID]; inFile != nil {
		if sym := uniqueMatch(inFile[name]); sym != nil {
			return sym
		}
		if sym := uniqueMatch(inFile[lastSegment(name, sep)]); sym != nil {
			return sym
		}
	}

	// 3. Workspace-wide fully qualified name.
	if sym := uniqueMatch(table.byFQN[name]); sym != nil {
		return sym
	}

	// 4. Wildcard imports, weakest: bind only on an unambiguous single match.
	var wildcardHits []*Symbol
	for _, imp := range imports {
		if imp.SymbolName != "*" {
			continue
		}
		wildcardHits = append(wildcardHits, table.byFQN[imp.SourceModule+sep+name]...)
	}
	return uniqueMatch(wildcardHits)
}

// uniqueMatch returns the symbol iff the slice holds exactly one.
func uniqueMatch(syms []*Symbol) *Symbol {
	if len(syms) == 1 {
		return syms[0]
	}
	return nil
}

// splitFirst splits a possibly-qualified name into its leading segment and
// the remainder. qualified reports whether a separator was present.
func splitFirst(name, sep string) (string, string, bool) {
	if i := strings.Index(name, sep); i >= 0 {
		return name[:i], name[i+len(sep):], true
	}
	return name, "", false
}

// lastSegment returns the trailing path segment of a possibly-qualified name.
func lastSegment(name, sep string) string {
	if i := strings.LastIndex(name, sep); i >= 0 {
		return name[i+len(sep):]
	}
	return name
}

// applyBindings writes all bindings in one transaction.
func (s *Store) applyBindings(bindings map[int64]int64) error {
	if len(bindings) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("apply bindings: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("UPDATE refs SET symbol_id = ?, reference_name = NULL WHERE id = ?")
	if err != nil {
		return fmt.Errorf("apply bindings: prepare: %w", err)
	}
	defer stmt.Close()

	for refID, symID := range bindings {
		if _, err := stmt.Exec(symID, refID); err != nil {
			return fmt.Errorf("apply bindings: ref %d: %w", refID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("apply bindings: commit: %w", err)
	}
	return nil
}

// MaterializeCallEdges rebuilds call_edges from resolved references whose
// enclosing symbol is known. Counts aggregate per (caller, callee).
func (s *Store) MaterializeCallEdges() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("materialize call edges: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM call_edges"); err != nil {
		return fmt.Errorf("materialize call edges: clear: %w", err)
	}
	_, err = tx.Exec(
		`INSERT OR REPLACE INTO call_edges (caller_symbol_id, callee_symbol_id, call_count)
		 SELECT in_symbol_id, symbol_id, COUNT(*)
		 FROM refs
		 WHERE in_symbol_id IS NOT NULL AND symbol_id IS NOT NULL
		 GROUP BY in_symbol_id, symbol_id`,
	)
	if err != nil {
		return fmt.Errorf("materialize call edges: insert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("materialize call edges: commit: %w", err)
	}
	return nil
}

// MaterializeFileDeps rebuilds file_deps from resolved cross-file references.
// Self-loops are excluded by construction.
func (s *Store) MaterializeFileDeps() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("materialize file deps: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM file_deps"); err != nil {
		return fmt.Errorf("materialize file deps: clear: %w", err)
	}
	_, err = tx.Exec(
		`INSERT OR REPLACE INTO file_deps (from_file_id, to_file_id, ref_count)
		 SELECT r.file_id, s.file_id, COUNT(*)
		 FROM refs r
		 JOIN symbols s ON s.id = r.symbol_id
		 WHERE r.file_id != s.file_id
		 GROUP BY r.file_id, s.file_id`,
	)
	if err != nil {
		return fmt.Errorf("materialize file deps: insert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("materialize file deps: commit: %w", err)
	}
	return nil
}
