package tethys

import (
	"fmt"
)

// DefaultSearchLimit caps SearchSymbols results when no limit is given.
const DefaultSearchLimit = 20

// GetFile returns the indexed file at path (absolute or workspace-relative),
// or nil when the path was never indexed.
func (t *Tethys) GetFile(path string) (*File, error) {
	f, err := t.store.FileByPath(t.absPath(path))
	if err != nil {
		return nil, fmt.Errorf("tethys: get file: %w", err)
	}
	return f, nil
}

// GetFileByID returns the indexed file with the given id, or nil.
func (t *Tethys) GetFileByID(id int64) (*File, error) {
	f, err := t.store.FileByID(id)
	if err != nil {
		return nil, fmt.Errorf("tethys: get file by id: %w", err)
	}
	return f, nil
}

// SearchSymbols finds symbols whose name or qualified name contains the
// query substring, capped at DefaultSearchLimit.
func (t *Tethys) SearchSymbols(query string) ([]*Symbol, error) {
	return t.SearchSymbolsFiltered(query, nil, DefaultSearchLimit)
}

// SearchSymbolsFiltered is SearchSymbols with an optional kind filter and an
// explicit limit (non-positive means DefaultSearchLimit).
func (t *Tethys) SearchSymbolsFiltered(query string, kind *SymbolKind, limit int) ([]*Symbol, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	syms, err := t.store.SearchSymbols(query, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("tethys: search symbols: %w", err)
	}
	return syms, nil
}

// ListSymbols returns every symbol defined in a file, in document order.
func (t *Tethys) ListSymbols(path string) ([]*Symbol, error) {
	f, err := t.GetFile(path)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, nil
	}
	syms, err := t.store.SymbolsByFile(f.ID)
	if err != nil {
		return nil, fmt.Errorf("tethys: list symbols: %w", err)
	}
	return syms, nil
}

// ReferenceSite is a reference location together with its file path.
type ReferenceSite struct {
	Reference
	Path string
}

// GetReferences returns every resolved reference to the named symbol.
// The name is matched as a qualified name first, then as a short name;
// ambiguous short names return references to all matches.
func (t *Tethys) GetReferences(name string) ([]ReferenceSite, error) {
	syms, err := t.store.LookupSymbol(name)
	if err != nil {
		return nil, fmt.Errorf("tethys: get references: %w", err)
	}
	paths, err := t.store.FilePaths()
	if err != nil {
		return nil, fmt.Errorf("tethys: get references: %w", err)
	}

	var sites []ReferenceSite
	for _, sym := range syms {
		refs, err := t.store.ReferencesToSymbol(sym.ID)
		if err != nil {
			return nil, fmt.Errorf("tethys: get references: %w", err)
		}
		for _, ref := range refs {
			sites = append(sites, ReferenceSite{Reference: *ref, Path: paths[ref.FileID]})
		}
	}
	return sites, nil
}

// DependencyInfo is one file another file depends on (or is depended on by),
// with the number of resolved references behind the edge.
type DependencyInfo struct {
	Path     string
	RefCount int
}

// GetDependencies returns the files the given file depends on.
func (t *Tethys) GetDependencies(path string) ([]DependencyInfo, error) {
	f, err := t.GetFile(path)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, nil
	}
	deps, err := t.store.DependenciesOf(f.ID)
	if err != nil {
		return nil, fmt.Errorf("tethys: get dependencies: %w", err)
	}
	paths, err := t.store.FilePaths()
	if err != nil {
		return nil, fmt.Errorf("tethys: get dependencies: %w", err)
	}
	var infos []DependencyInfo
	for _, d := range deps {
		infos = append(infos, DependencyInfo{Path: paths[d.ToFileID], RefCount: d.RefCount})
	}
	return infos, nil
}
