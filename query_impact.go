package tethys

import (
	"fmt"

	"github.com/jward/tethys/internal/graph"
)

// DefaultMaxDepth bounds transitive traversals. Effectively unlimited for
// real codebases while keeping adversarial inputs in check.
const DefaultMaxDepth = 50

// Dependent is a file affected by changes to the impact target.
type Dependent struct {
	Path        string
	Depth       int      // BFS depth from the target (1 = direct)
	RefCount    int      // references behind the direct edge, 0 for transitive
	SymbolsUsed []string // symbols of the target this file uses (direct only)
}

// ImpactResult is the dependent set of a file.
type ImpactResult struct {
	Target               string
	DirectDependents     []Dependent
	TransitiveDependents []Dependent // beyond depth 1
}

// fileDepGraph bulk-loads the file dependency graph.
func (t *Tethys) fileDepGraph() (*graph.Directed, map[int64]string, error) {
	deps, err := t.store.AllFileDeps()
	if err != nil {
		return nil, nil, fmt.Errorf("load file deps: %w", err)
	}
	paths, err := t.store.FilePaths()
	if err != nil {
		return nil, nil, fmt.Errorf("load file paths: %w", err)
	}
	edges := make([]graph.Edge, len(deps))
	for i, d := range deps {
		edges[i] = graph.Edge{From: d.FromFileID, To: d.ToFileID, Weight: d.RefCount}
	}
	return graph.New(edges), paths, nil
}

// callGraph bulk-loads the symbol call graph.
func (t *Tethys) callGraph() (*graph.Directed, error) {
	callEdges, err := t.store.AllCallEdges()
	if err != nil {
		return nil, fmt.Errorf("load call edges: %w", err)
	}
	edges := make([]graph.Edge, len(callEdges))
	for i, e := range callEdges {
		edges[i] = graph.Edge{From: e.CallerSymbolID, To: e.CalleeSymbolID, Weight: e.CallCount}
	}
	return graph.New(edges), nil
}

// GetImpact returns the files that depend, directly or transitively, on the
// given file. depth bounds the traversal; nil means DefaultMaxDepth.
func (t *Tethys) GetImpact(path string, depth *int) (*ImpactResult, error) {
	f, err := t.GetFile(path)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return &ImpactResult{Target: t.absPath(path)}, nil
	}
	maxDepth := DefaultMaxDepth
	if depth != nil && *depth > 0 {
		maxDepth = *depth
	}

	g, paths, err := t.fileDepGraph()
	if err != nil {
		return nil, fmt.Errorf("tethys: impact: %w", err)
	}

	directEdges, err := t.store.DependentsOf(f.ID)
	if err != nil {
		return nil, fmt.Errorf("tethys: impact: %w", err)
	}
	refCounts := make(map[int64]int, len(directEdges))
	for _, e := range directEdges {
		refCounts[e.FromFileID] = e.RefCount
	}

	result := &ImpactResult{Target: f.Path}
	for _, visit := range g.BFS(f.ID, maxDepth, true) {
		dep := Dependent{Path: paths[visit.Node], Depth: visit.Depth}
		if visit.Depth == 1 {
			dep.RefCount = refCounts[visit.Node]
			used, err := t.store.SymbolsUsedBetween(visit.Node, f.ID)
			if err != nil {
				return nil, fmt.Errorf("tethys: impact: %w", err)
			}
			dep.SymbolsUsed = used
			result.DirectDependents = append(result.DirectDependents, dep)
		} else {
			result.TransitiveDependents = append(result.TransitiveDependents, dep)
		}
	}
	return result, nil
}

// SymbolDependent is a symbol affected by changes to the impact target.
type SymbolDependent struct {
	Symbol Symbol
	Path   string
	Depth  int
}

// GetSymbolImpact returns the symbols that call, directly or transitively,
// the named symbol.
func (t *Tethys) GetSymbolImpact(name string, depth *int) ([]SymbolDependent, error) {
	syms, err := t.store.LookupSymbol(name)
	if err != nil {
		return nil, fmt.Errorf("tethys: symbol impact: %w", err)
	}
	if len(syms) == 0 {
		return nil, nil
	}
	maxDepth := DefaultMaxDepth
	if depth != nil && *depth > 0 {
		maxDepth = *depth
	}

	g, err := t.callGraph()
	if err != nil {
		return nil, fmt.Errorf("tethys: symbol impact: %w", err)
	}
	paths, err := t.store.FilePaths()
	if err != nil {
		return nil, fmt.Errorf("tethys: symbol impact: %w", err)
	}

	var result []SymbolDependent
	seen := make(map[int64]bool)
	for _, sym := range syms {
		for _, visit := range g.BFS(sym.ID, maxDepth, true) {
			if seen[visit.Node] {
				continue
			}
			seen[visit.Node] = true
			caller, err := t.store.SymbolByID(visit.Node)
			if err != nil {
				return nil, fmt.Errorf("tethys: symbol impact: %w", err)
			}
			if caller == nil {
				continue
			}
			result = append(result, SymbolDependent{
				Symbol: *caller,
				Path:   paths[caller.FileID],
				Depth:  visit.Depth,
			})
		}
	}
	return result, nil
}

// GetDependencyChain returns the shortest dependency path from one file to
// another as a sequence of file paths, or nil when no path exists. Asking
// for a chain from a file to itself looks for a dependency cycle through it.
func (t *Tethys) GetDependencyChain(fromPath, toPath string) ([]string, error) {
	from, err := t.GetFile(fromPath)
	if err != nil {
		return nil, err
	}
	to, err := t.GetFile(toPath)
	if err != nil {
		return nil, err
	}
	if from == nil || to == nil {
		return nil, nil
	}

	g, paths, err := t.fileDepGraph()
	if err != nil {
		return nil, fmt.Errorf("tethys: dependency chain: %w", err)
	}
	nodePath := g.ShortestPath(from.ID, to.ID)
	if nodePath == nil {
		return nil, nil
	}
	chain := make([]string, len(nodePath))
	for i, id := range nodePath {
		chain[i] = paths[id]
	}
	return chain, nil
}

// Cycle is one strongly connected component of the file dependency graph
// with more than one file.
type Cycle struct {
	Files []string
}

// DetectCycles reports circular file dependencies. Self-loops are never
// reported (and cannot exist in file_deps by construction).
func (t *Tethys) DetectCycles() ([]Cycle, error) {
	g, paths, err := t.fileDepGraph()
	if err != nil {
		return nil, fmt.Errorf("tethys: detect cycles: %w", err)
	}
	var cycles []Cycle
	for _, comp := range g.SCCs() {
		c := Cycle{Files: make([]string, len(comp))}
		for i, id := range comp {
			c.Files[i] = paths[id]
		}
		cycles = append(cycles, c)
	}
	return cycles, nil
}
