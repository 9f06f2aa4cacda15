package tethys

import "fmt"

// ReachabilityDirection selects traversal direction on the call graph.
type ReachabilityDirection string

const (
	// Forward walks callees: what can this symbol reach.
	Forward ReachabilityDirection = "forward"
	// Backward walks callers: what can reach this symbol.
	Backward ReachabilityDirection = "backward"
)

// ReachableSymbol is a symbol reached by a reachability walk, with the
// depth at which BFS first saw it.
type ReachableSymbol struct {
	Symbol Symbol
	Path   string
	Depth  int
}

// ReachabilityResult is the outcome of a reachability walk.
type ReachabilityResult struct {
	Source    Symbol
	Direction ReachabilityDirection
	MaxDepth  int
	Reachable []ReachableSymbol
}

// IsEmpty reports whether the walk found nothing.
func (r *ReachabilityResult) IsEmpty() bool {
	return len(r.Reachable) == 0
}

// GetForwardReachable returns every symbol reachable from the named symbol
// through call edges, up to maxDepth (nil means DefaultMaxDepth).
func (t *Tethys) GetForwardReachable(name string, maxDepth *int) (*ReachabilityResult, error) {
	return t.reachable(name, Forward, maxDepth)
}

// GetBackwardReachable returns every symbol that can reach the named symbol
// through call edges, up to maxDepth (nil means DefaultMaxDepth).
func (t *Tethys) GetBackwardReachable(name string, maxDepth *int) (*ReachabilityResult, error) {
	return t.reachable(name, Backward, maxDepth)
}

func (t *Tethys) reachable(name string, direction ReachabilityDirection, maxDepth *int) (*ReachabilityResult, error) {
	syms, err := t.store.LookupSymbol(name)
	if err != nil {
		return nil, fmt.Errorf("tethys: reachability: %w", err)
	}
	if len(syms) == 0 {
		return nil, fmt.Errorf("tethys: reachability: symbol %q not found", name)
	}
	source := syms[0]

	depth := DefaultMaxDepth
	if maxDepth != nil && *maxDepth > 0 {
		depth = *maxDepth
	}

	g, err := t.callGraph()
	if err != nil {
		return nil, fmt.Errorf("tethys: reachability: %w", err)
	}
	paths, err := t.store.FilePaths()
	if err != nil {
		return nil, fmt.Errorf("tethys: reachability: %w", err)
	}

	result := &ReachabilityResult{Source: *source, Direction: direction, MaxDepth: depth}
	for _, visit := range g.BFS(source.ID, depth, direction == Backward) {
		sym, err := t.store.SymbolByID(visit.Node)
		if err != nil {
			return nil, fmt.Errorf("tethys: reachability: %w", err)
		}
		if sym == nil {
			// Edge endpoint no longer in the workspace.
			continue
		}
		result.Reachable = append(result.Reachable, ReachableSymbol{
			Symbol: *sym,
			Path:   paths[sym.FileID],
			Depth:  visit.Depth,
		})
	}
	return result, nil
}
