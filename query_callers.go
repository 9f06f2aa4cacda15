package tethys

import (
	"errors"
	"fmt"
	"os"

	"github.com/jward/tethys/internal/lsp"
	"github.com/jward/tethys/internal/workspace"
)

// Caller is one call-graph edge into a symbol: the calling definition, its
// file, and how many call sites it holds.
type Caller struct {
	Symbol    Symbol
	Path      string
	CallCount int
}

// GetCallers returns the direct callers of the named symbol, from the
// precomputed call edges. An unknown name returns an empty result.
func (t *Tethys) GetCallers(name string) ([]Caller, error) {
	syms, err := t.store.LookupSymbol(name)
	if err != nil {
		return nil, fmt.Errorf("tethys: get callers: %w", err)
	}

	var callers []Caller
	seen := make(map[int64]bool)
	paths, err := t.store.FilePaths()
	if err != nil {
		return nil, fmt.Errorf("tethys: get callers: %w", err)
	}

	for _, sym := range syms {
		edges, err := t.store.CallersByCallee(sym.ID)
		if err != nil {
			return nil, fmt.Errorf("tethys: get callers: %w", err)
		}
		for _, edge := range edges {
			if seen[edge.CallerSymbolID] {
				continue
			}
			seen[edge.CallerSymbolID] = true
			caller, err := t.store.SymbolByID(edge.CallerSymbolID)
			if err != nil {
				return nil, fmt.Errorf("tethys: get callers: %w", err)
			}
			if caller == nil {
				continue
			}
			callers = append(callers, Caller{
				Symbol:    *caller,
				Path:      paths[caller.FileID],
				CallCount: edge.CallCount,
			})
		}
	}
	return callers, nil
}

// GetCallersWithLSP merges statically derived callers with callers found by
// asking a language server for references to the symbol's definition. This
// surfaces call sites behind trait or virtual dispatch that the static
// resolver cannot bind. A missing server is an error here, because the
// caller explicitly asked for LSP results.
func (t *Tethys) GetCallersWithLSP(name string) ([]Caller, error) {
	static, err := t.GetCallers(name)
	if err != nil {
		return nil, err
	}

	syms, err := t.store.LookupSymbol(name)
	if err != nil {
		return nil, fmt.Errorf("tethys: get callers with lsp: %w", err)
	}
	if len(syms) == 0 {
		return static, nil
	}

	cfg, err := workspace.LoadConfig(t.workspace)
	if err != nil {
		return nil, fmt.Errorf("tethys: configuration: %w", err)
	}
	provider, err := t.pickProvider(IndexOptions{WithLSP: true}, cfg)
	if err != nil {
		return nil, err
	}

	client, err := lsp.Start(provider, t.workspace, t.logger)
	if err != nil {
		var notFound *lsp.NotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("tethys: lsp: %w", err)
		}
		t.logger.Warn("LSP unavailable, returning static callers only", "error", err)
		return static, nil
	}
	defer client.Close()

	timeout := IndexOptions{}.lspTimeoutSeconds()
	if _, err := client.WaitForWorkspaceLoad(secondsDuration(timeout)); err != nil {
		t.logger.Warn("LSP workspace load failed, returning static callers only", "error", err)
		return static, nil
	}

	seen := make(map[int64]bool, len(static))
	for _, c := range static {
		seen[c.Symbol.ID] = true
	}
	merged := static

	for _, sym := range syms {
		target, err := t.store.FileByID(sym.FileID)
		if err != nil || target == nil {
			continue
		}
		content, err := os.ReadFile(target.Path)
		if err != nil {
			continue
		}
		if err := client.DidOpen(target.Path, string(content), provider.LanguageID); err != nil {
			t.logger.Warn("didOpen failed", "path", target.Path, "error", err)
			break
		}
		locs, err := client.References(target.Path, sym.Line, sym.Column)
		if err != nil {
			t.logger.Warn("references query failed", "error", err)
			break
		}
		for _, loc := range locs {
			f, err := t.store.FileByPath(loc.Path)
			if err != nil || f == nil {
				continue
			}
			enclosing, err := t.store.SymbolAt(f.ID, loc.Line, loc.Column)
			if err != nil || enclosing == nil || enclosing.ID == sym.ID || seen[enclosing.ID] {
				continue
			}
			seen[enclosing.ID] = true
			merged = append(merged, Caller{Symbol: *enclosing, Path: f.Path, CallCount: 1})
		}
	}

	if err := client.Shutdown(); err != nil {
		t.logger.Warn("LSP shutdown failed", "error", err)
	}
	return merged, nil
}
