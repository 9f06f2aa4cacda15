package tethys

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jward/tethys/internal/lsp"
	"github.com/jward/tethys/internal/store"
	"github.com/jward/tethys/internal/workspace"
)

// refineWithLSP asks a language server to bind references the static
// resolver could not. The stage is advisory: every failure degrades to a
// warning except a missing server, which aborts the explicitly requested
// --lsp run with install instructions.
func (t *Tethys) refineWithLSP(opts IndexOptions, cfg *workspace.Config, stats *IndexingStats) error {
	provider, err := t.pickProvider(opts, cfg)
	if err != nil {
		return err
	}

	client, err := lsp.Start(provider, t.workspace, t.logger)
	if err != nil {
		var notFound *lsp.NotFoundError
		if errors.As(err, &notFound) {
			return fmt.Errorf("tethys: lsp: %w", err)
		}
		t.logger.Warn("LSP refinement unavailable, continuing without it", "error", err)
		return nil
	}
	defer client.Close()

	timeout := time.Duration(opts.lspTimeoutSeconds()) * time.Second
	if _, err := client.WaitForWorkspaceLoad(timeout); err != nil {
		t.logger.Warn("LSP workspace load failed, continuing without refinement", "error", err)
		return nil
	}

	resolved, err := t.refineUnresolved(client, provider)
	if err != nil {
		t.logger.Warn("LSP refinement aborted mid-run", "error", err)
	}
	stats.LspResolvedCount = resolved

	if err := client.Shutdown(); err != nil {
		t.logger.Warn("LSP shutdown failed", "error", err)
	}
	return nil
}

// refineUnresolved walks the residual unresolved references of the
// provider's language and binds those whose definition lands inside the
// workspace. Returns how many were bound.
func (t *Tethys) refineUnresolved(client *lsp.Client, provider lsp.Provider) (int, error) {
	refs, err := t.store.UnresolvedReferences()
	if err != nil {
		return 0, fmt.Errorf("load unresolved references: %w", err)
	}
	if len(refs) == 0 {
		return 0, nil
	}

	files, err := t.store.AllFiles()
	if err != nil {
		return 0, fmt.Errorf("load files: %w", err)
	}
	fileByID := make(map[int64]*store.File, len(files))
	fileByPath := make(map[string]*store.File, len(files))
	for _, f := range files {
		fileByID[f.ID] = f
		fileByPath[f.Path] = f
	}

	byFile := make(map[int64][]*store.Reference)
	for _, ref := range refs {
		f := fileByID[ref.FileID]
		if f == nil || f.Language != provider.Language {
			continue
		}
		byFile[ref.FileID] = append(byFile[ref.FileID], ref)
	}

	resolved := 0
	for fileID, fileRefs := range byFile {
		f := fileByID[fileID]
		content, err := os.ReadFile(f.Path)
		if err != nil {
			t.logger.Warn("cannot read file for LSP refinement", "path", f.Path, "error", err)
			continue
		}
		if err := client.DidOpen(f.Path, string(content), provider.LanguageID); err != nil {
			return resolved, fmt.Errorf("didOpen %s: %w", f.Path, err)
		}

		for _, ref := range fileRefs {
			loc, err := client.Definition(f.Path, ref.Line, ref.Column)
			if err != nil {
				return resolved, fmt.Errorf("definition query: %w", err)
			}
			if loc == nil || !strings.HasPrefix(loc.Path, t.workspace) {
				continue
			}
			target := fileByPath[loc.Path]
			if target == nil {
				continue
			}
			sym, err := t.store.SymbolAt(target.ID, loc.Line, loc.Column)
			if err != nil {
				return resolved, fmt.Errorf("symbol lookup: %w", err)
			}
			if sym == nil {
				continue
			}
			if err := t.store.BindReference(ref.ID, sym.ID); err != nil {
				return resolved, fmt.Errorf("bind reference: %w", err)
			}
			resolved++
		}
	}
	t.logger.Debug("LSP refinement complete", "resolved", resolved)
	return resolved, nil
}

// pickProvider chooses the language server: the explicit option first, then
// the workspace config, then the workspace's dominant language.
func (t *Tethys) pickProvider(opts IndexOptions, cfg *workspace.Config) (lsp.Provider, error) {
	name := opts.LSPProvider
	if name == "" && cfg != nil {
		name = cfg.LSP
	}
	if name != "" {
		provider, ok := lsp.ProviderByName(name)
		if !ok {
			return lsp.Provider{}, fmt.Errorf("tethys: configuration: unknown LSP provider %q", name)
		}
		return provider, nil
	}

	stats, err := t.store.Stats()
	if err != nil {
		return lsp.Provider{}, fmt.Errorf("tethys: lsp provider selection: %w", err)
	}
	dominant := store.LangRust
	best := -1
	for lang, count := range stats.FilesByLanguage {
		if count > best {
			dominant, best = lang, count
		}
	}
	provider, _ := lsp.ProviderForLanguage(dominant)
	return provider, nil
}
