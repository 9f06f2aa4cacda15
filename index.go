package tethys

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"

	"github.com/jward/tethys/internal/lang"
	"github.com/jward/tethys/internal/parser"
	"github.com/jward/tethys/internal/store"
	"github.com/jward/tethys/internal/workspace"
)

// Index runs a full indexing pass over the workspace: discovery, per-file
// parse and extract, reference resolution, and call-edge materialization.
// Per-file failures are collected into the returned stats; only
// infrastructure failures return an error.
func (t *Tethys) Index() (*IndexingStats, error) {
	return t.IndexWithOptions(IndexOptions{})
}

// Rebuild drops all indexed data and runs a full Index.
func (t *Tethys) Rebuild() (*IndexingStats, error) {
	return t.RebuildWithOptions(IndexOptions{})
}

// RebuildWithOptions drops all indexed data and runs IndexWithOptions.
func (t *Tethys) RebuildWithOptions(opts IndexOptions) (*IndexingStats, error) {
	if err := t.store.Reset(); err != nil {
		return nil, fmt.Errorf("tethys: rebuild: %w", err)
	}
	return t.IndexWithOptions(opts)
}

// fileResult is what one extraction worker hands back to the committer:
// either facts to commit or a collected per-file error.
type fileResult struct {
	path     string
	file     *store.File
	facts    *store.FileFacts
	indexErr *IndexError
}

// IndexWithOptions runs a full indexing pass with explicit options.
func (t *Tethys) IndexWithOptions(opts IndexOptions) (*IndexingStats, error) {
	start := time.Now()
	stats := &IndexingStats{}

	cfg, err := workspace.LoadConfig(t.workspace)
	if err != nil {
		return nil, fmt.Errorf("tethys: configuration: %w", err)
	}

	disc, err := workspace.Discover(t.workspace, cfg, t.logger)
	if err != nil {
		return nil, fmt.Errorf("tethys: discovery: %w", err)
	}
	stats.FilesSkipped = disc.Unsupported
	stats.DirectoriesSkipped = disc.SkippedDirs

	if err := t.pruneDeleted(disc); err != nil {
		return nil, err
	}

	// Parse and extract in parallel; each worker owns its parser instances,
	// the single committer below owns all writes.
	numWorkers := min(runtime.NumCPU(), max(len(disc.Entries), 1))
	workCh := make(chan workspace.Entry, len(disc.Entries))
	for _, entry := range disc.Entries {
		workCh <- entry
	}
	close(workCh)

	resultCh := make(chan fileResult, numWorkers)
	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			coordinator := parser.NewCoordinator()
			for entry := range workCh {
				resultCh <- extractOne(coordinator, entry)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(resultCh)
	}()

	for res := range resultCh {
		if res.indexErr != nil {
			stats.Errors = append(stats.Errors, *res.indexErr)
			continue
		}
		if err := t.store.ReplaceFileFacts(res.file, res.facts); err != nil {
			t.logger.Warn("file transaction failed", "path", res.path, "error", err)
			stats.Errors = append(stats.Errors, IndexError{
				Path: res.path, Kind: ErrKindDatabase, Message: err.Error(),
			})
			continue
		}
		stats.FilesIndexed++
		stats.SymbolsFound += len(res.facts.Symbols)
		stats.ReferencesFound += len(res.facts.Refs)
		if t.progress != nil {
			t.progress(res.path)
		}
	}

	resolved, err := t.store.ResolvePass()
	if err != nil {
		return nil, fmt.Errorf("tethys: resolve: %w", err)
	}
	stats.UnresolvedDependencies = resolved.Unresolved

	if opts.WithLSP {
		if err := t.refineWithLSP(opts, cfg, stats); err != nil {
			return nil, err
		}
	}

	if err := t.store.MaterializeCallEdges(); err != nil {
		return nil, fmt.Errorf("tethys: materialize: %w", err)
	}
	if err := t.store.MaterializeFileDeps(); err != nil {
		return nil, fmt.Errorf("tethys: materialize: %w", err)
	}

	stats.Duration = time.Since(start)
	t.logger.Info("index complete",
		"files", stats.FilesIndexed,
		"symbols", stats.SymbolsFound,
		"references", stats.ReferencesFound,
		"errors", len(stats.Errors),
		"duration", stats.Duration)
	return stats, nil
}

// pruneDeleted removes stored files that no longer exist in the workspace.
func (t *Tethys) pruneDeleted(disc *workspace.Discovery) error {
	present := make(map[string]bool, len(disc.Entries))
	for _, entry := range disc.Entries {
		present[entry.Path] = true
	}
	stored, err := t.store.AllFiles()
	if err != nil {
		return fmt.Errorf("tethys: list indexed files: %w", err)
	}
	for _, f := range stored {
		if !present[f.Path] {
			if err := t.store.DeleteFile(f.ID); err != nil {
				return fmt.Errorf("tethys: prune %s: %w", f.Path, err)
			}
		}
	}
	return nil
}

// extractOne reads, parses, and extracts a single file. All failures come
// back as collected IndexErrors, never as hard errors.
func extractOne(coordinator *parser.Coordinator, entry workspace.Entry) fileResult {
	res := fileResult{path: entry.Path}

	info, err := os.Stat(entry.Path)
	if err != nil {
		res.indexErr = &IndexError{Path: entry.Path, Kind: ErrKindIO, Message: err.Error()}
		return res
	}
	content, err := os.ReadFile(entry.Path)
	if err != nil {
		res.indexErr = &IndexError{Path: entry.Path, Kind: ErrKindIO, Message: err.Error()}
		return res
	}
	if !utf8.Valid(content) {
		res.indexErr = &IndexError{Path: entry.Path, Kind: ErrKindEncoding, Message: "file is not valid UTF-8"}
		return res
	}

	tree, err := coordinator.Parse(context.Background(), entry.Language, content)
	if err != nil {
		res.indexErr = &IndexError{Path: entry.Path, Kind: ErrKindParseFailed, Message: err.Error()}
		return res
	}
	defer tree.Close()
	if tree.RootNode().HasError() {
		res.indexErr = &IndexError{Path: entry.Path, Kind: ErrKindParseFailed, Message: "source contains syntax errors"}
		return res
	}

	extractor := lang.ForLanguage(entry.Language)
	if extractor == nil {
		res.indexErr = &IndexError{Path: entry.Path, Kind: ErrKindUnsupportedLanguage, Message: fmt.Sprintf("no extractor for %q", entry.Language)}
		return res
	}
	facts, err := extractor.Extract(tree, content, entry.Path, entry.Crate)
	if err != nil {
		res.indexErr = &IndexError{Path: entry.Path, Kind: ErrKindParseFailed, Message: err.Error()}
		return res
	}

	hash := xxhash.Sum64(content)
	res.file = &store.File{
		Path:        entry.Path,
		Language:    entry.Language,
		MtimeNs:     info.ModTime().UnixNano(),
		SizeBytes:   info.Size(),
		ContentHash: &hash,
		IndexedAt:   time.Now().Unix(),
	}
	res.facts = facts
	return res
}
