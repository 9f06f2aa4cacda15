package tethys

import (
	"fmt"
	"os"

	"github.com/jward/tethys/internal/workspace"
)

// StaleReport lists the three disjoint ways the index can lag the
// workspace.
type StaleReport struct {
	Modified []string // on disk, mtime differs from the recorded value
	Added    []string // on disk, not in the index
	Deleted  []string // in the index, gone from disk
}

// IsStale reports whether any of the three sets is non-empty.
func (r *StaleReport) IsStale() bool {
	return len(r.Modified) > 0 || len(r.Added) > 0 || len(r.Deleted) > 0
}

// GetStaleFiles compares the workspace against the index. Mtime is
// authoritative: content hashes are stored for callers that want to compare
// index states, not consulted here.
func (t *Tethys) GetStaleFiles() (*StaleReport, error) {
	cfg, err := workspace.LoadConfig(t.workspace)
	if err != nil {
		return nil, fmt.Errorf("tethys: configuration: %w", err)
	}
	disc, err := workspace.Discover(t.workspace, cfg, t.logger)
	if err != nil {
		return nil, fmt.Errorf("tethys: discovery: %w", err)
	}

	stored, err := t.store.AllFiles()
	if err != nil {
		return nil, fmt.Errorf("tethys: list indexed files: %w", err)
	}
	recorded := make(map[string]int64, len(stored)) // path -> mtime_ns
	for _, f := range stored {
		recorded[f.Path] = f.MtimeNs
	}

	report := &StaleReport{}
	onDisk := make(map[string]bool, len(disc.Entries))
	for _, entry := range disc.Entries {
		onDisk[entry.Path] = true
		mtime, ok := recorded[entry.Path]
		if !ok {
			report.Added = append(report.Added, entry.Path)
			continue
		}
		info, err := os.Stat(entry.Path)
		if err != nil {
			// Raced away between walk and stat: treat as deleted below.
			delete(onDisk, entry.Path)
			continue
		}
		if info.ModTime().UnixNano() != mtime {
			report.Modified = append(report.Modified, entry.Path)
		}
	}
	for _, f := range stored {
		if !onDisk[f.Path] {
			report.Deleted = append(report.Deleted, f.Path)
		}
	}
	return report, nil
}

// NeedsUpdate reports whether any indexed file is stale.
func (t *Tethys) NeedsUpdate() (bool, error) {
	report, err := t.GetStaleFiles()
	if err != nil {
		return false, err
	}
	return report.IsStale(), nil
}
