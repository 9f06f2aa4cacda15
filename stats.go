package tethys

import (
	"fmt"
	"time"

	"github.com/jward/tethys/internal/store"
)

// IndexingStats summarizes one Index or Rebuild run.
type IndexingStats struct {
	FilesIndexed           int
	FilesSkipped           int // files whose extension maps to no known language
	SymbolsFound           int
	ReferencesFound        int
	LspResolvedCount       int
	UnresolvedDependencies []string
	Errors                 []IndexError
	DirectoriesSkipped     []string
	Duration               time.Duration
}

// Stats are aggregate counts over the stored index.
type Stats = store.Stats

// GetStats returns aggregate counts over the stored index. Rows whose
// language or kind tag is unknown to this build (a database written by a
// newer Tethys) are reported in the SkippedUnknown fields.
func (t *Tethys) GetStats() (*Stats, error) {
	stats, err := t.store.Stats()
	if err != nil {
		return nil, fmt.Errorf("tethys: stats: %w", err)
	}
	return stats, nil
}
