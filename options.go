package tethys

import (
	"os"
	"strconv"
	"time"
)

// DefaultLSPTimeoutSeconds bounds the wait for a language server's
// "Loading workspace" progress sequence.
const DefaultLSPTimeoutSeconds = 120

// IndexOptions control an indexing run.
type IndexOptions struct {
	// WithLSP enables the LSP refinement stage after static resolution.
	WithLSP bool
	// LSPTimeoutSeconds is the maximum wait for workspace loading. Zero
	// means: take TETHYS_LSP_TIMEOUT from the environment, falling back to
	// DefaultLSPTimeoutSeconds. An explicit value wins over the env var.
	LSPTimeoutSeconds uint64
	// LSPProvider selects which language server to spawn (e.g.
	// "rust-analyzer", "csharp-ls"). Empty picks the workspace config's
	// choice, then the per-language default.
	LSPProvider string
}

// WithLSPOptions returns options with LSP refinement enabled.
func WithLSPOptions() IndexOptions {
	return IndexOptions{WithLSP: true}
}

// lspTimeoutSeconds resolves the effective timeout.
func (o IndexOptions) lspTimeoutSeconds() uint64 {
	if o.LSPTimeoutSeconds > 0 {
		return o.LSPTimeoutSeconds
	}
	if env := os.Getenv("TETHYS_LSP_TIMEOUT"); env != "" {
		if v, err := strconv.ParseUint(env, 10, 64); err == nil && v > 0 {
			return v
		}
	}
	return DefaultLSPTimeoutSeconds
}

func secondsDuration(s uint64) time.Duration {
	return time.Duration(s) * time.Second
}
