package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/jward/tethys/internal/store"
)

// Config is the optional per-workspace configuration loaded from
// .tethys/config.yaml. A missing file yields the zero Config, which enables
// every language and adds no extra ignores.
type Config struct {
	// Ignore lists extra directory names to skip during discovery, on top
	// of the built-in artefact denylist.
	Ignore []string `yaml:"ignore"`
	// Languages restricts indexing to the listed language tags. Empty means
	// all supported languages.
	Languages []string `yaml:"languages"`
	// LSP names the default language server provider for --lsp runs.
	LSP string `yaml:"lsp"`
}

// LoadConfig reads .tethys/config.yaml under root. A missing file is not an
// error; a malformed one is.
func LoadConfig(root string) (*Config, error) {
	path := filepath.Join(root, ".tethys", "config.yaml")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// IgnoreDirs returns the extra directory names to skip.
func (c *Config) IgnoreDirs() []string {
	if c == nil {
		return nil
	}
	return c.Ignore
}

// LanguageEnabled reports whether a language should be indexed.
func (c *Config) LanguageEnabled(lang store.Language) bool {
	if c == nil || len(c.Languages) == 0 {
		return true
	}
	for _, l := range c.Languages {
		if store.Language(l) == lang {
			return true
		}
	}
	return false
}
