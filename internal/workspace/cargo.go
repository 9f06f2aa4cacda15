package workspace

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Crate is a discovered Rust package: its name, root directory, optional
// library entry, and binary entries. Used to compute module paths for
// symbols; not persisted.
type Crate struct {
	Name    string
	Root    string // absolute directory containing Cargo.toml
	LibPath string // relative, e.g. "src/lib.rs"; empty when the crate has no library
	Bins    []BinEntry
}

// BinEntry is one binary target of a crate.
type BinEntry struct {
	Name string
	Path string // relative, e.g. "src/bin/tool.rs"
}

// cargoManifest mirrors the subset of Cargo.toml we read.
type cargoManifest struct {
	Package *struct {
		Name string `toml:"name"`
	} `toml:"package"`
	Workspace *struct {
		Members []string `toml:"members"`
	} `toml:"workspace"`
	Lib *struct {
		Path string `toml:"path"`
	} `toml:"lib"`
	Bin []struct {
		Name string `toml:"name"`
		Path string `toml:"path"`
	} `toml:"bin"`
}

// DiscoverCrates parses Cargo.toml manifests under root. Three shapes are
// handled: a virtual workspace ([workspace] without [package]), a workspace
// with a root crate (both), and a single crate (just [package]). Returns an
// empty slice for non-Rust projects; members that fail to parse are skipped
// with a warning.
func DiscoverCrates(root string, logger *slog.Logger) []Crate {
	if logger == nil {
		logger = slog.Default()
	}
	manifest, err := readManifest(filepath.Join(root, "Cargo.toml"))
	if err != nil {
		logger.Debug("no valid Cargo.toml, treating as non-Rust project", "root", root, "error", err)
		return nil
	}

	var crates []Crate

	if manifest.Workspace != nil {
		for _, member := range manifest.Workspace.Members {
			if strings.Contains(member, "*") {
				for _, dir := range globMembers(root, member, logger) {
					if c, ok := parseCrate(dir, logger); ok {
						crates = append(crates, c)
					}
				}
				continue
			}
			if c, ok := parseCrate(filepath.Join(root, member), logger); ok {
				crates = append(crates, c)
			}
		}
	}

	if manifest.Package != nil {
		if c, ok := crateFromManifest(root, manifest); ok {
			crates = append(crates, c)
		}
	}

	logger.Debug("discovered crates", "root", root, "count", len(crates))
	return crates
}

func readManifest(path string) (*cargoManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m cargoManifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func parseCrate(dir string, logger *slog.Logger) (Crate, bool) {
	manifestPath := filepath.Join(dir, "Cargo.toml")
	manifest, err := readManifest(manifestPath)
	if err != nil {
		logger.Warn("failed to parse crate manifest, skipping", "path", manifestPath, "error", err)
		return Crate{}, false
	}
	return crateFromManifest(dir, manifest)
}

func crateFromManifest(dir string, manifest *cargoManifest) (Crate, bool) {
	if manifest.Package == nil {
		return Crate{}, false
	}
	c := Crate{Name: manifest.Package.Name, Root: dir}

	if manifest.Lib != nil && manifest.Lib.Path != "" {
		c.LibPath = manifest.Lib.Path
	} else if fileExists(filepath.Join(dir, "src", "lib.rs")) {
		c.LibPath = filepath.Join("src", "lib.rs")
	}

	// Explicit [[bin]] entries fall back to Cargo's src/bin/{name}.rs
	// convention when no path is given.
	for _, bin := range manifest.Bin {
		name := bin.Name
		if name == "" {
			name = c.Name
		}
		path := bin.Path
		if path == "" {
			path = filepath.Join("src", "bin", name+".rs")
		}
		c.Bins = append(c.Bins, BinEntry{Name: name, Path: path})
	}
	if len(c.Bins) == 0 && fileExists(filepath.Join(dir, "src", "main.rs")) {
		c.Bins = append(c.Bins, BinEntry{Name: c.Name, Path: filepath.Join("src", "main.rs")})
	}

	return c, true
}

// globMembers expands a "prefix/*" workspace member pattern to directories
// containing a Cargo.toml. Other glob shapes are not supported.
func globMembers(root, pattern string, logger *slog.Logger) []string {
	prefix, ok := strings.CutSuffix(pattern, "/*")
	if !ok {
		logger.Warn("unsupported workspace member glob, only 'prefix/*' supported", "pattern", pattern)
		return nil
	}
	searchDir := filepath.Join(root, prefix)
	entries, err := os.ReadDir(searchDir)
	if err != nil {
		logger.Debug("glob search directory unreadable", "dir", searchDir, "error", err)
		return nil
	}
	var dirs []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(searchDir, entry.Name())
		if fileExists(filepath.Join(dir, "Cargo.toml")) {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
