// Package workspace discovers indexable source files and package manifests
// under a workspace root.
package workspace

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jward/tethys/internal/parser"
	"github.com/jward/tethys/internal/store"
)

// skipDirs are build-artefact directories never worth walking.
var skipDirs = map[string]bool{
	"target":       true,
	"node_modules": true,
	"vendor":       true,
	"bin":          true,
	"obj":          true,
	"__pycache__":  true,
}

// Entry is one discovered source file.
type Entry struct {
	Path     string // absolute
	Language store.Language
	Crate    *Crate // enclosing crate, nil when the file sits outside every crate
}

// Discovery is the result of walking a workspace root.
type Discovery struct {
	Entries     []Entry
	SkippedDirs []string // directories skipped for lack of read permission
	Unsupported int      // files whose extensions map to no known language
	Crates      []Crate
}

// Discover walks root, classifies files by extension, and attaches crate
// info for files that sit inside a discovered crate. Hidden entries and
// build-artefact directories are skipped; unreadable directories are
// recorded as non-fatal skips. Symlinks are followed and the logical path is
// recorded; cycles are bounded by the OS symlink-follow limit.
func Discover(root string, cfg *Config, logger *slog.Logger) (*Discovery, error) {
	if logger == nil {
		logger = slog.Default()
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("discover: resolve root: %w", err)
	}

	d := &Discovery{Crates: DiscoverCrates(absRoot, logger)}
	if len(d.Crates) == 0 {
		if c, ok := fallbackCrate(absRoot); ok {
			d.Crates = []Crate{c}
		}
	}

	ignored := make(map[string]bool, len(skipDirs)+len(cfg.IgnoreDirs()))
	for name := range skipDirs {
		ignored[name] = true
	}
	for _, name := range cfg.IgnoreDirs() {
		ignored[name] = true
	}

	err = walkFollowingSymlinks(absRoot, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				logger.Debug("skipping unreadable directory", "path", path)
				d.SkippedDirs = append(d.SkippedDirs, path)
				return fs.SkipDir
			}
			return err
		}
		name := entry.Name()
		if entry.IsDir() {
			if path != absRoot && (strings.HasPrefix(name, ".") || ignored[name]) {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		lang, ok := parser.LanguageForPath(path)
		if !ok {
			d.Unsupported++
			return nil
		}
		if !cfg.LanguageEnabled(lang) {
			return nil
		}
		d.Entries = append(d.Entries, Entry{
			Path:     path,
			Language: lang,
			Crate:    crateFor(path, d.Crates),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover: walk %s: %w", absRoot, err)
	}

	logger.Debug("discovery complete",
		"files", len(d.Entries),
		"unsupported", d.Unsupported,
		"skipped_dirs", len(d.SkippedDirs),
		"crates", len(d.Crates))
	return d, nil
}

// walkFollowingSymlinks is filepath.WalkDir with directory symlinks followed.
// fs.WalkDir treats a symlinked directory as a file, which would hide real
// sources in workspaces that link crates in.
func walkFollowingSymlinks(root string, fn fs.WalkDirFunc) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return fn(path, entry, err)
		}
		if entry.Type()&fs.ModeSymlink != 0 {
			info, statErr := os.Stat(path)
			if statErr != nil {
				// Dangling symlink: not indexable, not an error.
				return nil
			}
			if info.IsDir() {
				return walkFollowingSymlinks(path, fn)
			}
		}
		return fn(path, entry, err)
	})
}

// fallbackCrate synthesizes a crate for workspaces with Rust sources laid
// out conventionally but no Cargo.toml, so module paths still compute.
func fallbackCrate(root string) (Crate, bool) {
	c := Crate{Name: filepath.Base(root), Root: root}
	// The entry file itself need not exist; it only anchors the directory
	// module paths are computed relative to.
	if info, err := os.Stat(filepath.Join(root, "src")); err == nil && info.IsDir() {
		c.LibPath = filepath.Join("src", "lib.rs")
		return c, true
	}
	return Crate{}, false
}

// crateFor returns the crate whose root contains path, preferring the
// longest (most specific) root when crates nest.
func crateFor(path string, crates []Crate) *Crate {
	var best *Crate
	for i := range crates {
		c := &crates[i]
		if !strings.HasPrefix(path, c.Root+string(filepath.Separator)) {
			continue
		}
		if best == nil || len(c.Root) > len(best.Root) {
			best = c
		}
	}
	return best
}
