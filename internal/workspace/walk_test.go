package workspace

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/tethys/internal/store"
)

func discoverTest(t *testing.T, root string, cfg *Config) *Discovery {
	t.Helper()
	if cfg == nil {
		cfg = &Config{}
	}
	d, err := Discover(root, cfg, nil)
	require.NoError(t, err)
	return d
}

func entryPaths(d *Discovery) []string {
	paths := make([]string, len(d.Entries))
	for i, e := range d.Entries {
		paths[i] = e.Path
	}
	return paths
}

func TestDiscover_ClassifiesByExtension(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	rs := writeFile(t, root, "src/lib.rs", "fn a() {}")
	cs := writeFile(t, root, "Services/Auth.cs", "class A {}")
	writeFile(t, root, "README.md", "docs")
	writeFile(t, root, "script.py", "pass")

	d := discoverTest(t, root, nil)
	assert.ElementsMatch(t, []string{rs, cs}, entryPaths(d))
	assert.Equal(t, 2, d.Unsupported, "md and py count as skipped-unsupported")

	byPath := make(map[string]store.Language)
	for _, e := range d.Entries {
		byPath[e.Path] = e.Language
	}
	assert.Equal(t, store.LangRust, byPath[rs])
	assert.Equal(t, store.LangCSharp, byPath[cs])
}

func TestDiscover_SkipsHiddenAndArtefactDirs(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	keep := writeFile(t, root, "src/keep.rs", "")
	writeFile(t, root, ".git/hidden.rs", "")
	writeFile(t, root, ".hidden.rs", "")
	writeFile(t, root, "target/debug/build.rs", "")
	writeFile(t, root, "node_modules/x/y.cs", "")
	writeFile(t, root, "obj/gen.cs", "")

	d := discoverTest(t, root, nil)
	assert.Equal(t, []string{keep}, entryPaths(d))
}

func TestDiscover_ConfigAddsIgnoresAndLanguageFilter(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	keep := writeFile(t, root, "src/keep.rs", "")
	writeFile(t, root, "gen/skip.rs", "")
	writeFile(t, root, "Services/Auth.cs", "")

	d := discoverTest(t, root, &Config{Ignore: []string{"gen"}, Languages: []string{"rust"}})
	assert.Equal(t, []string{keep}, entryPaths(d))
}

func TestDiscover_AttachesCrateInfo(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, "Cargo.toml", "[package]\nname = \"acme\"\n")
	writeFile(t, root, "src/lib.rs", "")
	writeFile(t, root, "src/db.rs", "")

	d := discoverTest(t, root, nil)
	require.Len(t, d.Crates, 1)
	require.Len(t, d.Entries, 2)
	for _, e := range d.Entries {
		require.NotNil(t, e.Crate, "files under the crate root carry crate info")
		assert.Equal(t, "acme", e.Crate.Name)
	}
}

func TestDiscover_FallbackCrateWithoutManifest(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, "src/lib.rs", "")
	writeFile(t, root, "src/a.rs", "")

	d := discoverTest(t, root, nil)
	require.Len(t, d.Crates, 1, "conventional src/lib.rs layout synthesizes a crate")
	assert.Equal(t, filepath.Join("src", "lib.rs"), d.Crates[0].LibPath)
	for _, e := range d.Entries {
		require.NotNil(t, e.Crate)
	}
}

func TestDiscover_EmptyWorkspace(t *testing.T) {
	t.Parallel()
	d := discoverTest(t, t.TempDir(), nil)
	assert.Empty(t, d.Entries)
	assert.Zero(t, d.Unsupported)
	assert.Empty(t, d.SkippedDirs)
}

func TestLoadConfig_MissingFileIsZeroConfig(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, cfg.IgnoreDirs())
	assert.True(t, cfg.LanguageEnabled(store.LangRust))
	assert.True(t, cfg.LanguageEnabled(store.LangCSharp))
}

func TestLoadConfig_ParsesYAML(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, ".tethys/config.yaml", "ignore:\n  - gen\nlanguages:\n  - rust\nlsp: rust-analyzer\n")

	cfg, err := LoadConfig(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"gen"}, cfg.IgnoreDirs())
	assert.True(t, cfg.LanguageEnabled(store.LangRust))
	assert.False(t, cfg.LanguageEnabled(store.LangCSharp))
	assert.Equal(t, "rust-analyzer", cfg.LSP)
}

func TestLoadConfig_MalformedIsError(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, ".tethys/config.yaml", "ignore: [unclosed")
	_, err := LoadConfig(root)
	require.Error(t, err)
}
