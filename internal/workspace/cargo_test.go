package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDiscoverCrates_SingleCrate(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, "Cargo.toml", "[package]\nname = \"acme\"\n")
	writeFile(t, root, "src/lib.rs", "pub fn hello() {}")
	writeFile(t, root, "src/main.rs", "fn main() {}")

	crates := DiscoverCrates(root, nil)
	require.Len(t, crates, 1)
	c := crates[0]
	assert.Equal(t, "acme", c.Name)
	assert.Equal(t, root, c.Root)
	assert.Equal(t, filepath.Join("src", "lib.rs"), c.LibPath)
	require.Len(t, c.Bins, 1)
	assert.Equal(t, "acme", c.Bins[0].Name)
	assert.Equal(t, filepath.Join("src", "main.rs"), c.Bins[0].Path)
}

func TestDiscoverCrates_ExplicitLibAndBins(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, "Cargo.toml", `[package]
name = "acme"

[lib]
path = "lib/entry.rs"

[[bin]]
name = "tool"

[[bin]]
name = "other"
path = "custom/other.rs"
`)

	crates := DiscoverCrates(root, nil)
	require.Len(t, crates, 1)
	c := crates[0]
	assert.Equal(t, "lib/entry.rs", c.LibPath)
	require.Len(t, c.Bins, 2)
	assert.Equal(t, filepath.Join("src", "bin", "tool.rs"), c.Bins[0].Path,
		"missing [[bin]] path falls back to src/bin/{name}.rs")
	assert.Equal(t, "custom/other.rs", c.Bins[1].Path)
}

func TestDiscoverCrates_VirtualWorkspaceWithGlob(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, "Cargo.toml", "[workspace]\nmembers = [\"crates/*\"]\n")
	writeFile(t, root, "crates/one/Cargo.toml", "[package]\nname = \"one\"\n")
	writeFile(t, root, "crates/one/src/lib.rs", "")
	writeFile(t, root, "crates/two/Cargo.toml", "[package]\nname = \"two\"\n")
	writeFile(t, root, "crates/two/src/main.rs", "fn main() {}")
	// A directory without a manifest is not a crate.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "crates", "junk"), 0o755))

	crates := DiscoverCrates(root, nil)
	require.Len(t, crates, 2)
	names := []string{crates[0].Name, crates[1].Name}
	assert.ElementsMatch(t, []string{"one", "two"}, names)
}

func TestDiscoverCrates_WorkspaceWithRootCrate(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, "Cargo.toml", `[package]
name = "root-crate"

[workspace]
members = ["member"]
`)
	writeFile(t, root, "src/lib.rs", "")
	writeFile(t, root, "member/Cargo.toml", "[package]\nname = \"member\"\n")
	writeFile(t, root, "member/src/lib.rs", "")

	crates := DiscoverCrates(root, nil)
	require.Len(t, crates, 2)
	names := []string{crates[0].Name, crates[1].Name}
	assert.ElementsMatch(t, []string{"root-crate", "member"}, names)
}

func TestDiscoverCrates_NonRustProject(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	assert.Empty(t, DiscoverCrates(root, nil))
}

func TestDiscoverCrates_MalformedManifest(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, "Cargo.toml", "not [valid toml")
	assert.Empty(t, DiscoverCrates(root, nil))
}

func TestDiscoverCrates_SkipsUnparseableMember(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, "Cargo.toml", "[workspace]\nmembers = [\"good\", \"bad\"]\n")
	writeFile(t, root, "good/Cargo.toml", "[package]\nname = \"good\"\n")
	writeFile(t, root, "bad/Cargo.toml", "====")

	crates := DiscoverCrates(root, nil)
	require.Len(t, crates, 1)
	assert.Equal(t, "good", crates[0].Name)
}
