package tethys

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// benchWorkspace generates a synthetic crate with n modules, each defining a
// handful of functions and calling into the next module.
func benchWorkspace(b *testing.B, n int) string {
	b.Helper()
	dir := b.TempDir()
	src := filepath.Join(dir, "src")
	if err := os.MkdirAll(src, 0o755); err != nil {
		b.Fatal(err)
	}

	lib := ""
	for i := 0; i < n; i++ {
		lib += fmt.Sprintf("mod m%d;\n", i)
		content := fmt.Sprintf(`use crate::m%d::entry%d;

pub fn entry%d() { helper%d(); }

fn helper%d() {
    entry%d();
}
`, (i+1)%n, (i+1)%n, i, i, i, (i+1)%n)
		if err := os.WriteFile(filepath.Join(src, fmt.Sprintf("m%d.rs", i)), []byte(content), 0o644); err != nil {
			b.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(src, "lib.rs"), []byte(lib), 0o644); err != nil {
		b.Fatal(err)
	}
	return dir
}

func BenchmarkIndex(b *testing.B) {
	dir := benchWorkspace(b, 50)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		dbPath := filepath.Join(b.TempDir(), "bench.db")
		ts, err := OpenWithDB(dir, dbPath)
		if err != nil {
			b.Fatal(err)
		}
		b.StartTimer()

		if _, err := ts.Index(); err != nil {
			b.Fatal(err)
		}

		b.StopTimer()
		ts.Close()
		b.StartTimer()
	}
}

func BenchmarkSearchSymbols(b *testing.B) {
	dir := benchWorkspace(b, 50)
	ts, err := OpenWithDB(dir, filepath.Join(b.TempDir(), "bench.db"))
	if err != nil {
		b.Fatal(err)
	}
	defer ts.Close()
	if _, err := ts.Index(); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ts.SearchSymbols("entry"); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkGetCallers(b *testing.B) {
	dir := benchWorkspace(b, 50)
	ts, err := OpenWithDB(dir, filepath.Join(b.TempDir(), "bench.db"))
	if err != nil {
		b.Fatal(err)
	}
	defer ts.Close()
	if _, err := ts.Index(); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ts.GetCallers("entry0"); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDetectCycles(b *testing.B) {
	dir := benchWorkspace(b, 50)
	ts, err := OpenWithDB(dir, filepath.Join(b.TempDir(), "bench.db"))
	if err != nil {
		b.Fatal(err)
	}
	defer ts.Close()
	if _, err := ts.Index(); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ts.DetectCycles(); err != nil {
			b.Fatal(err)
		}
	}
}
