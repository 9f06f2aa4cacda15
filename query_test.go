package tethys

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// indexWorkspace builds a workspace, indexes it, and fails the test on any
// per-file error.
func indexWorkspace(t *testing.T, files map[string]string) (string, *Tethys) {
	t.Helper()
	dir, ts := workspaceWith(t, files)
	stats, err := ts.Index()
	require.NoError(t, err)
	require.Empty(t, stats.Errors)
	return dir, ts
}

func TestGetCallers_DirectCaller(t *testing.T) {
	t.Parallel()
	dir, ts := indexWorkspace(t, map[string]string{
		"src/lib.rs": "mod a;\nmod b;",
		"src/a.rs":   "pub fn target() {}",
		"src/b.rs":   "use crate::a::target;\nfn driver() { target(); }",
	})

	callers, err := ts.GetCallers("target")
	require.NoError(t, err)
	require.Len(t, callers, 1)
	assert.Equal(t, "driver", callers[0].Symbol.Name)
	assert.Equal(t, filepath.Join(dir, "src", "b.rs"), callers[0].Path)
	assert.Equal(t, 1, callers[0].CallCount)
}

func TestGetCallers_UnknownSymbolIsEmpty(t *testing.T) {
	t.Parallel()
	_, ts := indexWorkspace(t, map[string]string{"src/lib.rs": "fn a() {}"})
	callers, err := ts.GetCallers("no_such_symbol")
	require.NoError(t, err)
	assert.Empty(t, callers)
}

func TestGetCallers_QualifiedMethodName(t *testing.T) {
	t.Parallel()
	_, ts := indexWorkspace(t, map[string]string{
		"src/lib.rs": `
pub struct Helper;

impl Helper {
    pub fn new() -> Helper { Helper }
}

fn build() {
    let h = Helper::new();
    let _ = h;
}
`,
	})

	callers, err := ts.GetCallers("Helper::new")
	require.NoError(t, err)
	require.Len(t, callers, 1)
	assert.Equal(t, "build", callers[0].Symbol.Name)
}

func TestDetectCycles_ThreeFileRing(t *testing.T) {
	t.Parallel()
	dir, ts := indexWorkspace(t, map[string]string{
		"src/lib.rs": "mod f1;\nmod f2;\nmod f3;",
		"src/f1.rs":  "use crate::f2::s2;\npub fn s1() { s2(); }",
		"src/f2.rs":  "use crate::f3::s3;\npub fn s2() { s3(); }",
		"src/f3.rs":  "use crate::f1::s1;\npub fn s3() { s1(); }",
	})

	cycles, err := ts.DetectCycles()
	require.NoError(t, err)
	require.Len(t, cycles, 1)
	want := []string{
		filepath.Join(dir, "src", "f1.rs"),
		filepath.Join(dir, "src", "f2.rs"),
		filepath.Join(dir, "src", "f3.rs"),
	}
	assert.ElementsMatch(t, want, cycles[0].Files)

	chain, err := ts.GetDependencyChain("src/f1.rs", "src/f1.rs")
	require.NoError(t, err)
	require.Len(t, chain, 4, "ring of three is a path of length 3")
	assert.Equal(t, chain[0], chain[len(chain)-1])
}

func TestDetectCycles_AcyclicIsEmpty(t *testing.T) {
	t.Parallel()
	_, ts := indexWorkspace(t, map[string]string{
		"src/lib.rs": "mod a;\nmod b;",
		"src/a.rs":   "use crate::b::helper;\npub fn top() { helper(); }",
		"src/b.rs":   "pub fn helper() {}",
	})

	cycles, err := ts.DetectCycles()
	require.NoError(t, err)
	assert.Empty(t, cycles)
}

func TestGetDependencyChain_AcrossFiles(t *testing.T) {
	t.Parallel()
	dir, ts := indexWorkspace(t, map[string]string{
		"src/lib.rs": "mod a;\nmod b;\nmod c;",
		"src/a.rs":   "use crate::b::b_fn;\npub fn a_fn() { b_fn(); }",
		"src/b.rs":   "use crate::c::c_fn;\npub fn b_fn() { c_fn(); }",
		"src/c.rs":   "pub fn c_fn() {}",
	})

	chain, err := ts.GetDependencyChain("src/a.rs", "src/c.rs")
	require.NoError(t, err)
	require.Len(t, chain, 3)
	assert.Equal(t, filepath.Join(dir, "src", "a.rs"), chain[0])
	assert.Equal(t, filepath.Join(dir, "src", "b.rs"), chain[1])
	assert.Equal(t, filepath.Join(dir, "src", "c.rs"), chain[2])

	// No reverse path in an acyclic chain.
	none, err := ts.GetDependencyChain("src/c.rs", "src/a.rs")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestGetImpact_DirectAndTransitive(t *testing.T) {
	t.Parallel()
	dir, ts := indexWorkspace(t, map[string]string{
		"src/lib.rs": "mod core;\nmod helpers;\nmod api;",
		"src/core.rs": `pub fn core_add(a: u32, b: u32) -> u32 { a + b }
pub fn core_mul(a: u32, b: u32) -> u32 { a * b }`,
		"src/helpers.rs": "use crate::core::core_add;\npub fn helper_sum() -> u32 { core_add(1, 2) }",
		"src/api.rs":     "use crate::helpers::helper_sum;\npub fn serve() -> u32 { helper_sum() }",
	})

	impact, err := ts.GetImpact("src/core.rs", nil)
	require.NoError(t, err)
	require.Len(t, impact.DirectDependents, 1)
	direct := impact.DirectDependents[0]
	assert.Equal(t, filepath.Join(dir, "src", "helpers.rs"), direct.Path)
	assert.Equal(t, 1, direct.Depth)
	assert.Contains(t, direct.SymbolsUsed, "core_add")
	assert.NotContains(t, direct.SymbolsUsed, "core_mul")

	require.Len(t, impact.TransitiveDependents, 1)
	assert.Equal(t, filepath.Join(dir, "src", "api.rs"), impact.TransitiveDependents[0].Path)
	assert.Equal(t, 2, impact.TransitiveDependents[0].Depth)

	// Depth 1 cuts the transitive tail.
	depth := 1
	shallow, err := ts.GetImpact("src/core.rs", &depth)
	require.NoError(t, err)
	assert.Len(t, shallow.DirectDependents, 1)
	assert.Empty(t, shallow.TransitiveDependents)
}

func TestGetImpact_UnindexedFileIsEmpty(t *testing.T) {
	t.Parallel()
	_, ts := indexWorkspace(t, map[string]string{"src/lib.rs": "fn a() {}"})
	impact, err := ts.GetImpact("src/phantom.rs", nil)
	require.NoError(t, err)
	assert.Empty(t, impact.DirectDependents)
	assert.Empty(t, impact.TransitiveDependents)
}

func TestGetSymbolImpact_TransitiveCallers(t *testing.T) {
	t.Parallel()
	_, ts := indexWorkspace(t, map[string]string{
		"src/lib.rs": "mod a;\nmod b;\nmod c;",
		"src/a.rs":   "use crate::b::b_fn;\npub fn a_fn() { b_fn(); }",
		"src/b.rs":   "use crate::c::c_fn;\npub fn b_fn() { c_fn(); }",
		"src/c.rs":   "pub fn c_fn() {}",
	})

	deps, err := ts.GetSymbolImpact("c_fn", nil)
	require.NoError(t, err)
	require.Len(t, deps, 2)
	byName := map[string]int{}
	for _, d := range deps {
		byName[d.Symbol.Name] = d.Depth
	}
	assert.Equal(t, 1, byName["b_fn"])
	assert.Equal(t, 2, byName["a_fn"])
}

func TestReachability_ForwardBackwardAndMonotonicDepth(t *testing.T) {
	t.Parallel()
	_, ts := indexWorkspace(t, map[string]string{
		"src/lib.rs": "mod a;\nmod b;\nmod c;",
		"src/a.rs":   "use crate::b::b_fn;\npub fn a_fn() { b_fn(); }",
		"src/b.rs":   "use crate::c::c_fn;\npub fn b_fn() { c_fn(); }",
		"src/c.rs":   "pub fn c_fn() {}",
	})

	forward, err := ts.GetForwardReachable("a_fn", nil)
	require.NoError(t, err)
	require.Len(t, forward.Reachable, 2)
	assert.Equal(t, Forward, forward.Direction)

	backward, err := ts.GetBackwardReachable("c_fn", nil)
	require.NoError(t, err)
	require.Len(t, backward.Reachable, 2)

	// get_forward_reachable(k) includes everything from k-1.
	for k := 1; k <= 3; k++ {
		kCopy := k
		wide, err := ts.GetForwardReachable("a_fn", &kCopy)
		require.NoError(t, err)
		if k > 1 {
			narrow := k - 1
			prev, err := ts.GetForwardReachable("a_fn", &narrow)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, len(wide.Reachable), len(prev.Reachable))
		}
	}

	_, err = ts.GetForwardReachable("missing_symbol", nil)
	require.Error(t, err)
}

func TestGetAffectedTests_Transitive(t *testing.T) {
	t.Parallel()
	_, ts := indexWorkspace(t, map[string]string{
		"src/lib.rs":  "mod core;\nmod helpers;\nmod test_helpers;",
		"src/core.rs": "pub fn core_add(a: u32, b: u32) -> u32 { a + b }",
		"src/helpers.rs": `use crate::core::core_add;
pub fn helper_sum() -> u32 { core_add(1, 2) }`,
		"src/test_helpers.rs": `use crate::helpers::helper_sum;

#[test]
fn sum_is_three() { assert_eq!(helper_sum(), 3); }

#[test]
fn sum_is_positive() { assert!(helper_sum() > 0); }
`,
	})

	affected, err := ts.GetAffectedTests([]string{"src/core.rs"})
	require.NoError(t, err)
	require.Len(t, affected, 2)
	names := []string{affected[0].Name, affected[1].Name}
	assert.ElementsMatch(t, []string{"sum_is_three", "sum_is_positive"}, names)

	// A leaf with no dependents affects only its own tests.
	none, err := ts.GetAffectedTests([]string{"src/test_helpers.rs"})
	require.NoError(t, err)
	assert.Len(t, none, 2, "the changed file's own tests always count")

	empty, err := ts.GetAffectedTests(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGetTestSymbols(t *testing.T) {
	t.Parallel()
	_, ts := indexWorkspace(t, map[string]string{
		"src/lib.rs": `
#[test]
fn a_test() {}

fn not_a_test() {}
`,
	})
	tests, err := ts.GetTestSymbols()
	require.NoError(t, err)
	require.Len(t, tests, 1)
	assert.Equal(t, "a_test", tests[0].Name)
	assert.True(t, tests[0].IsTest)
}

func TestPanicPoints_ProductionAndTestSplit(t *testing.T) {
	t.Parallel()
	_, ts := indexWorkspace(t, map[string]string{
		"src/lib.rs": `fn fetch() -> Option<u32> { None }

fn production_path() {
    let v = fetch();
    v.unwrap();
}

#[test]
fn test_path() {
    fetch().unwrap();
}
`,
	})

	prod, test, err := ts.CountPanicPoints()
	require.NoError(t, err)
	assert.Equal(t, 1, prod)
	assert.Equal(t, 1, test)

	points, err := ts.GetPanicPoints(false, "")
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "production_path", points[0].ContainingSymbol)
	assert.Equal(t, "unwrap", points[0].Kind)
	assert.False(t, points[0].IsTest)

	all, err := ts.GetPanicPoints(true, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStaleness_FreshModifiedAddedDeleted(t *testing.T) {
	t.Parallel()
	dir, ts := indexWorkspace(t, map[string]string{
		"src/lib.rs":    "fn hello() {}",
		"src/helper.rs": "fn help() {}",
	})

	report, err := ts.GetStaleFiles()
	require.NoError(t, err)
	assert.False(t, report.IsStale(), "freshly indexed workspace is not stale")

	needs, err := ts.NeedsUpdate()
	require.NoError(t, err)
	assert.False(t, needs)

	// Modified: bump the mtime only.
	libPath := filepath.Join(dir, "src", "lib.rs")
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(libPath, future, future))

	report, err = ts.GetStaleFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{libPath}, report.Modified)
	assert.Empty(t, report.Added)
	assert.Empty(t, report.Deleted)

	needs, err = ts.NeedsUpdate()
	require.NoError(t, err)
	assert.True(t, needs)

	// Re-index, then add and delete.
	_, err = ts.Index()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "new.rs"), []byte("fn new_fn() {}"), 0o644))
	require.NoError(t, os.Remove(filepath.Join(dir, "src", "helper.rs")))

	report, err = ts.GetStaleFiles()
	require.NoError(t, err)
	assert.Empty(t, report.Modified)
	assert.Equal(t, []string{filepath.Join(dir, "src", "new.rs")}, report.Added)
	assert.Equal(t, []string{filepath.Join(dir, "src", "helper.rs")}, report.Deleted)
}

func TestSearchSymbols_KindFilterAndLimit(t *testing.T) {
	t.Parallel()
	_, ts := indexWorkspace(t, map[string]string{
		"src/lib.rs": `
pub struct AuthService;

impl AuthService {
    pub fn authenticate(&self) {}
}

pub fn auth_check() {}
`,
	})

	all, err := ts.SearchSymbols("auth")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	kind := KindMethod
	methods, err := ts.SearchSymbolsFiltered("auth", &kind, 10)
	require.NoError(t, err)
	require.Len(t, methods, 1)
	assert.Equal(t, "AuthService::authenticate", methods[0].QualifiedName)

	limited, err := ts.SearchSymbolsFiltered("auth", nil, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	missing, err := ts.SearchSymbols("zzz_nothing")
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestListSymbols_DocumentOrder(t *testing.T) {
	t.Parallel()
	_, ts := indexWorkspace(t, map[string]string{
		"src/lib.rs": "fn first() {}\nfn second() {}\nfn third() {}",
	})

	syms, err := ts.ListSymbols("src/lib.rs")
	require.NoError(t, err)
	require.Len(t, syms, 3)
	assert.Equal(t, "first", syms[0].Name)
	assert.Equal(t, "second", syms[1].Name)
	assert.Equal(t, "third", syms[2].Name)

	none, err := ts.ListSymbols("src/ghost.rs")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestGetReferencesAndDependencies(t *testing.T) {
	t.Parallel()
	dir, ts := indexWorkspace(t, map[string]string{
		"src/lib.rs": "mod a;\nmod b;",
		"src/a.rs":   "pub fn target() {}",
		"src/b.rs":   "use crate::a::target;\nfn driver() { target(); target(); }",
	})

	refs, err := ts.GetReferences("target")
	require.NoError(t, err)
	// Two calls plus the use-statement reference.
	assert.Len(t, refs, 3)
	for _, ref := range refs {
		assert.Equal(t, filepath.Join(dir, "src", "b.rs"), ref.Path)
	}

	deps, err := ts.GetDependencies("src/b.rs")
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, filepath.Join(dir, "src", "a.rs"), deps[0].Path)
	assert.Equal(t, 3, deps[0].RefCount)
}

func TestIndex_UnresolvedDependenciesReported(t *testing.T) {
	t.Parallel()
	dir, ts := workspaceWith(t, map[string]string{
		"src/lib.rs": "fn caller() { mystery_fn(); }",
	})
	_ = dir

	stats, err := ts.Index()
	require.NoError(t, err)
	assert.Contains(t, stats.UnresolvedDependencies, "mystery_fn")
}

func TestCSharp_EndToEndCallers(t *testing.T) {
	t.Parallel()
	_, ts := indexWorkspace(t, map[string]string{
		"Services/AuthService.cs": `namespace MyApp.Services
{
    public class AuthService
    {
        public static bool Login(string user) { return true; }
    }
}
`,
		"Program.cs": `using MyApp.Services;

namespace MyApp
{
    class Program
    {
        static void Main()
        {
            AuthService.Login("admin");
        }
    }
}
`,
	})

	callers, err := ts.GetCallers("AuthService.Login")
	require.NoError(t, err)
	require.Len(t, callers, 1)
	assert.Equal(t, "Main", callers[0].Symbol.Name)

	tests, err := ts.GetAffectedTests([]string{"Services/AuthService.cs"})
	require.NoError(t, err)
	assert.Empty(t, tests)
}
