package store

import (
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

func ptr[T any](v T) *T { return &v }

// insertTestFile is a helper that upserts a file and returns it with ID set.
func insertTestFile(t *testing.T, s *Store, path string, lang Language) *File {
	t.Helper()
	hash := uint64(0xabc123)
	f := &File{
		Path:      path,
		Language:  lang,
		MtimeNs:   time.Now().UnixNano(),
		SizeBytes: 42,
		ContentHash: &hash,
		IndexedAt: time.Now().Unix(),
	}
	id, err := s.UpsertFile(f)
	require.NoError(t, err)
	require.Positive(t, id)
	return f
}

// commitFacts is a helper that commits facts for a fresh file.
func commitFacts(t *testing.T, s *Store, path string, lang Language, facts *FileFacts) *File {
	t.Helper()
	hash := uint64(1)
	f := &File{Path: path, Language: lang, MtimeNs: 1, SizeBytes: 1, ContentHash: &hash, IndexedAt: 1}
	require.NoError(t, s.ReplaceFileFacts(f, facts))
	return f
}

func symbolRec(name, qualified, module string, kind SymbolKind, line int, isTest bool, parentLocal int) SymbolRecord {
	return SymbolRecord{
		Symbol: Symbol{
			Name:          name,
			ModulePath:    module,
			QualifiedName: qualified,
			Kind:          kind,
			Line:          line,
			Column:        0,
			EndLine:       ptr(line + 5),
			EndColumn:     ptr(0),
			Visibility:    "public",
			IsTest:        isTest,
		},
		ParentLocal: parentLocal,
	}
}

func callRec(name string, line, containingLocal int) ReferenceRecord {
	return ReferenceRecord{
		Reference: Reference{
			Kind:          RefCall,
			Line:          line,
			Column:        4,
			ReferenceName: ptr(name),
		},
		ContainingLocal: containingLocal,
	}
}

// =============================================================================
// Schema & lifecycle
// =============================================================================

func TestMigrate_AllTablesExist(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, table := range []string{"meta", "files", "symbols", "refs", "imports", "file_deps", "call_edges"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
}

func TestMigrate_WALMode(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	var mode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestMigrate_WritesSchemaVersion(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	v, err := s.GetMeta("schema_version")
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(SchemaVersion), v)
}

func TestMigrate_RejectsNewerSchema(t *testing.T) {
	t.Parallel()
	dbPath := filepath.Join(t.TempDir(), "newer.db")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	require.NoError(t, s.SetMeta("schema_version", strconv.Itoa(SchemaVersion+1)))
	require.NoError(t, s.Close())

	s2, err := NewStore(dbPath)
	require.NoError(t, err)
	defer s2.Close()
	err = s2.Migrate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaNewer)
}

func TestReset_ClearsAllRows(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	commitFacts(t, s, "/w/a.rs", LangRust, &FileFacts{
		Symbols: []SymbolRecord{symbolRec("f", "f", "crate", KindFunction, 0, false, -1)},
		Refs:    []ReferenceRecord{callRec("g", 1, 0)},
		Imports: []Import{{SymbolName: "g", SourceModule: "crate::b"}},
	})

	require.NoError(t, s.Reset())

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Zero(t, stats.FileCount)
	assert.Zero(t, stats.SymbolCount)
	assert.Zero(t, stats.ReferenceCount)

	// Schema version survives a reset.
	v, err := s.GetMeta("schema_version")
	require.NoError(t, err)
	assert.NotEmpty(t, v)
}

// =============================================================================
// Files
// =============================================================================

func TestUpsertFile_IdempotentByPath(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	f1 := insertTestFile(t, s, "/w/src/lib.rs", LangRust)
	hash := uint64(77)
	f2 := &File{Path: "/w/src/lib.rs", Language: LangRust, MtimeNs: 99, SizeBytes: 7, ContentHash: &hash, IndexedAt: 2}
	id2, err := s.UpsertFile(f2)
	require.NoError(t, err)
	assert.Equal(t, f1.ID, id2, "same path keeps the same id")

	got, err := s.FileByPath("/w/src/lib.rs")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.EqualValues(t, 99, got.MtimeNs)
	require.NotNil(t, got.ContentHash)
	assert.EqualValues(t, 77, *got.ContentHash)
}

func TestFileByPath_MissingReturnsNil(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f, err := s.FileByPath("/nope.rs")
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestDeleteFile_CascadesToAllRows(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	f := commitFacts(t, s, "/w/a.rs", LangRust, &FileFacts{
		Symbols: []SymbolRecord{
			symbolRec("Helper", "Helper", "crate", KindStruct, 0, false, -1),
			symbolRec("new", "Helper::new", "crate", KindMethod, 2, false, 0),
		},
		Refs:    []ReferenceRecord{callRec("other", 3, 1)},
		Imports: []Import{{SymbolName: "other", SourceModule: "crate::b"}},
	})

	require.NoError(t, s.DeleteFile(f.ID))

	syms, err := s.SymbolsByFile(f.ID)
	require.NoError(t, err)
	assert.Empty(t, syms)

	refs, err := s.ReferencesByFile(f.ID)
	require.NoError(t, err)
	assert.Empty(t, refs)

	imports, err := s.ImportsByFile(f.ID)
	require.NoError(t, err)
	assert.Empty(t, imports)
}

// =============================================================================
// Commit
// =============================================================================

func TestReplaceFileFacts_MapsParentAndContainingLinks(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	f := commitFacts(t, s, "/w/a.rs", LangRust, &FileFacts{
		Symbols: []SymbolRecord{
			symbolRec("Helper", "Helper", "crate", KindStruct, 0, false, -1),
			symbolRec("run", "Helper::run", "crate", KindMethod, 2, false, 0),
		},
		Refs: []ReferenceRecord{callRec("target", 3, 1)},
	})

	syms, err := s.SymbolsByFile(f.ID)
	require.NoError(t, err)
	require.Len(t, syms, 2)
	helper, run := syms[0], syms[1]
	assert.Equal(t, "Helper", helper.Name)
	require.NotNil(t, run.ParentSymbolID)
	assert.Equal(t, helper.ID, *run.ParentSymbolID)

	refs, err := s.ReferencesByFile(f.ID)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	require.NotNil(t, refs[0].InSymbolID)
	assert.Equal(t, run.ID, *refs[0].InSymbolID)
	assert.Nil(t, refs[0].SymbolID)
	require.NotNil(t, refs[0].ReferenceName)
	assert.Equal(t, "target", *refs[0].ReferenceName)
}

func TestReplaceFileFacts_ReparseReplacesOldRows(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	f := commitFacts(t, s, "/w/a.rs", LangRust, &FileFacts{
		Symbols: []SymbolRecord{symbolRec("old_fn", "old_fn", "crate", KindFunction, 0, false, -1)},
	})
	firstID := f.ID

	f2 := commitFacts(t, s, "/w/a.rs", LangRust, &FileFacts{
		Symbols: []SymbolRecord{symbolRec("new_fn", "new_fn", "crate", KindFunction, 0, false, -1)},
	})
	assert.Equal(t, firstID, f2.ID, "reparse keeps the file id")

	syms, err := s.SymbolsByFile(firstID)
	require.NoError(t, err)
	require.Len(t, syms, 1)
	assert.Equal(t, "new_fn", syms[0].Name)
}

func TestReplaceFileFacts_DuplicateImportsCollapse(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	f := commitFacts(t, s, "/w/a.rs", LangRust, &FileFacts{
		Imports: []Import{
			{SymbolName: "x", SourceModule: "crate::m"},
			{SymbolName: "x", SourceModule: "crate::m"},
		},
	})
	imports, err := s.ImportsByFile(f.ID)
	require.NoError(t, err)
	assert.Len(t, imports, 1)
}

// =============================================================================
// Symbol queries
// =============================================================================

func TestSearchSymbols_SubstringKindAndLimit(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	commitFacts(t, s, "/w/a.rs", LangRust, &FileFacts{
		Symbols: []SymbolRecord{
			symbolRec("auth_check", "auth_check", "crate", KindFunction, 0, false, -1),
			symbolRec("AuthService", "AuthService", "crate", KindStruct, 5, false, -1),
			symbolRec("authenticate", "AuthService::authenticate", "crate", KindMethod, 10, false, -1),
		},
	})

	all, err := s.SearchSymbols("auth", nil, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	kind := KindMethod
	methods, err := s.SearchSymbols("auth", &kind, 10)
	require.NoError(t, err)
	require.Len(t, methods, 1)
	assert.Equal(t, "authenticate", methods[0].Name)

	limited, err := s.SearchSymbols("auth", nil, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSearchSymbols_EscapesLikeWildcards(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	commitFacts(t, s, "/w/a.rs", LangRust, &FileFacts{
		Symbols: []SymbolRecord{symbolRec("plain", "plain", "crate", KindFunction, 0, false, -1)},
	})
	got, err := s.SearchSymbols("%", nil, 10)
	require.NoError(t, err)
	assert.Empty(t, got, "a literal %% should not match everything")
}

func TestLookupSymbol_QualifiedThenShortName(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	commitFacts(t, s, "/w/a.rs", LangRust, &FileFacts{
		Symbols: []SymbolRecord{
			symbolRec("Helper", "Helper", "crate", KindStruct, 0, false, -1),
			symbolRec("new", "Helper::new", "crate", KindMethod, 2, false, 0),
		},
	})

	byQualified, err := s.LookupSymbol("Helper::new")
	require.NoError(t, err)
	require.Len(t, byQualified, 1)
	assert.Equal(t, "new", byQualified[0].Name)

	byShort, err := s.LookupSymbol("new")
	require.NoError(t, err)
	require.Len(t, byShort, 1)
	assert.Equal(t, "Helper::new", byShort[0].QualifiedName)
}

func TestSymbolAt_ReturnsNarrowestContainingSymbol(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	outer := symbolRec("Outer", "Outer", "crate", KindStruct, 0, false, -1)
	outer.EndLine = ptr(20)
	inner := symbolRec("inner", "Outer::inner", "crate", KindMethod, 5, false, 0)
	inner.EndLine = ptr(10)
	f := commitFacts(t, s, "/w/a.rs", LangRust, &FileFacts{
		Symbols: []SymbolRecord{outer, inner},
	})

	sym, err := s.SymbolAt(f.ID, 7, 0)
	require.NoError(t, err)
	require.NotNil(t, sym)
	assert.Equal(t, "inner", sym.Name)

	sym, err = s.SymbolAt(f.ID, 15, 0)
	require.NoError(t, err)
	require.NotNil(t, sym)
	assert.Equal(t, "Outer", sym.Name)

	sym, err = s.SymbolAt(f.ID, 99, 0)
	require.NoError(t, err)
	assert.Nil(t, sym)
}

// =============================================================================
// Stats
// =============================================================================

func TestStats_CountsAndUnknownTags(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	commitFacts(t, s, "/w/a.rs", LangRust, &FileFacts{
		Symbols: []SymbolRecord{
			symbolRec("f", "f", "crate", KindFunction, 0, false, -1),
			symbolRec("t", "t", "crate", KindFunction, 5, true, -1),
		},
		Refs: []ReferenceRecord{callRec("g", 1, 0)},
	})

	// Simulate rows written by a newer build.
	_, err := s.db.Exec(
		`INSERT INTO files (path, language, mtime_ns, size_bytes, indexed_at) VALUES ('/w/x.zig', 'zig', 1, 1, 1)`)
	require.NoError(t, err)
	_, err = s.db.Exec(
		`INSERT INTO symbols (file_id, name, module_path, qualified_name, kind, line, column, visibility)
		 SELECT id, 'weird', '', 'weird', 'hologram', 0, 0, 'public' FROM files WHERE path = '/w/x.zig'`)
	require.NoError(t, err)

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FileCount)
	assert.Equal(t, 1, stats.FilesByLanguage[LangRust])
	assert.Equal(t, 1, stats.SkippedUnknownLanguages)
	assert.Equal(t, 3, stats.SymbolCount)
	assert.Equal(t, 1, stats.SkippedUnknownKinds)
	assert.Equal(t, 1, stats.ReferenceCount)
	assert.Equal(t, 1, stats.TestCount)
}
