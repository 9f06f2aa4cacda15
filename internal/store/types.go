package store

// Language tags recognized by this build. Databases may contain other tags
// (written by a newer build); those rows are counted by Stats.
type Language string

const (
	LangRust   Language = "rust"
	LangCSharp Language = "csharp"
)

// KnownLanguages is the set of language tags this build recognizes.
var KnownLanguages = map[Language]bool{
	LangRust:   true,
	LangCSharp: true,
}

// SymbolKind classifies a symbol definition.
type SymbolKind string

const (
	KindFunction  SymbolKind = "function"
	KindMethod    SymbolKind = "method"
	KindStruct    SymbolKind = "struct"
	KindClass     SymbolKind = "class"
	KindEnum      SymbolKind = "enum"
	KindTrait     SymbolKind = "trait"
	KindInterface SymbolKind = "interface"
	KindConst     SymbolKind = "const"
	KindStatic    SymbolKind = "static"
	KindModule    SymbolKind = "module"
	KindTypeAlias SymbolKind = "type_alias"
	KindMacro     SymbolKind = "macro"
)

// KnownSymbolKinds is the set of kind tags this build recognizes.
var KnownSymbolKinds = map[SymbolKind]bool{
	KindFunction: true, KindMethod: true, KindStruct: true, KindClass: true,
	KindEnum: true, KindTrait: true, KindInterface: true, KindConst: true,
	KindStatic: true, KindModule: true, KindTypeAlias: true, KindMacro: true,
}

// RefKind classifies a reference site.
type RefKind string

const (
	RefCall        RefKind = "call"
	RefTypeUse     RefKind = "type_use"
	RefImport      RefKind = "import"
	RefFieldAccess RefKind = "field_access"
	RefOther       RefKind = "other"
)

// File is an indexed source file.
type File struct {
	ID          int64
	Path        string
	Language    Language
	MtimeNs     int64
	SizeBytes   int64
	ContentHash *uint64
	IndexedAt   int64
}

// Symbol is a definition extracted from a file. Line and Column are 0-based
// (tree-sitter convention).
type Symbol struct {
	ID             int64
	FileID         int64
	Name           string
	ModulePath     string
	QualifiedName  string
	Kind           SymbolKind
	Line           int
	Column         int
	EndLine        *int
	EndColumn      *int
	Signature      *string
	Visibility     string
	ParentSymbolID *int64
	IsTest         bool
}

// Reference is a usage site. Exactly one of SymbolID (resolved) or
// ReferenceName (unresolved candidate) is set after the resolve pass.
type Reference struct {
	ID            int64
	SymbolID      *int64
	FileID        int64
	Kind          RefKind
	Line          int
	Column        int
	EndLine       *int
	EndColumn     *int
	InSymbolID    *int64
	ReferenceName *string
}

// Import is a use/using statement recorded for resolution.
type Import struct {
	FileID       int64
	SymbolName   string
	SourceModule string
	Alias        *string
}

// FileDep is a denormalized file-to-file dependency aggregate.
type FileDep struct {
	FromFileID int64
	ToFileID   int64
	RefCount   int
}

// CallEdge is a precomputed caller/callee aggregate.
type CallEdge struct {
	CallerSymbolID int64
	CalleeSymbolID int64
	CallCount      int
}
