package tethys

import "github.com/jward/tethys/internal/store"

// Re-export store types so callers work with one package.

type File = store.File
type Symbol = store.Symbol
type Reference = store.Reference
type Import = store.Import
type FileDep = store.FileDep
type CallEdge = store.CallEdge
type Language = store.Language
type SymbolKind = store.SymbolKind
type RefKind = store.RefKind

const (
	LangRust   = store.LangRust
	LangCSharp = store.LangCSharp
)

const (
	KindFunction  = store.KindFunction
	KindMethod    = store.KindMethod
	KindStruct    = store.KindStruct
	KindClass     = store.KindClass
	KindEnum      = store.KindEnum
	KindTrait     = store.KindTrait
	KindInterface = store.KindInterface
	KindConst     = store.KindConst
	KindStatic    = store.KindStatic
	KindModule    = store.KindModule
	KindTypeAlias = store.KindTypeAlias
	KindMacro     = store.KindMacro
)
