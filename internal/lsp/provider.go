// Package lsp is a thin JSON-RPC transport for talking to language servers
// over stdio. It exists to resolve the references static extraction cannot:
// trait and virtual dispatch, methods on inferred types, generics.
package lsp

import "github.com/jward/tethys/internal/store"

// Provider configures which language server to spawn and how.
type Provider struct {
	// Name is the tag used to select the provider (e.g. "rust-analyzer").
	Name string
	// Command is the executable to spawn.
	Command string
	// Args are extra command-line arguments.
	Args []string
	// InitializeOptions is passed as initializationOptions in the
	// initialize request. Nil for none.
	InitializeOptions any
	// InstallHint is shown when the executable is missing.
	InstallHint string
	// LanguageID is the textDocument/didOpen language identifier.
	LanguageID string
	// Language is the index language this server understands.
	Language store.Language
}

// RustAnalyzer is the provider for rust-analyzer.
var RustAnalyzer = Provider{
	Name:        "rust-analyzer",
	Command:     "rust-analyzer",
	InstallHint: "Install rust-analyzer: https://rust-analyzer.github.io/manual.html#installation",
	LanguageID:  "rust",
	Language:    store.LangRust,
}

// CSharpLs is the provider for csharp-ls.
var CSharpLs = Provider{
	Name:        "csharp-ls",
	Command:     "csharp-ls",
	InstallHint: "Install csharp-ls: dotnet tool install --global csharp-ls",
	LanguageID:  "csharp",
	Language:    store.LangCSharp,
}

// ProviderByName returns the provider with the given tag, or false.
func ProviderByName(name string) (Provider, bool) {
	switch name {
	case RustAnalyzer.Name:
		return RustAnalyzer, true
	case CSharpLs.Name:
		return CSharpLs, true
	default:
		return Provider{}, false
	}
}

// ProviderForLanguage returns the default provider for a language.
func ProviderForLanguage(lang store.Language) (Provider, bool) {
	switch lang {
	case store.LangRust:
		return RustAnalyzer, true
	case store.LangCSharp:
		return CSharpLs, true
	default:
		return Provider{}, false
	}
}
