// Package lang holds the per-language extraction rules. An extractor is a
// pure function from a parsed syntax tree and file text to FileFacts; it
// never touches the index store.
package lang

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/tethys/internal/store"
	"github.com/jward/tethys/internal/workspace"
)

// PanicMethods are the method names surfaced by the panic-points query.
var PanicMethods = []string{"unwrap", "expect"}

// Extractor turns a syntax tree into symbols, references, and imports.
type Extractor interface {
	Language() store.Language
	// Extract walks the tree and produces FileFacts. path is the file's
	// absolute path; crate is the enclosing Rust crate, nil for files
	// outside every crate (and always nil for non-Rust languages).
	Extract(tree *sitter.Tree, src []byte, path string, crate *workspace.Crate) (*store.FileFacts, error)
}

// ForLanguage returns the extractor for a language tag, or nil.
func ForLanguage(lang store.Language) Extractor {
	switch lang {
	case store.LangRust:
		return RustExtractor{}
	case store.LangCSharp:
		return CSharpExtractor{}
	default:
		return nil
	}
}

// point converts a tree-sitter position to (line, column) ints.
func point(p sitter.Point) (int, int) {
	return int(p.Row), int(p.Column)
}

// endOf fills the optional end position of a node.
func endOf(n *sitter.Node) (*int, *int) {
	line, col := point(n.EndPoint())
	return &line, &col
}

// findChild returns the first named child of the given node type, or nil.
func findChild(n *sitter.Node, nodeType string) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == nodeType {
			return c
		}
	}
	return nil
}

// strPtr returns a pointer to s, or nil when s is empty.
func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
