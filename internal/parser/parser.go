// Package parser coordinates tree-sitter parsing for the supported
// languages. Parsers are stateful and not shareable across goroutines; each
// indexing worker owns its own Coordinator.
package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/rust"

	"github.com/jward/tethys/internal/store"
)

// extToLanguage maps file extensions to language tags.
var extToLanguage = map[string]store.Language{
	".rs": store.LangRust,
	".cs": store.LangCSharp,
}

// LanguageForPath returns the language tag for a file path based on its
// extension. Returns ("", false) if the extension is not recognized.
func LanguageForPath(path string) (store.Language, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	lang, ok := extToLanguage[ext]
	return lang, ok
}

// Coordinator owns one parser instance per language.
type Coordinator struct {
	parsers map[store.Language]*sitter.Parser
}

// NewCoordinator creates a Coordinator with parsers for every supported
// language.
func NewCoordinator() *Coordinator {
	c := &Coordinator{parsers: make(map[store.Language]*sitter.Parser)}

	rustParser := sitter.NewParser()
	rustParser.SetLanguage(rust.GetLanguage())
	c.parsers[store.LangRust] = rustParser

	csParser := sitter.NewParser()
	csParser.SetLanguage(csharp.GetLanguage())
	c.parsers[store.LangCSharp] = csParser

	return c
}

// Parse parses source text into a syntax tree. The caller owns the returned
// tree and must Close it.
func (c *Coordinator) Parse(ctx context.Context, lang store.Language, src []byte) (*sitter.Tree, error) {
	p, ok := c.parsers[lang]
	if !ok {
		return nil, fmt.Errorf("no parser for language %q", lang)
	}
	tree, err := p.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if tree == nil || tree.RootNode() == nil {
		return nil, fmt.Errorf("parse: parser produced no tree")
	}
	return tree, nil
}
