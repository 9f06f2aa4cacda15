package lang

import (
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/tethys/internal/store"
	"github.com/jward/tethys/internal/workspace"
)

// rustTestAttrs is the attribute allowlist for test detection. Anything not
// listed here leaves is_test false.
var rustTestAttrs = map[string]bool{
	"test":            true,
	"tokio::test":     true,
	"async_std::test": true,
	"rstest":          true,
}

// RustExtractor extracts symbols, references, and imports from Rust source.
type RustExtractor struct{}

// Language implements Extractor.
func (RustExtractor) Language() store.Language { return store.LangRust }

// Extract implements Extractor.
func (RustExtractor) Extract(tree *sitter.Tree, src []byte, path string, crate *workspace.Crate) (*store.FileFacts, error) {
	w := &rustWalker{
		src:        src,
		facts:      &store.FileFacts{},
		moduleBase: RustModulePath(path, crate),
		typeLocals: make(map[string]int),
	}
	w.walkItems(tree.RootNode(), nil, nil, -1, -1)
	return w.facts, nil
}

// RustModulePath computes a file's module path from its position inside the
// crate's source tree: the path relative to the entry file's directory,
// separators converted to "::", prefixed with "crate". The entry file itself
// maps to "crate"; a mod.rs maps to its directory. Files outside every
// entry tree (or outside every crate) have no module path.
func RustModulePath(path string, crate *workspace.Crate) string {
	if crate == nil {
		return ""
	}
	var entries []string
	if crate.LibPath != "" {
		entries = append(entries, filepath.Join(crate.Root, crate.LibPath))
	}
	for _, bin := range crate.Bins {
		entries = append(entries, filepath.Join(crate.Root, bin.Path))
	}
	for _, entry := range entries {
		if path == entry {
			return "crate"
		}
		entryDir := filepath.Dir(entry)
		rel, err := filepath.Rel(entryDir, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		rel = strings.TrimSuffix(rel, ".rs")
		segments := strings.Split(rel, string(filepath.Separator))
		if len(segments) > 0 && segments[len(segments)-1] == "mod" {
			segments = segments[:len(segments)-1]
		}
		return strings.Join(append([]string{"crate"}, segments...), "::")
	}
	return ""
}

type rustWalker struct {
	src        []byte
	facts      *store.FileFacts
	moduleBase string
	typeLocals map[string]int // type name -> local symbol index, for impl parents
}

// walkItems processes the definitions in a declaration list. qual is the
// enclosing qualification stack (types and inline modules), mods the inline
// module stack, parent the local index of the enclosing definition, and
// containing the local index of the enclosing function for references.
func (w *rustWalker) walkItems(node *sitter.Node, qual, mods []string, parent, containing int) {
	var attrs []string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "attribute_item", "inner_attribute_item":
			attrs = append(attrs, attributeName(child.Content(w.src)))
			continue
		case "line_comment", "block_comment":
			// Comments between an attribute and its item do not break the
			// attachment.
			continue
		case "function_item", "function_signature_item":
			w.addFunction(child, qual, mods, parent, attrs)
		case "struct_item":
			w.addType(child, store.KindStruct, qual, mods, parent)
		case "enum_item":
			w.addType(child, store.KindEnum, qual, mods, parent)
		case "union_item":
			w.addType(child, store.KindStruct, qual, mods, parent)
		case "trait_item":
			w.addTrait(child, qual, mods, parent)
		case "impl_item":
			w.addImpl(child, qual, mods)
		case "mod_item":
			w.addModule(child, qual, mods, parent)
		case "const_item":
			w.addPlain(child, store.KindConst, qual, mods, parent)
		case "static_item":
			w.addPlain(child, store.KindStatic, qual, mods, parent)
		case "type_item":
			w.addPlain(child, store.KindTypeAlias, qual, mods, parent)
		case "macro_definition":
			w.addPlain(child, store.KindMacro, qual, mods, parent)
		case "use_declaration":
			w.addUse(child, containing)
		default:
			// Expression statements at item level (rare, e.g. in macros).
			w.walkExpr(child, containing)
		}
		attrs = nil
	}
}

// addFunction records a function or method definition and walks its body
// for references.
func (w *rustWalker) addFunction(node *sitter.Node, qual, mods []string, parent int, attrs []string) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Content(w.src)

	kind := store.KindFunction
	if len(qual) > 0 {
		kind = store.KindMethod
	}

	isTest := false
	for _, attr := range attrs {
		if rustTestAttrs[attr] {
			isTest = true
			break
		}
	}

	local := w.addSymbol(node, nameNode, name, kind, qual, mods, parent, isTest, w.signature(node))

	if body := node.ChildByFieldName("body"); body != nil {
		w.walkExpr(body, local)
	}
}

// addType records a struct/enum definition, its field type references, and
// registers it as a possible impl parent.
func (w *rustWalker) addType(node *sitter.Node, kind store.SymbolKind, qual, mods []string, parent int) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Content(w.src)
	local := w.addSymbol(node, nameNode, name, kind, qual, mods, parent, false, "")
	w.typeLocals[name] = local

	if body := node.ChildByFieldName("body"); body != nil {
		w.collectTypeUses(body, -1)
	}
}

// addTrait records a trait and its method declarations.
func (w *rustWalker) addTrait(node *sitter.Node, qual, mods []string, parent int) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Content(w.src)
	local := w.addSymbol(node, nameNode, name, store.KindTrait, qual, mods, parent, false, "")
	w.typeLocals[name] = local

	if body := node.ChildByFieldName("body"); body != nil {
		w.walkItems(body, append(qual, name), mods, local, -1)
	}
}

// addImpl walks an impl block, attaching methods to the implemented type
// when that type is defined in the same file.
func (w *rustWalker) addImpl(node *sitter.Node, qual, mods []string) {
	typeNode := node.ChildByFieldName("type")
	if typeNode == nil {
		return
	}
	typeName := baseTypeName(typeNode, w.src)

	parent := -1
	if local, ok := w.typeLocals[typeName]; ok {
		parent = local
	}
	if traitNode := node.ChildByFieldName("trait"); traitNode != nil {
		w.addRef(traitNode, store.RefTypeUse, traitNode.Content(w.src), -1)
	}
	if body := node.ChildByFieldName("body"); body != nil {
		w.walkItems(body, append(qual, typeName), mods, parent, -1)
	}
}

// addModule records an inline module and recurses with the module stacks
// extended.
func (w *rustWalker) addModule(node *sitter.Node, qual, mods []string, parent int) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Content(w.src)
	local := w.addSymbol(node, nameNode, name, store.KindModule, qual, mods, parent, false, "")

	if body := node.ChildByFieldName("body"); body != nil {
		w.walkItems(body, append(qual, name), append(mods, name), local, -1)
	}
}

// addPlain records a const, static, type alias, or macro definition.
func (w *rustWalker) addPlain(node *sitter.Node, kind store.SymbolKind, qual, mods []string, parent int) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	w.addSymbol(node, nameNode, nameNode.Content(w.src), kind, qual, mods, parent, false, "")
}

// addSymbol appends a symbol record and returns its local index.
func (w *rustWalker) addSymbol(node, nameNode *sitter.Node, name string, kind store.SymbolKind, qual, mods []string, parent int, isTest bool, signature string) int {
	line, col := point(nameNode.StartPoint())
	endLine, endCol := endOf(node)

	qualified := name
	if len(qual) > 0 {
		qualified = strings.Join(append(append([]string{}, qual...), name), "::")
	}

	modulePath := w.moduleBase
	if len(mods) > 0 {
		suffix := strings.Join(mods, "::")
		if modulePath == "" {
			modulePath = suffix
		} else {
			modulePath += "::" + suffix
		}
	}

	rec := store.SymbolRecord{
		Symbol: store.Symbol{
			Name:          name,
			ModulePath:    modulePath,
			QualifiedName: qualified,
			Kind:          kind,
			Line:          line,
			Column:        col,
			EndLine:       endLine,
			EndColumn:     endCol,
			Signature:     strPtr(signature),
			Visibility:    rustVisibility(node, w.src),
			IsTest:        isTest,
		},
		ParentLocal: parent,
	}
	w.facts.Symbols = append(w.facts.Symbols, rec)
	return len(w.facts.Symbols) - 1
}

// signature returns the function text up to (not including) its body.
func (w *rustWalker) signature(node *sitter.Node) string {
	body := node.ChildByFieldName("body")
	end := node.EndByte()
	if body != nil {
		end = body.StartByte()
	}
	return strings.TrimSpace(string(w.src[node.StartByte():end]))
}

// walkExpr collects references inside expression trees.
func (w *rustWalker) walkExpr(node *sitter.Node, containing int) {
	switch node.Type() {
	case "call_expression":
		fn := node.ChildByFieldName("function")
		w.addCallRef(fn, containing)
		if args := node.ChildByFieldName("arguments"); args != nil {
			w.walkExpr(args, containing)
		}
		// Chained calls: the receiver of a method call may itself contain
		// calls (a.b().c()).
		if fn != nil && fn.Type() == "field_expression" {
			if value := fn.ChildByFieldName("value"); value != nil {
				w.walkExpr(value, containing)
			}
		}
	case "macro_invocation":
		if args := node.ChildByFieldName("macro"); args != nil && args.Type() == "scoped_identifier" {
			w.addRef(args, store.RefOther, args.Content(w.src), containing)
		}
		// Token trees inside macros are not walked; tree-sitter does not
		// parse them as expressions.
	case "struct_expression":
		if name := node.ChildByFieldName("name"); name != nil {
			w.addRef(name, store.RefTypeUse, name.Content(w.src), containing)
		}
		if body := node.ChildByFieldName("body"); body != nil {
			w.walkExpr(body, containing)
		}
	case "scoped_identifier":
		w.addRef(node, store.RefOther, node.Content(w.src), containing)
	case "field_expression":
		if value := node.ChildByFieldName("value"); value != nil {
			w.walkExpr(value, containing)
		}
		if field := node.ChildByFieldName("field"); field != nil && field.Type() == "field_identifier" {
			w.addRef(field, store.RefFieldAccess, field.Content(w.src), containing)
		}
	case "function_item":
		// Nested function definitions inside a body.
		w.addFunction(node, nil, nil, -1, nil)
	case "use_declaration":
		w.addUse(node, containing)
	default:
		for i := 0; i < int(node.NamedChildCount()); i++ {
			w.walkExpr(node.NamedChild(i), containing)
		}
	}
}

// addCallRef records a call reference for the callee expression of a
// call_expression.
func (w *rustWalker) addCallRef(fn *sitter.Node, containing int) {
	if fn == nil {
		return
	}
	switch fn.Type() {
	case "identifier":
		w.addRef(fn, store.RefCall, fn.Content(w.src), containing)
	case "scoped_identifier":
		w.addRef(fn, store.RefCall, fn.Content(w.src), containing)
	case "field_expression":
		if field := fn.ChildByFieldName("field"); field != nil {
			w.addRef(field, store.RefCall, field.Content(w.src), containing)
		}
	case "generic_function":
		w.addCallRef(fn.ChildByFieldName("function"), containing)
	}
}

// collectTypeUses records type_identifier occurrences below node (used for
// struct field declarations).
func (w *rustWalker) collectTypeUses(node *sitter.Node, containing int) {
	if node.Type() == "type_identifier" {
		w.addRef(node, store.RefTypeUse, node.Content(w.src), containing)
		return
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		w.collectTypeUses(node.NamedChild(i), containing)
	}
}

func (w *rustWalker) addRef(node *sitter.Node, kind store.RefKind, name string, containing int) {
	if name == "" {
		return
	}
	line, col := point(node.StartPoint())
	endLine, endCol := endOf(node)
	w.facts.Refs = append(w.facts.Refs, store.ReferenceRecord{
		Reference: store.Reference{
			Kind:          kind,
			Line:          line,
			Column:        col,
			EndLine:       endLine,
			EndColumn:     endCol,
			ReferenceName: &name,
		},
		ContainingLocal: containing,
	})
}

// addUse decomposes a use declaration into import rows plus import-kind
// references, so that import-only dependencies still surface in file_deps.
func (w *rustWalker) addUse(node *sitter.Node, containing int) {
	arg := node.ChildByFieldName("argument")
	if arg == nil {
		return
	}
	for _, u := range flattenUse(arg, w.src, "") {
		w.facts.Imports = append(w.facts.Imports, store.Import{
			SymbolName:   u.name,
			SourceModule: u.module,
			Alias:        strPtr(u.alias),
		})
		if u.name != "*" {
			full := u.name
			if u.module != "" {
				full = u.module + "::" + u.name
			}
			w.addRef(node, store.RefImport, full, containing)
		}
	}
}

// useEntry is one imported name: `use {module}::{name} as {alias}`.
type useEntry struct {
	name   string
	module string
	alias  string
}

// flattenUse expands a use tree (plain paths, as-clauses, braced lists,
// wildcards) into individual entries. prefix carries the module path
// accumulated from enclosing scoped lists.
func flattenUse(node *sitter.Node, src []byte, prefix string) []useEntry {
	join := func(a, b string) string {
		if a == "" {
			return b
		}
		if b == "" {
			return a
		}
		return a + "::" + b
	}

	switch node.Type() {
	case "identifier":
		return []useEntry{{name: node.Content(src), module: prefix}}
	case "scoped_identifier":
		path := ""
		if p := node.ChildByFieldName("path"); p != nil {
			path = p.Content(src)
		}
		name := ""
		if n := node.ChildByFieldName("name"); n != nil {
			name = n.Content(src)
		}
		return []useEntry{{name: name, module: join(prefix, path)}}
	case "use_as_clause":
		var entries []useEntry
		if p := node.ChildByFieldName("path"); p != nil {
			entries = flattenUse(p, src, prefix)
		}
		if alias := node.ChildByFieldName("alias"); alias != nil {
			for i := range entries {
				entries[i].alias = alias.Content(src)
			}
		}
		return entries
	case "use_wildcard":
		module := prefix
		for i := 0; i < int(node.NamedChildCount()); i++ {
			module = join(module, node.NamedChild(i).Content(src))
		}
		return []useEntry{{name: "*", module: module}}
	case "scoped_use_list":
		path := ""
		if p := node.ChildByFieldName("path"); p != nil {
			path = p.Content(src)
		}
		var entries []useEntry
		if list := node.ChildByFieldName("list"); list != nil {
			for i := 0; i < int(list.NamedChildCount()); i++ {
				entries = append(entries, flattenUse(list.NamedChild(i), src, join(prefix, path))...)
			}
		}
		return entries
	case "use_list":
		var entries []useEntry
		for i := 0; i < int(node.NamedChildCount()); i++ {
			entries = append(entries, flattenUse(node.NamedChild(i), src, prefix)...)
		}
		return entries
	default:
		return nil
	}
}

// attributeName extracts the attribute path from "#[path(args)]" text,
// dropping arguments and whitespace.
func attributeName(text string) string {
	text = strings.TrimPrefix(text, "#[")
	text = strings.TrimPrefix(text, "#![")
	text = strings.TrimSuffix(text, "]")
	if i := strings.IndexAny(text, "(= "); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}

// rustVisibility maps a visibility_modifier child to a tag. Items without
// one are private.
func rustVisibility(node *sitter.Node, src []byte) string {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() != "visibility_modifier" {
			continue
		}
		switch text := child.Content(src); {
		case text == "pub":
			return "public"
		case strings.HasPrefix(text, "pub(crate)"):
			return "crate"
		default:
			return "restricted"
		}
	}
	return "private"
}

// baseTypeName returns the unqualified, ungeneric name of a type node.
func baseTypeName(node *sitter.Node, src []byte) string {
	switch node.Type() {
	case "generic_type":
		if t := node.ChildByFieldName("type"); t != nil {
			return baseTypeName(t, src)
		}
	case "scoped_type_identifier":
		if n := node.ChildByFieldName("name"); n != nil {
			return n.Content(src)
		}
	case "reference_type", "pointer_type":
		for i := 0; i < int(node.NamedChildCount()); i++ {
			if name := baseTypeName(node.NamedChild(i), src); name != "" {
				return name
			}
		}
	case "type_identifier":
		return node.Content(src)
	}
	return node.Content(src)
}
