package lang

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/tethys/internal/store"
	"github.com/jward/tethys/internal/workspace"
)

// csharpTestAttrs is the attribute allowlist for test detection (NUnit,
// xUnit, MSTest). Anything not listed leaves is_test false.
var csharpTestAttrs = map[string]bool{
	"Test":       true,
	"Fact":       true,
	"Theory":     true,
	"TestMethod": true,
}

// CSharpExtractor extracts symbols, references, and imports from C# source.
type CSharpExtractor struct{}

// Language implements Extractor.
func (CSharpExtractor) Language() store.Language { return store.LangCSharp }

// Extract implements Extractor. The crate argument is ignored: C# module
// paths come from namespace declarations, not from a package manifest.
func (CSharpExtractor) Extract(tree *sitter.Tree, src []byte, path string, _ *workspace.Crate) (*store.FileFacts, error) {
	w := &csharpWalker{src: src, facts: &store.FileFacts{}}
	w.walkDecls(tree.RootNode(), "", nil, -1)
	return w.facts, nil
}

type csharpWalker struct {
	src   []byte
	facts *store.FileFacts
}

// walkDecls processes declarations. namespace is the innermost enclosing
// namespace path, qual the enclosing type stack, parent the local index of
// the enclosing type.
func (w *csharpWalker) walkDecls(node *sitter.Node, namespace string, qual []string, parent int) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "namespace_declaration", "file_scoped_namespace_declaration":
			name := ""
			if n := child.ChildByFieldName("name"); n != nil {
				name = n.Content(w.src)
			}
			inner := name
			if namespace != "" && name != "" {
				inner = namespace + "." + name
			}
			if body := child.ChildByFieldName("body"); body != nil {
				w.walkDecls(body, inner, qual, parent)
			} else {
				// File-scoped namespace: siblings that follow belong to it.
				namespace = inner
			}
		case "class_declaration":
			w.addType(child, store.KindClass, namespace, qual, parent)
		case "interface_declaration":
			w.addType(child, store.KindInterface, namespace, qual, parent)
		case "struct_declaration", "record_declaration":
			w.addType(child, store.KindStruct, namespace, qual, parent)
		case "enum_declaration":
			w.addType(child, store.KindEnum, namespace, qual, parent)
		case "using_directive":
			w.addUsing(child)
		case "global_statement":
			w.walkExpr(child, -1)
		}
	}
}

// addType records a type declaration and walks its members.
func (w *csharpWalker) addType(node *sitter.Node, kind store.SymbolKind, namespace string, qual []string, parent int) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Content(w.src)
	local := w.addSymbol(node, nameNode, name, kind, namespace, qual, parent, false, "")

	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	memberQual := append(append([]string{}, qual...), name)
	for i := 0; i < int(body.NamedChildCount()); i++ {
		member := body.NamedChild(i)
		switch member.Type() {
		case "method_declaration", "constructor_declaration", "local_function_statement":
			w.addMethod(member, namespace, memberQual, local)
		case "field_declaration":
			w.addField(member, namespace, memberQual, local)
		case "property_declaration":
			w.addProperty(member, namespace, memberQual, local)
		case "class_declaration":
			w.addType(member, store.KindClass, namespace, memberQual, local)
		case "struct_declaration", "record_declaration":
			w.addType(member, store.KindStruct, namespace, memberQual, local)
		case "interface_declaration":
			w.addType(member, store.KindInterface, namespace, memberQual, local)
		case "enum_declaration":
			w.addType(member, store.KindEnum, namespace, memberQual, local)
		}
	}
}

// addMethod records a method or constructor and walks its body.
func (w *csharpWalker) addMethod(node *sitter.Node, namespace string, qual []string, parent int) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Content(w.src)

	isTest := false
	for _, attr := range w.attributeNames(node) {
		if csharpTestAttrs[attr] || csharpTestAttrs[strings.TrimSuffix(attr, "Attribute")] {
			isTest = true
			break
		}
	}

	local := w.addSymbol(node, nameNode, name, store.KindMethod, namespace, qual, parent, isTest, w.signature(node))

	if body := node.ChildByFieldName("body"); body != nil {
		w.walkExpr(body, local)
	}
	// Expression-bodied members: int Twice(int n) => n * 2;
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if child := node.NamedChild(i); child.Type() == "arrow_expression_clause" {
			w.walkExpr(child, local)
		}
	}
}

// addField records const fields as const symbols, other fields as statics
// when marked static. Instance fields are not symbols of their own.
func (w *csharpWalker) addField(node *sitter.Node, namespace string, qual []string, parent int) {
	mods := w.modifiers(node)
	var kind store.SymbolKind
	switch {
	case mods["const"]:
		kind = store.KindConst
	case mods["static"]:
		kind = store.KindStatic
	default:
		return
	}
	decl := findChild(node, "variable_declaration")
	if decl == nil {
		return
	}
	for i := 0; i < int(decl.NamedChildCount()); i++ {
		v := decl.NamedChild(i)
		if v.Type() != "variable_declarator" {
			continue
		}
		nameNode := v.ChildByFieldName("name")
		if nameNode == nil {
			// Older grammar revisions expose the identifier as a plain child.
			nameNode = findChild(v, "identifier")
		}
		if nameNode != nil {
			w.addSymbol(node, nameNode, nameNode.Content(w.src), kind, namespace, qual, parent, false, "")
		}
	}
}

// addProperty records a property as a method-kind symbol and walks accessor
// bodies.
func (w *csharpWalker) addProperty(node *sitter.Node, namespace string, qual []string, parent int) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	local := w.addSymbol(node, nameNode, nameNode.Content(w.src), store.KindMethod, namespace, qual, parent, false, "")
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if child := node.NamedChild(i); child.Type() == "accessor_list" || child.Type() == "arrow_expression_clause" {
			w.walkExpr(child, local)
		}
	}
}

func (w *csharpWalker) addSymbol(node, nameNode *sitter.Node, name string, kind store.SymbolKind, namespace string, qual []string, parent int, isTest bool, signature string) int {
	line, col := point(nameNode.StartPoint())
	endLine, endCol := endOf(node)

	qualified := name
	if len(qual) > 0 {
		qualified = strings.Join(append(append([]string{}, qual...), name), ".")
	}

	rec := store.SymbolRecord{
		Symbol: store.Symbol{
			Name:          name,
			ModulePath:    namespace,
			QualifiedName: qualified,
			Kind:          kind,
			Line:          line,
			Column:        col,
			EndLine:       endLine,
			EndColumn:     endCol,
			Signature:     strPtr(signature),
			Visibility:    w.visibility(node),
			IsTest:        isTest,
		},
		ParentLocal: parent,
	}
	w.facts.Symbols = append(w.facts.Symbols, rec)
	return len(w.facts.Symbols) - 1
}

// signature returns the declaration text up to its body or arrow clause.
func (w *csharpWalker) signature(node *sitter.Node) string {
	end := node.EndByte()
	if body := node.ChildByFieldName("body"); body != nil {
		end = body.StartByte()
	} else {
		for i := 0; i < int(node.NamedChildCount()); i++ {
			if child := node.NamedChild(i); child.Type() == "arrow_expression_clause" {
				end = child.StartByte()
				break
			}
		}
	}
	return strings.TrimSpace(string(w.src[node.StartByte():end]))
}

// walkExpr collects references inside statement and expression trees.
func (w *csharpWalker) walkExpr(node *sitter.Node, containing int) {
	switch node.Type() {
	case "invocation_expression":
		fn := node.ChildByFieldName("function")
		w.addCallRef(fn, containing)
		if args := node.ChildByFieldName("arguments"); args != nil {
			w.walkExpr(args, containing)
		}
		if fn != nil && fn.Type() == "member_access_expression" {
			if expr := fn.ChildByFieldName("expression"); expr != nil {
				w.walkExpr(expr, containing)
			}
		}
	case "object_creation_expression":
		if t := node.ChildByFieldName("type"); t != nil {
			w.addRef(t, store.RefTypeUse, t.Content(w.src), containing)
		}
		if args := node.ChildByFieldName("arguments"); args != nil {
			w.walkExpr(args, containing)
		}
	case "member_access_expression":
		if expr := node.ChildByFieldName("expression"); expr != nil {
			w.walkExpr(expr, containing)
		}
		if name := node.ChildByFieldName("name"); name != nil {
			w.addRef(name, store.RefFieldAccess, name.Content(w.src), containing)
		}
	default:
		for i := 0; i < int(node.NamedChildCount()); i++ {
			w.walkExpr(node.NamedChild(i), containing)
		}
	}
}

func (w *csharpWalker) addCallRef(fn *sitter.Node, containing int) {
	if fn == nil {
		return
	}
	switch fn.Type() {
	case "identifier":
		w.addRef(fn, store.RefCall, fn.Content(w.src), containing)
	case "member_access_expression":
		if name := fn.ChildByFieldName("name"); name != nil {
			w.addRef(name, store.RefCall, name.Content(w.src), containing)
		}
	case "generic_name":
		for i := 0; i < int(fn.NamedChildCount()); i++ {
			if child := fn.NamedChild(i); child.Type() == "identifier" {
				w.addRef(child, store.RefCall, child.Content(w.src), containing)
				break
			}
		}
	}
}

func (w *csharpWalker) addRef(node *sitter.Node, kind store.RefKind, name string, containing int) {
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

// addUsing records a using directive. Namespace usings import everything
// under the namespace and are modeled as wildcard imports; alias usings
// (`using Alias = Ns.Type;`) record the alias; `using static` exposes a
// type's members bare, also a wildcard on the type's path.
func (w *csharpWalker) addUsing(node *sitter.Node) {
	name := ""
	if n := node.ChildByFieldName("name"); n != nil {
		name = n.Content(w.src)
	}
	if name == "" {
		// Older grammar revisions expose the path as the last named child.
		for i := int(node.NamedChildCount()) - 1; i >= 0; i-- {
			child := node.NamedChild(i)
			if t := child.Type(); t == "qualified_name" || t == "identifier" {
				name = child.Content(w.src)
				break
			}
		}
	}
	if name == "" {
		return
	}

	var alias string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if child := node.NamedChild(i); child.Type() == "name_equals" {
			alias = strings.TrimSuffix(strings.TrimSpace(child.Content(w.src)), "=")
			alias = strings.TrimSpace(alias)
		}
	}
	// Newer grammar revisions put the alias in the name field and the
	// target after "=".
	if alias == "" {
		for i := 0; i < int(node.ChildCount()); i++ {
			if node.Child(i).Type() == "=" {
				alias = name
				name = node.NamedChild(int(node.NamedChildCount()) - 1).Content(w.src)
				break
			}
		}
	}

	if alias != "" {
		module, symbol := splitQualified(name)
		w.facts.Imports = append(w.facts.Imports, store.Import{
			SymbolName:   symbol,
			SourceModule: module,
			Alias:        strPtr(alias),
		})
		w.addRef(node, store.RefImport, name, -1)
		return
	}

	// Plain and static usings: everything under the path is importable.
	w.facts.Imports = append(w.facts.Imports, store.Import{
		SymbolName:   "*",
		SourceModule: name,
	})
}

// attributeNames collects attribute identifiers from a declaration's
// attribute lists.
func (w *csharpWalker) attributeNames(node *sitter.Node) []string {
	var names []string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		list := node.NamedChild(i)
		if list.Type() != "attribute_list" {
			continue
		}
		for j := 0; j < int(list.NamedChildCount()); j++ {
			attr := list.NamedChild(j)
			if attr.Type() != "attribute" {
				continue
			}
			if name := attr.ChildByFieldName("name"); name != nil {
				names = append(names, name.Content(w.src))
			}
		}
	}
	return names
}

// modifiers returns the set of modifier keywords on a declaration.
func (w *csharpWalker) modifiers(node *sitter.Node) map[string]bool {
	mods := make(map[string]bool)
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if child := node.NamedChild(i); child.Type() == "modifier" {
			mods[child.Content(w.src)] = true
		}
	}
	return mods
}

// visibility maps C# access modifiers to a tag. Members without one default
// to private.
func (w *csharpWalker) visibility(node *sitter.Node) string {
	mods := w.modifiers(node)
	switch {
	case mods["public"]:
		return "public"
	case mods["protected"]:
		return "protected"
	case mods["internal"]:
		return "internal"
	default:
		return "private"
	}
}

// splitQualified splits "A.B.C" into ("A.B", "C").
func splitQualified(name string) (string, string) {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}
