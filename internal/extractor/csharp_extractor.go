package extractor

import (
	"slices"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"
)

// CSharpExtractor implements LanguageExtractor for C#.
type CSharpExtractor struct{}

func (c *CSharpExtractor) Name() string         { return "csharp" }
func (c *CSharpExtractor) Extensions() []string { return []string{".cs"} }

func (c *CSharpExtractor) GetLanguage() *sitter.Language {
	return csharp.GetLanguage()
}

func (c *CSharpExtractor) GetQuery() string {
	return `
		(class_declaration) @type
		(struct_declaration) @type
		(record_declaration) @type
		(enum_declaration) @type
		(interface_declaration) @interface
		(method_declaration) @method
		(property_declaration) @property
		(field_declaration) @field
	`
}

var csTypeDecls = []string{
	"class_declaration", "struct_declaration", "record_declaration",
	"enum_declaration", "interface_declaration",
}

var csScopes = map[string]bool{
	"method_declaration":          true,
	"constructor_declaration":     true,
	"destructor_declaration":      true,
	"operator_declaration":        true,
	"local_function_statement":    true,
	"lambda_expression":           true,
	"anonymous_method_expression": true,
	"property_declaration":        true,
	"accessor_declaration":        true,
	"indexer_declaration":         true,
}

// Namespace returns the file-scoped namespace, if the file has one.
func (c *CSharpExtractor) Namespace(root *sitter.Node, src []byte) string {
	if ns := firstOfType(root, "file_scoped_namespace_declaration"); ns != nil {
		if name := ns.ChildByFieldName("name"); name != nil {
			return name.Content(src)
		}
	}
	return ""
}

func (c *CSharpExtractor) Imports(root *sitter.Node, src []byte) []Import {
	var out []Import
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "using_directive":
			named := namedChildren(n)
			if len(named) == 0 {
				return
			}
			target := named[len(named)-1].Content(src)
			imp := Import{Name: target, Path: target}
			if len(named) > 1 && named[0].Type() == "identifier" {
				// using Alias = Some.Namespace;
				imp.Name = named[0].Content(src)
			}
			out = append(out, imp)
			return
		case "class_declaration", "struct_declaration", "record_declaration", "interface_declaration":
			return
		}
		for _, ch := range namedChildren(n) {
			walk(ch)
		}
	}
	walk(root)
	return out
}

// enclosing computes the namespace and containing type path of a node.
func (c *CSharpExtractor) enclosing(n *sitter.Node, src []byte, fs *FileSymbols) (namespace, container string) {
	var ns, types []string
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.Type() {
		case "namespace_declaration":
			if name := p.ChildByFieldName("name"); name != nil {
				ns = append([]string{name.Content(src)}, ns...)
			}
		case "class_declaration", "struct_declaration", "record_declaration", "interface_declaration", "enum_declaration":
			if name := csName(p); name != nil {
				types = append([]string{name.Content(src)}, types...)
			}
		}
	}
	namespace = qualify(append([]string{fs.Namespace}, ns...)...)
	return namespace, strings.Join(types, ".")
}

func csName(n *sitter.Node) *sitter.Node {
	if name := n.ChildByFieldName("name"); name != nil {
		return name
	}
	for _, ch := range namedChildren(n) {
		if ch.Type() == "identifier" {
			return ch
		}
	}
	return nil
}

func csModifiers(n *sitter.Node, src []byte) []string {
	var mods []string
	for _, ch := range namedChildren(n) {
		if ch.Type() == "modifier" {
			mods = append(mods, ch.Content(src))
		}
	}
	return mods
}

func csVisibility(mods []string, fallback Visibility) Visibility {
	has := func(m string) bool {
		for _, x := range mods {
			if x == m {
				return true
			}
		}
		return false
	}
	switch {
	case has("public"):
		return Public
	case has("protected") && !has("private"):
		return Protected
	case has("internal"):
		return Internal
	case has("private"):
		return Private
	}
	return fallback
}

var visRank = map[Visibility]int{Private: 0, Internal: 1, Protected: 2, Public: 3}

func narrower(a, b Visibility) Visibility {
	if visRank[b] < visRank[a] {
		return b
	}
	return a
}

// accessLimit is the most restrictive visibility among the types enclosing
// n. A member is never visible beyond its container.
func (c *CSharpExtractor) accessLimit(n *sitter.Node, src []byte) Visibility {
	limit := Public
	for p := n.Parent(); p != nil; p = p.Parent() {
		if !slices.Contains(csTypeDecls, p.Type()) {
			continue
		}
		def := Internal
		if hasAncestor(p, csTypeDecls...) {
			def = Private
		}
		limit = narrower(limit, csVisibility(csModifiers(p, src), def))
	}
	return limit
}

func (c *CSharpExtractor) ExtractDeclarations(captureName string, node *sitter.Node, src []byte, fs *FileSymbols) []Declaration {
	if hasAncestor(node, "block") {
		return nil
	}
	namespace, container := c.enclosing(node, src, fs)
	limit := c.accessLimit(node, src)

	// Interface members are public by default; everything else inside a
	// type is private, and top-level types are internal.
	memberDefault := Private
	if p := node.Parent(); p != nil && p.Parent() != nil && p.Parent().Type() == "interface_declaration" {
		memberDefault = Public
	}
	typeDefault := Internal
	if container != "" {
		typeDefault = Private
	}

	decl := func(nameNode *sitter.Node, kind Kind, vis Visibility, ctr string) Declaration {
		name := nameNode.Content(src)
		return Declaration{
			Name:       name,
			Qualified:  qualify(namespace, ctr, name),
			Namespace:  namespace,
			Container:  ctr,
			Kind:       kind,
			Visibility: narrower(vis, limit),
			Span:       spanOf(fs.Path, nameNode, node),
		}
	}

	switch captureName {
	case "type", "interface":
		nameNode := csName(node)
		if nameNode == nil {
			return nil
		}
		kind := KindType
		if captureName == "interface" {
			kind = KindInterface
		}
		mods := csModifiers(node, src)
		vis := csVisibility(mods, typeDefault)
		td := decl(nameNode, kind, vis, container)
		td.Partial = slices.Contains(mods, "partial")
		out := []Declaration{td}

		// record positional parameters become public properties
		if node.Type() == "record_declaration" {
			typeName := qualify(container, nameNode.Content(src))
			for _, params := range namedChildren(node) {
				if params.Type() != "parameter_list" {
					continue
				}
				for _, p := range namedChildren(params) {
					if p.Type() != "parameter" {
						continue
					}
					if pn := csName(p); pn != nil {
						out = append(out, decl(pn, KindProperty, vis, typeName))
					}
				}
			}
		}
		return out

	case "method", "property":
		nameNode := csName(node)
		if nameNode == nil {
			return nil
		}
		kind := KindMethod
		if captureName == "property" {
			kind = KindProperty
		}
		return []Declaration{decl(nameNode, kind, csVisibility(csModifiers(node, src), memberDefault), container)}

	case "field":
		vis := csVisibility(csModifiers(node, src), memberDefault)
		kind := KindField
		for _, m := range csModifiers(node, src) {
			if m == "const" {
				kind = KindConstant
			}
		}
		var out []Declaration
		var walk func(n *sitter.Node)
		walk = func(n *sitter.Node) {
			if n.Type() == "variable_declarator" {
				if nameNode := csName(n); nameNode != nil {
					out = append(out, decl(nameNode, kind, vis, container))
				}
				return
			}
			for _, ch := range namedChildren(n) {
				walk(ch)
			}
		}
		walk(node)
		return out
	}
	return nil
}

// ExtractReferences collects type uses, invocations, member accesses and
// plain identifiers. Locals and parameters are skipped.
func (c *CSharpExtractor) ExtractReferences(root *sitter.Node, src []byte, fs *FileSymbols) []Reference {
	uses := make([]string, 0, len(fs.Imports))
	for _, imp := range fs.Imports {
		uses = append(uses, imp.Path)
	}

	var refs []Reference
	add := func(n *sitter.Node, name, qualifier string, member bool) {
		if name == "" || name == "var" || name == "nameof" {
			return
		}
		namespace, _ := c.enclosing(n, src, fs)
		refs = append(refs, Reference{
			Name:      name,
			Qualifier: qualifier,
			Member:    member,
			Namespace: namespace,
			Uses:      uses,
			Span:      spanOf(fs.Path, n, n),
		})
	}

	var walk func(n *sitter.Node, locals localSet)
	walk = func(n *sitter.Node, locals localSet) {
		if csScopes[n.Type()] {
			locals = locals.with(c.boundNames(n, src)...)
		}

		switch n.Type() {
		case "using_directive", "attribute_list", "comment":
			return

		case "namespace_declaration", "file_scoped_namespace_declaration":
			name := n.ChildByFieldName("name")
			for _, ch := range namedChildren(n) {
				if !sameNode(ch, name) {
					walk(ch, locals)
				}
			}
			return

		case "identifier":
			name := n.Content(src)
			if locals[name] || c.isDefinition(n) {
				return
			}
			add(n, name, "", false)
			return

		case "qualified_name":
			named := namedChildren(n)
			if len(named) == 0 {
				return
			}
			last := named[len(named)-1]
			name := last.Content(src)
			if last.Type() == "generic_name" {
				if id := csName(last); id != nil {
					name = id.Content(src)
				}
				for _, ch := range namedChildren(last) {
					if ch.Type() == "type_argument_list" {
						walk(ch, locals)
					}
				}
			}
			qualifier := strings.TrimSuffix(strings.TrimSuffix(n.Content(src), last.Content(src)), ".")
			add(last, name, qualifier, false)
			return

		case "member_access_expression":
			expr := n.ChildByFieldName("expression")
			nameNode := n.ChildByFieldName("name")
			if expr == nil || nameNode == nil {
				break
			}
			name := nameNode.Content(src)
			if nameNode.Type() == "generic_name" {
				if id := csName(nameNode); id != nil {
					name = id.Content(src)
				}
			}
			switch {
			case expr.Type() == "identifier" && !locals[expr.Content(src)]:
				add(expr, expr.Content(src), "", false)
				add(nameNode, name, expr.Content(src), true)
			default:
				walk(expr, locals)
				add(nameNode, name, "", true)
			}
			return
		}

		for _, ch := range namedChildren(n) {
			walk(ch, locals)
		}
	}
	walk(root, localSet{})
	return refs
}

// isDefinition reports whether the identifier names the declaration it sits in.
func (c *CSharpExtractor) isDefinition(n *sitter.Node) bool {
	p := n.Parent()
	if p == nil {
		return false
	}
	switch p.Type() {
	case "class_declaration", "struct_declaration", "record_declaration", "enum_declaration",
		"interface_declaration", "method_declaration", "property_declaration",
		"constructor_declaration", "destructor_declaration", "delegate_declaration",
		"event_declaration", "local_function_statement", "enum_member_declaration",
		"variable_declarator", "parameter", "type_parameter", "catch_declaration",
		"foreach_statement", "single_variable_designation", "name_colon", "label_statement":
		return sameNode(csName(p), n)
	case "name_equals":
		return true
	}
	return false
}

// boundNames collects parameters and locals declared inside a scope node.
func (c *CSharpExtractor) boundNames(scope *sitter.Node, src []byte) []string {
	var names []string
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "parameter", "variable_declarator", "catch_declaration", "foreach_statement", "single_variable_designation", "type_parameter":
			if name := csName(n); name != nil {
				names = append(names, name.Content(src))
			}
		case "lambda_expression":
			// x => ... has a bare identifier parameter
			for _, ch := range namedChildren(n) {
				if ch.Type() == "identifier" {
					names = append(names, ch.Content(src))
					break
				}
			}
		}
		for _, ch := range namedChildren(n) {
			// nested types open their own member scope
			if !slices.Contains(csTypeDecls, ch.Type()) {
				walk(ch)
			}
		}
	}
	walk(scope)
	return names
}
