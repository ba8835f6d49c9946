package extractor

import (
	"path"
	"strconv"
	"unicode"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// GoExtractor implements LanguageExtractor for Go.
type GoExtractor struct{}

func (g *GoExtractor) Name() string         { return "go" }
func (g *GoExtractor) Extensions() []string { return []string{".go"} }

func (g *GoExtractor) GetLanguage() *sitter.Language {
	return golang.GetLanguage()
}

func (g *GoExtractor) GetQuery() string {
	return `
		(function_declaration) @func
		(method_declaration) @method
		(type_spec) @type
		(const_spec) @const
		(var_spec) @var
	`
}

var goPredeclared = map[string]bool{
	"append": true, "cap": true, "clear": true, "close": true, "complex": true,
	"copy": true, "delete": true, "imag": true, "len": true, "make": true,
	"max": true, "min": true, "new": true, "panic": true, "print": true,
	"println": true, "real": true, "recover": true,
	"true": true, "false": true, "iota": true, "nil": true, "_": true,
	"any": true, "bool": true, "byte": true, "comparable": true,
	"complex64": true, "complex128": true, "error": true, "float32": true,
	"float64": true, "int": true, "int8": true, "int16": true, "int32": true,
	"int64": true, "rune": true, "string": true, "uint": true, "uint8": true,
	"uint16": true, "uint32": true, "uint64": true, "uintptr": true,
}

var goFuncScopes = []string{"function_declaration", "method_declaration", "func_literal"}

func (g *GoExtractor) Namespace(root *sitter.Node, src []byte) string {
	if clause := firstOfType(root, "package_clause"); clause != nil {
		if id := firstOfType(clause, "package_identifier"); id != nil {
			return id.Content(src)
		}
	}
	return ""
}

func (g *GoExtractor) Imports(root *sitter.Node, src []byte) []Import {
	var out []Import
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == "import_spec" {
			imp := Import{}
			if p := n.ChildByFieldName("path"); p != nil {
				imp.Path, _ = strconv.Unquote(p.Content(src))
			}
			if alias := n.ChildByFieldName("name"); alias != nil {
				imp.Name = alias.Content(src)
			} else {
				imp.Name = path.Base(imp.Path)
			}
			if imp.Name != "_" && imp.Name != "." {
				out = append(out, imp)
			}
			return
		}
		for _, c := range namedChildren(n) {
			walk(c)
		}
	}
	for _, c := range namedChildren(root) {
		if c.Type() == "import_declaration" {
			walk(c)
		}
	}
	return out
}

func (g *GoExtractor) ExtractDeclarations(captureName string, node *sitter.Node, src []byte, fs *FileSymbols) []Declaration {
	// Only package-level declarations are symbols.
	if hasAncestor(node, goFuncScopes...) {
		return nil
	}

	switch captureName {
	case "func":
		return g.declare(node.ChildByFieldName("name"), node, KindFunction, "", src, fs)
	case "method":
		return g.declare(node.ChildByFieldName("name"), node, KindMethod, g.receiverType(node, src), src, fs)
	case "type":
		return g.extractType(node, src, fs)
	case "const":
		return g.extractSpec(node, KindConstant, src, fs)
	case "var":
		return g.extractSpec(node, KindVariable, src, fs)
	}
	return nil
}

func (g *GoExtractor) declare(nameNode, whole *sitter.Node, kind Kind, container string, src []byte, fs *FileSymbols) []Declaration {
	if nameNode == nil {
		return nil
	}
	name := nameNode.Content(src)
	if name == "_" {
		return nil
	}
	return []Declaration{{
		Name:       name,
		Qualified:  qualify(fs.Namespace, container, name),
		Namespace:  fs.Namespace,
		Container:  container,
		Kind:       kind,
		Visibility: goVisibility(name),
		Span:       spanOf(fs.Path, nameNode, whole),
	}}
}

func (g *GoExtractor) receiverType(method *sitter.Node, src []byte) string {
	recv := method.ChildByFieldName("receiver")
	if recv == nil {
		return ""
	}
	if id := firstOfType(recv, "type_identifier"); id != nil {
		return id.Content(src)
	}
	return ""
}

func (g *GoExtractor) extractType(node *sitter.Node, src []byte, fs *FileSymbols) []Declaration {
	nameNode := node.ChildByFieldName("name")
	kind := KindType
	typeNode := node.ChildByFieldName("type")
	if typeNode != nil && typeNode.Type() == "interface_type" {
		kind = KindInterface
	}
	out := g.declare(nameNode, node, kind, "", src, fs)
	if len(out) == 0 || typeNode == nil || typeNode.Type() != "struct_type" {
		return out
	}

	typeName := out[0].Name
	fields := firstOfType(typeNode, "field_declaration_list")
	if fields == nil {
		return out
	}
	for _, field := range namedChildren(fields) {
		if field.Type() != "field_declaration" {
			continue
		}
		for _, c := range namedChildren(field) {
			if c.Type() == "field_identifier" {
				out = append(out, g.declare(c, field, KindField, typeName, src, fs)...)
			}
		}
	}
	return out
}

func (g *GoExtractor) extractSpec(node *sitter.Node, kind Kind, src []byte, fs *FileSymbols) []Declaration {
	var out []Declaration
	for _, c := range namedChildren(node) {
		if c.Type() == "identifier" {
			out = append(out, g.declare(c, node, kind, "", src, fs)...)
		}
	}
	return out
}

func goVisibility(name string) Visibility {
	r, _ := utf8.DecodeRuneInString(name)
	if unicode.IsUpper(r) {
		return Public
	}
	return Internal
}

// ExtractReferences collects identifiers that may name package-level
// declarations. Names bound inside a function are skipped.
func (g *GoExtractor) ExtractReferences(root *sitter.Node, src []byte, fs *FileSymbols) []Reference {
	imports := make(map[string]bool, len(fs.Imports))
	for _, imp := range fs.Imports {
		imports[imp.Name] = true
	}

	var refs []Reference
	add := func(n *sitter.Node, name, qualifier string, member bool) {
		if name == "" || (!member && qualifier == "" && goPredeclared[name]) {
			return
		}
		refs = append(refs, Reference{
			Name:      name,
			Qualifier: qualifier,
			Member:    member,
			Span:      spanOf(fs.Path, n, n),
		})
	}

	var walk func(n *sitter.Node, locals localSet)
	walk = func(n *sitter.Node, locals localSet) {
		switch n.Type() {
		case "import_declaration", "package_clause", "comment":
			return

		case "function_declaration", "method_declaration", "func_literal":
			locals = locals.with(g.boundNames(n, src)...)
			for _, c := range namedChildren(n) {
				// the receiver type is not a use of the type
				if n.Type() == "method_declaration" && sameNode(c, n.ChildByFieldName("receiver")) {
					continue
				}
				walk(c, locals)
			}
			return

		case "identifier":
			name := n.Content(src)
			if locals[name] || g.isDefinition(n) {
				return
			}
			add(n, name, "", false)
			return

		case "type_identifier":
			name := n.Content(src)
			if locals[name] || goPredeclared[name] {
				return
			}
			if p := n.Parent(); p != nil && p.Type() == "type_spec" && sameNode(p.ChildByFieldName("name"), n) {
				return
			}
			add(n, name, "", false)
			return

		case "qualified_type":
			pkg := n.ChildByFieldName("package")
			name := n.ChildByFieldName("name")
			if pkg != nil && name != nil {
				add(name, name.Content(src), pkg.Content(src), false)
			}
			return

		case "selector_expression":
			operand := n.ChildByFieldName("operand")
			field := n.ChildByFieldName("field")
			if operand == nil || field == nil {
				break
			}
			if operand.Type() == "identifier" {
				op := operand.Content(src)
				switch {
				case imports[op] && !locals[op]:
					add(field, field.Content(src), op, false)
				case locals[op]:
					add(field, field.Content(src), "", true)
				default:
					add(operand, op, "", false)
					add(field, field.Content(src), op, true)
				}
				return
			}
			walk(operand, locals)
			add(field, field.Content(src), "", true)
			return

		case "keyed_element":
			// struct literal keys name fields of the literal's type
			children := namedChildren(n)
			for i, c := range children {
				if i == 0 && len(children) > 1 {
					if key := literalKey(c); key != nil {
						add(key, key.Content(src), "", true)
						continue
					}
				}
				walk(c, locals)
			}
			return
		}

		for _, c := range namedChildren(n) {
			walk(c, locals)
		}
	}
	walk(root, localSet{})
	return refs
}

// isDefinition reports whether an identifier node introduces a name
// instead of using one.
func (g *GoExtractor) isDefinition(n *sitter.Node) bool {
	p := n.Parent()
	if p == nil {
		return false
	}
	switch p.Type() {
	case "function_declaration":
		return sameNode(p.ChildByFieldName("name"), n)
	case "parameter_declaration", "variadic_parameter_declaration", "const_spec", "var_spec", "type_parameter_declaration":
		return isNamePosition(p, n)
	case "labeled_statement", "break_statement", "continue_statement", "goto_statement":
		return true
	}
	return false
}

// isNamePosition is true when n appears among the leading identifier
// children of a spec or parameter node, before its type or value.
func isNamePosition(parent, n *sitter.Node) bool {
	for _, c := range namedChildren(parent) {
		if c.Type() != "identifier" {
			return false
		}
		if sameNode(c, n) {
			return true
		}
	}
	return false
}

// boundNames collects every name a function introduces: receiver,
// parameters, results, type parameters and locals of nested blocks.
func (g *GoExtractor) boundNames(fn *sitter.Node, src []byte) []string {
	var names []string
	leading := func(n *sitter.Node) {
		for _, c := range namedChildren(n) {
			if c.Type() != "identifier" {
				return
			}
			names = append(names, c.Content(src))
		}
	}
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "parameter_declaration", "variadic_parameter_declaration", "const_spec", "var_spec", "type_parameter_declaration":
			leading(n)
		case "short_var_declaration", "range_clause", "receive_statement":
			if left := n.ChildByFieldName("left"); left != nil {
				leading(left)
			}
		case "type_switch_statement":
			if alias := n.ChildByFieldName("alias"); alias != nil {
				leading(alias)
			}
		case "type_spec":
			if name := n.ChildByFieldName("name"); name != nil {
				names = append(names, name.Content(src))
			}
		}
		for _, c := range namedChildren(n) {
			walk(c)
		}
	}
	for _, c := range namedChildren(fn) {
		if c.Type() == "identifier" && sameNode(fn.ChildByFieldName("name"), c) {
			continue
		}
		walk(c)
	}
	return names
}

// literalKey returns the field name node of a keyed element key, if the
// key is a bare name.
func literalKey(key *sitter.Node) *sitter.Node {
	switch key.Type() {
	case "field_identifier", "identifier":
		return key
	case "literal_element":
		if key.NamedChildCount() == 1 {
			if c := key.NamedChild(0); c.Type() == "identifier" {
				return c
			}
		}
	}
	return nil
}
