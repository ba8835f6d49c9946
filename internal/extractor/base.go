package extractor

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
)

// Frontend turns a source file into declarations and references.
type Frontend interface {
	ParseFile(ctx context.Context, path string) (*FileSymbols, error)
}

// LanguageExtractor defines the interface that each language parser must implement.
type LanguageExtractor interface {
	Name() string
	Extensions() []string
	GetLanguage() *sitter.Language
	// GetQuery captures declaration nodes.
	GetQuery() string
	Namespace(root *sitter.Node, src []byte) string
	Imports(root *sitter.Node, src []byte) []Import
	// ExtractDeclarations handles one query capture.
	ExtractDeclarations(captureName string, node *sitter.Node, src []byte, fs *FileSymbols) []Declaration
	ExtractReferences(root *sitter.Node, src []byte, fs *FileSymbols) []Reference
}

func spanOf(path string, name, whole *sitter.Node) Span {
	start := name.StartPoint()
	end := whole.EndPoint()
	return Span{
		File:      path,
		Line:      int(start.Row) + 1,
		Column:    int(start.Column) + 1,
		EndLine:   int(end.Row) + 1,
		EndColumn: int(end.Column) + 1,
	}
}

func sameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return false
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

// hasAncestor reports whether any ancestor of n has one of the given types.
func hasAncestor(n *sitter.Node, types ...string) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		for _, t := range types {
			if p.Type() == t {
				return true
			}
		}
	}
	return false
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	count := int(n.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, n.NamedChild(i))
	}
	return out
}

// firstOfType does a pre-order search for the first node of type t.
func firstOfType(n *sitter.Node, t string) *sitter.Node {
	if n == nil {
		return nil
	}
	if n.Type() == t {
		return n
	}
	for _, c := range namedChildren(n) {
		if found := firstOfType(c, t); found != nil {
			return found
		}
	}
	return nil
}

// firstError locates the first ERROR or MISSING node of a tree.
func firstError(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		c := n.Child(i)
		if c.HasError() || c.IsMissing() {
			if found := firstError(c); found != nil {
				return found
			}
		}
	}
	return nil
}

type localSet map[string]bool

func (s localSet) with(names ...string) localSet {
	out := make(localSet, len(s)+len(names))
	for k := range s {
		out[k] = true
	}
	for _, n := range names {
		out[n] = true
	}
	return out
}
