package extractor

import "fmt"

// Kind classifies a declaration.
type Kind string

const (
	KindType      Kind = "type"
	KindInterface Kind = "interface"
	KindFunction  Kind = "function"
	KindMethod    Kind = "method"
	KindField     Kind = "field"
	KindProperty  Kind = "property"
	KindVariable  Kind = "variable"
	KindConstant  Kind = "constant"
)

// IsType reports whether k declares a type.
func (k Kind) IsType() bool {
	return k == KindType || k == KindInterface
}

// IsMember reports whether k lives inside a type.
func (k Kind) IsMember() bool {
	return k == KindMethod || k == KindField || k == KindProperty
}

// Visibility is the access level of a declaration.
type Visibility string

const (
	Public    Visibility = "public"
	Protected Visibility = "protected"
	Internal  Visibility = "internal"
	Private   Visibility = "private"
)

// Exported reports whether other projects may see the declaration.
func (v Visibility) Exported() bool {
	return v == Public || v == Protected
}

// Span is a 1-based source range.
type Span struct {
	File      string `json:"file" msgpack:"file"`
	Line      int    `json:"line" msgpack:"line"`
	Column    int    `json:"column" msgpack:"column"`
	EndLine   int    `json:"end_line" msgpack:"end_line"`
	EndColumn int    `json:"end_column" msgpack:"end_column"`
}

func (s Span) String() string {
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Column)
}

// Before orders spans by file, then position.
func (s Span) Before(o Span) bool {
	if s.File != o.File {
		return s.File < o.File
	}
	if s.Line != o.Line {
		return s.Line < o.Line
	}
	return s.Column < o.Column
}

// Declaration is a named entity declared in a source file.
type Declaration struct {
	Name       string     `json:"name" msgpack:"name"`
	Qualified  string     `json:"qualified" msgpack:"qualified"`
	Namespace  string     `json:"namespace,omitempty" msgpack:"namespace"`
	Container  string     `json:"container,omitempty" msgpack:"container"`
	Kind       Kind       `json:"kind" msgpack:"kind"`
	Visibility Visibility `json:"visibility" msgpack:"visibility"`
	Language   string     `json:"language" msgpack:"language"`
	Span       Span       `json:"span" msgpack:"span"`
	// Partial marks a C# type declared with the partial modifier.
	Partial bool `json:"partial,omitempty" msgpack:"partial"`
}

// Reference is a use of a name that still has to be resolved.
type Reference struct {
	Name string `json:"name" msgpack:"name"`
	// Qualifier is the package, namespace or type the name was selected from.
	Qualifier string `json:"qualifier,omitempty" msgpack:"qualifier"`
	// Member is set when the name was selected from a value.
	Member bool `json:"member,omitempty" msgpack:"member"`
	// Imported is set when Qualifier names an import of the file.
	Imported  bool     `json:"imported,omitempty" msgpack:"imported"`
	Namespace string   `json:"namespace,omitempty" msgpack:"namespace"`
	Uses      []string `json:"uses,omitempty" msgpack:"uses"`
	Language  string   `json:"language" msgpack:"language"`
	Span      Span     `json:"span" msgpack:"span"`
}

// Import is one import or using directive.
type Import struct {
	Name string `json:"name" msgpack:"name"`
	Path string `json:"path" msgpack:"path"`
}

// FileSymbols is what the front end produces for one file.
type FileSymbols struct {
	Path         string        `json:"path" msgpack:"path"`
	Language     string        `json:"language" msgpack:"language"`
	Namespace    string        `json:"namespace" msgpack:"namespace"`
	Imports      []Import      `json:"imports,omitempty" msgpack:"imports"`
	Declarations []Declaration `json:"declarations" msgpack:"declarations"`
	References   []Reference   `json:"references" msgpack:"references"`
}

// SymbolTable holds the declarations and unresolved references of a project.
type SymbolTable struct {
	Project      string        `json:"project" msgpack:"project"`
	Files        []string      `json:"files" msgpack:"files"`
	Declarations []Declaration `json:"declarations" msgpack:"declarations"`
	References   []Reference   `json:"references" msgpack:"references"`
}

// NewSymbolTable merges per-file results in the given order.
func NewSymbolTable(project string, files []*FileSymbols) *SymbolTable {
	t := &SymbolTable{Project: project}
	for _, f := range files {
		if f == nil {
			continue
		}
		t.Files = append(t.Files, f.Path)
		t.Declarations = append(t.Declarations, f.Declarations...)
		t.References = append(t.References, f.References...)
	}
	return t
}
