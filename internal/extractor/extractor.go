package extractor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Extractor orchestrates the extraction process using language-specific extractors.
type Extractor struct {
	byExt  map[string]LanguageExtractor
	byName map[string]LanguageExtractor
}

// NewExtractor creates an extractor for the given languages. With no
// arguments every supported language is registered.
func NewExtractor(langs ...string) (*Extractor, error) {
	all := []LanguageExtractor{&GoExtractor{}, &CSharpExtractor{}}
	e := &Extractor{
		byExt:  make(map[string]LanguageExtractor),
		byName: make(map[string]LanguageExtractor),
	}
	for _, le := range all {
		if len(langs) > 0 && !slices.Contains(langs, le.Name()) {
			continue
		}
		e.byName[le.Name()] = le
		for _, ext := range le.Extensions() {
			e.byExt[ext] = le
		}
	}
	for _, l := range langs {
		if _, ok := e.byName[l]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, l)
		}
	}
	return e, nil
}

// New returns an extractor for every supported language.
func New() *Extractor {
	e, _ := NewExtractor()
	return e
}

// Extensions lists the file extensions the extractor accepts, sorted.
func (e *Extractor) Extensions() []string {
	out := make([]string, 0, len(e.byExt))
	for ext := range e.byExt {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// ExtensionsFor lists the extensions of one language.
func (e *Extractor) ExtensionsFor(lang string) []string {
	if le, ok := e.byName[strings.ToLower(lang)]; ok {
		return le.Extensions()
	}
	return nil
}

// LanguageOf returns the language name registered for path.
func (e *Extractor) LanguageOf(path string) (string, bool) {
	le, ok := e.byExt[filepath.Ext(path)]
	if !ok {
		return "", false
	}
	return le.Name(), true
}

// ParseFile implements Frontend.
func (e *Extractor) ParseFile(ctx context.Context, path string) (*FileSymbols, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return e.Parse(ctx, path, src)
}

// Parse extracts symbols from in-memory source. path selects the language
// and is recorded in spans.
func (e *Extractor) Parse(ctx context.Context, path string, src []byte) (*FileSymbols, error) {
	le, ok := e.byExt[filepath.Ext(path)]
	if !ok {
		return nil, &ParseError{Path: path, Err: fmt.Errorf("%w: %s", ErrUnsupportedLanguage, filepath.Ext(path))}
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(le.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		pe := &ParseError{Path: path, Line: 1, Column: 1}
		if bad := firstError(root); bad != nil {
			pe.Line = int(bad.StartPoint().Row) + 1
			pe.Column = int(bad.StartPoint().Column) + 1
		}
		return nil, pe
	}

	fs := &FileSymbols{
		Path:      path,
		Language:  le.Name(),
		Namespace: le.Namespace(root, src),
		Imports:   le.Imports(root, src),
	}

	query, err := sitter.NewQuery([]byte(le.GetQuery()), le.GetLanguage())
	if err != nil {
		return nil, fmt.Errorf("failed to create query: %w", err)
	}
	defer query.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(query, root)

	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, c := range m.Captures {
			captureName := query.CaptureNameForId(c.Index)
			for _, d := range le.ExtractDeclarations(captureName, c.Node, src, fs) {
				d.Language = le.Name()
				fs.Declarations = append(fs.Declarations, d)
			}
		}
	}
	sort.SliceStable(fs.Declarations, func(i, j int) bool {
		return fs.Declarations[i].Span.Before(fs.Declarations[j].Span)
	})

	imported := make(map[string]bool, len(fs.Imports))
	for _, imp := range fs.Imports {
		imported[imp.Name] = true
	}
	for _, r := range le.ExtractReferences(root, src, fs) {
		r.Language = le.Name()
		if r.Namespace == "" {
			r.Namespace = fs.Namespace
		}
		if r.Qualifier != "" && imported[r.Qualifier] {
			r.Imported = true
		}
		fs.References = append(fs.References, r)
	}
	return fs, nil
}

func qualify(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ".")
}
