package builtin

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"slnlint/internal/diag"
	"slnlint/internal/extractor"
	"slnlint/internal/index"
	"slnlint/internal/rules"
)

func init() {
	rules.RegisterDef(rules.RuleDef{
		ID:          "naming-convention",
		Name:        "Naming convention",
		Group:       GroupStyle,
		Description: "Declaration names that break the language's naming convention",
		Severity:    diag.SevWarning,
		ConfigKeys:  []string{"interface_prefix"},
		Check:       checkNamingConvention,
	})
}

func checkNamingConvention(ctx context.Context, p *rules.Pass) ([]diag.Diagnostic, error) {
	prefix := rules.GetBoolOption(p.Options, "interface_prefix", true)

	var out []diag.Diagnostic
	for _, d := range p.Index.AllDeclarations() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var problem string
		switch d.Language {
		case "csharp":
			problem = csharpName(d, prefix)
		case "go":
			problem = goName(d)
		}
		if problem == "" {
			continue
		}
		dg := p.Diag(rules.At(d.Span), "%s %q %s", d.Kind, d.Name, problem)
		dg.Symbol = symbol(d)
		out = append(out, dg)
	}
	return out, nil
}

func csharpName(d index.Decl, interfacePrefix bool) string {
	switch {
	case d.Kind == extractor.KindInterface:
		if !isPascal(d.Name) {
			return "should be PascalCase"
		}
		if interfacePrefix && !hasInterfacePrefix(d.Name) {
			return "should start with I"
		}
	case d.Kind == extractor.KindType, d.Kind == extractor.KindMethod, d.Kind == extractor.KindProperty:
		if !isPascal(d.Name) {
			return "should be PascalCase"
		}
	case d.Kind == extractor.KindField && d.Visibility == extractor.Private:
		if !isCamel(strings.TrimPrefix(d.Name, "_")) {
			return "should be camelCase or _camelCase"
		}
	}
	return ""
}

func goName(d index.Decl) string {
	name := d.Name
	if name == "_" || strings.HasPrefix(name, "Test") || strings.HasPrefix(name, "Benchmark") || strings.HasPrefix(name, "Example") || strings.HasPrefix(name, "Fuzz") {
		return ""
	}
	if strings.Contains(name, "_") {
		return "should use MixedCaps, not underscores"
	}
	return ""
}

func isPascal(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r) && !strings.Contains(s, "_")
}

func isCamel(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsLower(r) && !strings.Contains(s, "_")
}

func hasInterfacePrefix(s string) bool {
	if len(s) < 2 || s[0] != 'I' {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s[1:])
	return unicode.IsUpper(r)
}
