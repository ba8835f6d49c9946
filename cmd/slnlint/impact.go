package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"slnlint/internal/analysis"
	"slnlint/internal/extractor"
	"slnlint/internal/git"
	"slnlint/internal/index"
	"slnlint/internal/loader"
	"slnlint/internal/solution"
)

var impactCmd = &cobra.Command{
	Use:   "impact [descriptor]",
	Short: "Show which projects and declarations a change affects",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runImpact,
}

var (
	impactSince   string
	impactSymbols bool
)

func init() {
	impactCmd.Flags().StringVar(&impactSince, "since", "", "git ref to diff against (required)")
	impactCmd.Flags().BoolVar(&impactSymbols, "symbols", false, "also report changed declarations and their callers")
	_ = impactCmd.MarkFlagRequired("since")
}

func runImpact(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := configFrom(ctx)
	log := loggerFrom(ctx)

	desc, err := loadSolution(cfg, args)
	if err != nil {
		return err
	}
	g, err := loader.BuildGraph(desc)
	if err != nil {
		return err
	}
	changes, err := git.ChangedFiles(ctx, desc.Dir, impactSince)
	if err != nil {
		return err
	}

	var ix *index.Index
	if impactSymbols {
		res, err := loader.New(extractor.New(), loader.WithJobs(cfg.Jobs), loader.WithLogger(log)).Load(ctx, desc)
		if err != nil {
			return err
		}
		ix = index.Build(res.Graph, res.Tables())
	}

	rep := analysis.NewAnalyzer(desc, g, ix).AnalyzeImpact(changes)
	return printImpact(cmd.OutOrStdout(), desc, ix, rep)
}

func printImpact(w io.Writer, desc *solution.Descriptor, ix *index.Index, rep *analysis.ImpactReport) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Direct:   %s\n", joinOrDash(rep.Direct))
	fmt.Fprintf(&b, "Indirect: %s\n", joinOrDash(rep.Indirect))
	if len(rep.Unowned) > 0 {
		fmt.Fprintf(&b, "Unowned:  %s\n", joinOrDash(rep.Unowned))
	}
	if ix != nil {
		writeDecls(&b, "Changed declarations", desc, ix, rep.Declarations)
		writeDecls(&b, "Callers", desc, ix, rep.Callers)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeDecls(b *strings.Builder, title string, desc *solution.Descriptor, ix *index.Index, ids []index.DeclID) {
	if len(ids) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n", title)
	for _, id := range ids {
		d, ok := ix.Decl(id)
		if !ok {
			continue
		}
		fmt.Fprintf(b, "  %s  %s (%s) %s\n", d.Project, d.Qualified, d.Kind, relPath(desc.Dir, d.Span.File, d.Span.Line))
	}
}

func joinOrDash(ss []string) string {
	if len(ss) == 0 {
		return "-"
	}
	return strings.Join(ss, ", ")
}

func relPath(base, file string, line int) string {
	if rel, err := filepath.Rel(base, file); err == nil && base != "" {
		file = rel
	}
	if line > 0 {
		return fmt.Sprintf("%s:%d", file, line)
	}
	return file
}
