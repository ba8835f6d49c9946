package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"slnlint/internal/analysis"
	"slnlint/internal/cache"
	"slnlint/internal/config"
	"slnlint/internal/coordinator"
	"slnlint/internal/extractor"
	"slnlint/internal/git"
	"slnlint/internal/index"
	"slnlint/internal/progress"
	"slnlint/internal/report"
	"slnlint/internal/rules"
	"slnlint/internal/solution"
	"slnlint/internal/storage"
	"slnlint/internal/ui"
	"slnlint/internal/watch"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [descriptor]",
	Short: "Analyze a solution and report diagnostics",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAnalyze,
}

var (
	changedSince string
	dumpIndex    string
	watchMode    bool
)

func init() {
	f := analyzeCmd.Flags()
	f.IntP("jobs", "j", 0, "parallel jobs (default: number of CPUs)")
	f.StringP("format", "f", "text", "output format (text|json|sarif|table)")
	f.StringSlice("enable", nil, "rules or groups to run (default: all)")
	f.StringSlice("disable", nil, "rules or groups to skip")
	f.String("ui", "auto", "interactive progress (auto|on|off)")
	f.String("color", "auto", "colored output (auto|always|never)")
	f.Bool("cache", true, "reuse parsed symbol tables")
	f.String("cache-dir", "", "symbol table cache directory")
	f.Bool("history", false, "record the run in the history database")
	f.String("database", "", "history database path")
	f.StringVar(&changedSince, "changed-since", "", "only report diagnostics on lines changed since this git ref")
	f.StringVar(&dumpIndex, "dump-index", "", "write the symbol index as JSON to this file")
	f.BoolVarP(&watchMode, "watch", "w", false, "rerun when sources change")

	_ = analyzeCmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json", "sarif", "table"}, cobra.ShellCompDirectiveNoFileComp
	})
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := configFrom(ctx)

	desc, err := loadSolution(cfg, args)
	if err != nil {
		return err
	}
	if !watchMode {
		code, err := analyzeOnce(ctx, cmd, cfg, desc)
		if err != nil {
			return err
		}
		if code != 0 {
			return &exitError{code}
		}
		return nil
	}
	return watchLoop(ctx, cmd, cfg, desc)
}

func watchLoop(ctx context.Context, cmd *cobra.Command, cfg *config.Config, desc *solution.Descriptor) error {
	log := loggerFrom(ctx)
	if _, err := analyzeOnce(ctx, cmd, cfg, desc); err != nil {
		return err
	}

	var roots []string
	for _, p := range desc.Projects {
		roots = append(roots, p.Root)
	}
	roots = append(roots, desc.Dir)
	w := watch.New(compactRoots(roots), extractor.New().Extensions(), solution.DescriptorNames)
	w.Logger = log
	fmt.Fprintln(cmd.ErrOrStderr(), "watching for changes, press Ctrl+C to stop")

	return w.Run(ctx, func(ctx context.Context, changed []string) error {
		log.Info("rerunning", "changed", changed)
		fresh, err := solution.Load(desc.Path)
		if err != nil {
			return err
		}
		_, err = analyzeOnce(ctx, cmd, cfg, fresh)
		return err
	})
}

// compactRoots drops roots nested in another root.
func compactRoots(roots []string) []string {
	slices.Sort(roots)
	roots = slices.Compact(roots)
	var out []string
	for _, r := range roots {
		nested := false
		for _, kept := range out {
			if rel, err := filepath.Rel(kept, r); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
				nested = true
				break
			}
		}
		if !nested {
			out = append(out, r)
		}
	}
	return out
}

// analyzeOnce runs one analysis, prints its report and returns the exit code.
func analyzeOnce(ctx context.Context, cmd *cobra.Command, cfg *config.Config, desc *solution.Descriptor) (int, error) {
	log := loggerFrom(ctx)

	format, err := report.ParseFormat(cfg.Format)
	if err != nil {
		return 0, err
	}
	rc, err := cfg.RuleConfig()
	if err != nil {
		return 0, err
	}

	opts := []coordinator.Option{
		coordinator.WithJobs(cfg.Jobs),
		coordinator.WithLogger(log),
		coordinator.WithRuleConfig(rc),
	}
	if cfg.Cache.Enabled {
		c, err := openCache(cfg)
		if err != nil {
			log.Warn("cache disabled", "err", err)
		} else {
			c.Logger = log
			opts = append(opts, coordinator.WithCache(c))
		}
	}

	fe := extractor.New()
	work := func(ctx context.Context, sink progress.Sink) (*coordinator.Run, error) {
		all := append(slices.Clone(opts), coordinator.WithSink(progress.Multi(sink, progress.Log(log))))
		return coordinator.New(fe, all...).Run(ctx, desc)
	}

	var (
		run    *coordinator.Run
		runErr error
	)
	if ui.Enabled(cfg.UI, os.Stderr) {
		labels := make([]string, 0, len(desc.Projects))
		for _, p := range desc.Projects {
			labels = append(labels, p.Label())
		}
		run, runErr = ui.Run(ctx, cmd.ErrOrStderr(), desc.Name, labels, work)
	} else {
		run, runErr = work(ctx, progress.NewConsole(cmd.ErrOrStderr()))
	}
	if run == nil {
		return 0, runErr
	}
	if errors.Is(runErr, context.Canceled) {
		log.Info("analysis interrupted")
	}

	if changedSince != "" && run.State == coordinator.Done {
		files, err := git.ChangedFiles(ctx, desc.Dir, changedSince)
		if err != nil {
			return 0, err
		}
		run.Diagnostics = analysis.FilterDiagnostics(run.Diagnostics, git.NewChanges(files))
	}

	if dumpIndex != "" && run.Index != nil {
		if err := index.WriteJSON(dumpIndex, run.Index); err != nil {
			return 0, fmt.Errorf("failed to dump index: %w", err)
		}
	}

	if cfg.History.Enabled {
		if err := saveHistory(ctx, cfg, run); err != nil {
			log.Warn("history not saved", "err", err)
		}
	}

	out := cmd.OutOrStdout()
	if err := report.Write(out, format, run.Diagnostics, report.Options{
		Color:   useColor(cfg, out),
		BaseDir: desc.Dir,
		Rules:   ranRules(run),
		Version: version,
	}); err != nil {
		return 0, err
	}
	if err := report.Summary(cmd.ErrOrStderr(), run); err != nil {
		return 0, err
	}
	return run.ExitCode(), nil
}

func openCache(cfg *config.Config) (*cache.Cache, error) {
	if cfg.Cache.Dir != "" {
		return cache.OpenDir(cfg.Cache.Dir)
	}
	return cache.Open("slnlint")
}

func saveHistory(ctx context.Context, cfg *config.Config, run *coordinator.Run) error {
	path, err := cfg.HistoryPath()
	if err != nil {
		return err
	}
	store, err := storage.NewSQLiteStore(path)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.SaveRun(context.WithoutCancel(ctx), run)
}

func ranRules(run *coordinator.Run) []rules.Rule {
	var out []rules.Rule
	for _, id := range run.Rules {
		if r, ok := rules.GetByID(id); ok {
			out = append(out, r)
		}
	}
	return out
}

func useColor(cfg *config.Config, out io.Writer) bool {
	switch cfg.Color {
	case "always":
		return true
	case "never":
		return false
	}
	return out == os.Stdout && !color.NoColor
}
