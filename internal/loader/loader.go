// Package loader turns a solution descriptor into per-project symbol
// tables. Projects load level by level along the dependency graph, with
// the projects of one level running concurrently.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"slnlint/internal/cache"
	"slnlint/internal/crawler"
	"slnlint/internal/extractor"
	"slnlint/internal/graph"
	"slnlint/internal/progress"
	"slnlint/internal/solution"
)

var ErrNoSources = errors.New("no source files configured")

// SourceResolver lists the source files of a project.
type SourceResolver func(ctx context.Context, p solution.Project) ([]string, error)

// languages is implemented by front ends that know which file
// extensions they handle.
type languages interface {
	Extensions() []string
	ExtensionsFor(lang string) []string
	LanguageOf(path string) (string, bool)
}

type Loader struct {
	fe      extractor.Frontend
	jobs    int
	sink    progress.Sink
	log     *slog.Logger
	cache   *cache.Cache
	sources SourceResolver
}

type Option func(*Loader)

// WithJobs bounds the number of projects loading at once.
func WithJobs(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.jobs = n
		}
	}
}

func WithSink(s progress.Sink) Option {
	return func(l *Loader) {
		if s != nil {
			l.sink = s
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(l *Loader) {
		if log != nil {
			l.log = log
		}
	}
}

// WithCache reuses symbol tables of unchanged projects.
func WithCache(c *cache.Cache) Option {
	return func(l *Loader) { l.cache = c }
}

func WithSourceResolver(r SourceResolver) Option {
	return func(l *Loader) {
		if r != nil {
			l.sources = r
		}
	}
}

func New(fe extractor.Frontend, opts ...Option) *Loader {
	l := &Loader{
		fe:   fe,
		jobs: runtime.GOMAXPROCS(0),
		sink: progress.Discard,
		log:  slog.New(slog.DiscardHandler),
	}
	l.sources = l.defaultSources
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// BuildGraph validates the descriptor and builds its dependency graph.
func BuildGraph(desc *solution.Descriptor) (*graph.Graph, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	g := graph.New()
	for _, p := range desc.Projects {
		if err := g.AddProject(p.ID, p.DependsOn...); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Load loads every project of desc. A malformed descriptor or a
// dependency cycle fails before any project is attempted. Per-project
// failures are recorded in the result. When ctx is cancelled the
// projects finished so far are returned together with ctx.Err().
func (l *Loader) Load(ctx context.Context, desc *solution.Descriptor) (*Result, error) {
	start := time.Now()
	l.sink.Report(progress.Event{Phase: progress.PhaseResolve, Subject: desc.Name, Status: progress.StatusStarted})
	g, err := BuildGraph(desc)
	if err != nil {
		l.sink.Report(progress.Event{Phase: progress.PhaseResolve, Subject: desc.Name, Status: progress.StatusFailed, Elapsed: time.Since(start), Message: err.Error()})
		return nil, err
	}
	l.sink.Report(progress.Event{Phase: progress.PhaseResolve, Subject: desc.Name, Status: progress.StatusFinished, Elapsed: time.Since(start)})

	projects := make(map[string]solution.Project, len(desc.Projects))
	for _, p := range desc.Projects {
		projects[p.ID] = p
	}

	res := &Result{Graph: g}
	var mu sync.Mutex
	status := make(map[string]Status, len(projects))
	publish := func(pr *ProjectResult) {
		mu.Lock()
		defer mu.Unlock()
		status[pr.Project.ID] = pr.Status
		res.Projects = append(res.Projects, pr)
		if pr.Err != nil {
			res.Errors = append(res.Errors, pr.Err)
		}
	}

	loadStart := time.Now()
	l.sink.Report(progress.Event{Phase: progress.PhaseLoad, Subject: desc.Name, Status: progress.StatusStarted})
	levels := g.Levels()
	l.log.Info("loading solution", "projects", len(projects), "levels", len(levels), "jobs", l.jobs)

	for depth, level := range levels {
		if err := ctx.Err(); err != nil {
			return l.cancelled(res, desc, loadStart, err)
		}

		var eligible []solution.Project
		for _, id := range level {
			p := projects[id]
			if blocked := blockedBy(g, status, id); len(blocked) > 0 {
				l.log.Debug("skipping project", "project", id, "blocked_by", blocked)
				l.sink.Report(progress.Event{Phase: progress.PhaseParse, Subject: p.Label(), Status: progress.StatusSkipped, Message: "dependency not loaded"})
				publish(&ProjectResult{Project: p, Status: StatusUnresolved, BlockedBy: blocked})
				continue
			}
			eligible = append(eligible, p)
		}

		grp := new(errgroup.Group)
		grp.SetLimit(l.jobs)
		for _, p := range eligible {
			grp.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				if pr := l.loadProject(ctx, p); pr != nil {
					publish(pr)
				}
				return nil
			})
		}
		_ = grp.Wait()
		l.log.Debug("level loaded", "depth", depth, "projects", len(level))
	}

	if err := ctx.Err(); err != nil {
		return l.cancelled(res, desc, loadStart, err)
	}

	res.sortByOrder()
	l.sink.Report(progress.Event{Phase: progress.PhaseLoad, Subject: desc.Name, Status: progress.StatusFinished, Elapsed: time.Since(loadStart)})
	l.log.Info("solution loaded", "loaded", len(res.Loaded()), "failed", len(res.Errors), "unresolved", len(res.Unresolved()), "elapsed", time.Since(loadStart))
	return res, nil
}

func (l *Loader) cancelled(res *Result, desc *solution.Descriptor, start time.Time, err error) (*Result, error) {
	res.sortByOrder()
	l.sink.Report(progress.Event{Phase: progress.PhaseLoad, Subject: desc.Name, Status: progress.StatusFailed, Elapsed: time.Since(start), Message: err.Error()})
	l.log.Warn("load cancelled", "finished", len(res.Projects), "err", err)
	return res, err
}

// blockedBy returns the direct dependencies of id that did not load.
func blockedBy(g *graph.Graph, status map[string]Status, id string) []string {
	var blocked []string
	for _, dep := range g.DependsOn(id) {
		if status[dep] != StatusLoaded {
			blocked = append(blocked, dep)
		}
	}
	return blocked
}

// loadProject parses one project. It returns nil when ctx was cancelled
// before the project finished.
func (l *Loader) loadProject(ctx context.Context, p solution.Project) *ProjectResult {
	start := time.Now()
	l.sink.Report(progress.Event{Phase: progress.PhaseParse, Subject: p.Label(), Status: progress.StatusStarted})

	fail := func(cause error) *ProjectResult {
		if ctx.Err() != nil && errors.Is(cause, ctx.Err()) {
			return nil
		}
		elapsed := time.Since(start)
		l.log.Warn("project failed", "project", p.ID, "err", cause)
		l.sink.Report(progress.Event{Phase: progress.PhaseParse, Subject: p.Label(), Status: progress.StatusFailed, Elapsed: elapsed, Message: cause.Error()})
		return &ProjectResult{
			Project: p,
			Status:  StatusFailed,
			Err:     &solution.LoadError{ProjectID: p.ID, Cause: cause},
			Elapsed: elapsed,
		}
	}

	files, err := l.sources(ctx, p)
	if err != nil {
		return fail(err)
	}
	if p.Language == "" {
		p.Language = l.inferLanguage(files)
	}

	compute := func() (*extractor.SymbolTable, error) {
		parsed := make([]*extractor.FileSymbols, 0, len(files))
		for _, f := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			fs, err := l.fe.ParseFile(ctx, f)
			if err != nil {
				return nil, err
			}
			parsed = append(parsed, fs)
		}
		return extractor.NewSymbolTable(p.ID, parsed), nil
	}

	var (
		table *extractor.SymbolTable
		hit   bool
	)
	if l.cache != nil {
		key, kerr := cache.Key(p, files)
		if kerr != nil {
			return fail(kerr)
		}
		table, hit, err = l.cache.Load(key, compute)
	} else {
		table, err = compute()
	}
	if err != nil {
		return fail(err)
	}

	elapsed := time.Since(start)
	msg := fmt.Sprintf("%d files", len(files))
	if hit {
		msg += ", cached"
	}
	l.sink.Report(progress.Event{Phase: progress.PhaseParse, Subject: p.Label(), Status: progress.StatusFinished, Elapsed: elapsed, Message: msg})
	l.log.Debug("project loaded", "project", p.ID, "files", len(files), "declarations", len(table.Declarations), "references", len(table.References), "cached", hit)
	return &ProjectResult{
		Project: p,
		Status:  StatusLoaded,
		Files:   files,
		Table:   table,
		Cached:  hit,
		Elapsed: elapsed,
	}
}

// defaultSources uses the explicit source list when there is one and
// otherwise crawls the project root for files the front end can parse.
func (l *Loader) defaultSources(ctx context.Context, p solution.Project) ([]string, error) {
	if len(p.Sources) > 0 {
		return p.Sources, nil
	}
	langs, ok := l.fe.(languages)
	if !ok {
		return nil, ErrNoSources
	}
	exts := langs.Extensions()
	if p.Language != "" {
		exts = langs.ExtensionsFor(p.Language)
		if len(exts) == 0 {
			return nil, fmt.Errorf("%w: %s", extractor.ErrUnsupportedLanguage, p.Language)
		}
	}
	files, err := crawler.NewCrawler(exts...).Sources(ctx, p.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	return files, nil
}

// inferLanguage picks the most common language among files.
func (l *Loader) inferLanguage(files []string) string {
	langs, ok := l.fe.(languages)
	if !ok {
		return ""
	}
	counts := make(map[string]int)
	for _, f := range files {
		if lang, ok := langs.LanguageOf(f); ok {
			counts[lang]++
		}
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) == 0 {
		return ""
	}
	return names[0]
}
