// Package coordinator drives one analysis run: it loads the solution,
// builds the symbol index and runs the rules, moving through
// Idle, Loading, Indexing, Analyzing and Done.
package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"

	"slnlint/internal/cache"
	"slnlint/internal/extractor"
	"slnlint/internal/graph"
	"slnlint/internal/index"
	"slnlint/internal/loader"
	"slnlint/internal/progress"
	"slnlint/internal/rules"
	"slnlint/internal/solution"
)

type Coordinator struct {
	fe      extractor.Frontend
	jobs    int
	sink    progress.Sink
	log     *slog.Logger
	rules   []rules.Rule
	cfg     *rules.Config
	cache   *cache.Cache
	sources loader.SourceResolver
}

type Option func(*Coordinator)

// WithJobs bounds both project loading and rule execution.
func WithJobs(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.jobs = n
		}
	}
}

func WithSink(s progress.Sink) Option {
	return func(c *Coordinator) {
		if s != nil {
			c.sink = s
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Coordinator) {
		if log != nil {
			c.log = log
		}
	}
}

// WithRules sets the candidate rules. The default is every registered rule.
func WithRules(rs ...rules.Rule) Option {
	return func(c *Coordinator) { c.rules = rs }
}

func WithRuleConfig(cfg *rules.Config) Option {
	return func(c *Coordinator) { c.cfg = cfg }
}

func WithCache(cc *cache.Cache) Option {
	return func(c *Coordinator) { c.cache = cc }
}

func WithSourceResolver(r loader.SourceResolver) Option {
	return func(c *Coordinator) { c.sources = r }
}

func New(fe extractor.Frontend, opts ...Option) *Coordinator {
	c := &Coordinator{
		fe:   fe,
		jobs: runtime.GOMAXPROCS(0),
		sink: progress.Discard,
		log:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rules == nil {
		c.rules = rules.GetAll()
	}
	return c
}

// Run analyses desc. A rule configuration error is returned before the
// run starts. Otherwise the Run is always returned: in Failed with the
// *graph.CycleError, in Cancelled with ctx.Err() and whatever loaded, or
// in Done with a nil error.
func (c *Coordinator) Run(ctx context.Context, desc *solution.Descriptor) (*Run, error) {
	selected, err := c.cfg.Select(c.rules)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	run := &Run{
		ID:         uuid.NewString(),
		State:      Idle,
		Started:    now,
		Descriptor: desc,
		sink:       c.sink,
		mark:       now,
	}
	log := c.log.With("run", run.ID)
	for _, r := range selected {
		run.Rules = append(run.Rules, r.ID())
	}

	cancelled := func(err error) (*Run, error) {
		run.Err = err
		run.Diagnostics = nil
		run.transition(Cancelled)
		log.Warn("run cancelled", "state", run.State, "err", err)
		return run, err
	}

	if err := ctx.Err(); err != nil {
		return cancelled(err)
	}

	// Loading
	run.transition(Loading)
	start := time.Now()
	res, err := c.loader().Load(ctx, desc)
	run.Timings.Load = time.Since(start)
	run.Load = res
	if res != nil {
		run.LoadErrors = res.Errors
	}
	if err != nil {
		var cycle *graph.CycleError
		var le *solution.LoadError
		switch {
		case errors.As(err, &cycle):
			run.Err = err
			run.transition(Failed)
			log.Error("dependency cycle", "members", cycle.Members)
			return run, err
		case ctx.Err() != nil:
			return cancelled(ctx.Err())
		case errors.As(err, &le):
			run.LoadErrors = []*solution.LoadError{le}
		default:
			run.LoadErrors = []*solution.LoadError{{Cause: err}}
		}
		log.Warn("solution rejected", "err", err)
		run.Load = &loader.Result{Graph: graph.New()}
	}
	if err := ctx.Err(); err != nil {
		return cancelled(err)
	}

	// Indexing
	run.transition(Indexing)
	start = time.Now()
	c.sink.Report(progress.Event{Phase: progress.PhaseIndex, Subject: desc.Name, Status: progress.StatusStarted})
	run.Index = index.Build(run.Load.Graph, run.Load.Tables())
	run.Timings.Index = time.Since(start)
	c.sink.Report(progress.Event{Phase: progress.PhaseIndex, Subject: desc.Name, Status: progress.StatusFinished, Elapsed: run.Timings.Index})
	log.Info("index built",
		"declarations", run.Index.NumDeclarations(),
		"references", run.Index.NumReferences(),
		"unresolved", len(run.Index.Unresolved()))
	if err := ctx.Err(); err != nil {
		return cancelled(err)
	}

	// Analyzing
	run.transition(Analyzing)
	start = time.Now()
	c.sink.Report(progress.Event{Phase: progress.PhaseAnalyze, Subject: desc.Name, Status: progress.StatusStarted})
	var projects []solution.Project
	for _, p := range run.Load.Projects {
		projects = append(projects, p.Project)
	}
	in := rules.Input{Index: run.Index, Graph: run.Load.Graph, Projects: projects}
	ds, err := rules.Run(ctx, selected, in, c.cfg, c.jobs)
	run.Timings.Analyze = time.Since(start)
	if err != nil {
		return cancelled(err)
	}
	c.sink.Report(progress.Event{Phase: progress.PhaseAnalyze, Subject: desc.Name, Status: progress.StatusFinished, Elapsed: run.Timings.Analyze})

	run.Diagnostics = ds
	run.transition(Done)
	log.Info("run finished", "diagnostics", len(ds), "load_errors", len(run.LoadErrors), "elapsed", run.Timings.Total)
	return run, nil
}

func (c *Coordinator) loader() *loader.Loader {
	opts := []loader.Option{
		loader.WithJobs(c.jobs),
		loader.WithSink(c.sink),
		loader.WithLogger(c.log),
		loader.WithSourceResolver(c.sources),
	}
	if c.cache != nil {
		opts = append(opts, loader.WithCache(c.cache))
	}
	return loader.New(c.fe, opts...)
}
