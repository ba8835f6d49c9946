package coordinator

import (
	"time"

	"slnlint/internal/diag"
	"slnlint/internal/index"
	"slnlint/internal/loader"
	"slnlint/internal/progress"
	"slnlint/internal/solution"
)

// Timings records how long each phase took.
type Timings struct {
	Load    time.Duration
	Index   time.Duration
	Analyze time.Duration
	Total   time.Duration
}

// Run is one analysis of a solution. It is created by Coordinator.Run
// and is not safe for concurrent mutation.
type Run struct {
	ID         string
	State      State
	Started    time.Time
	Descriptor *solution.Descriptor

	// Load holds the projects that reached a final status, possibly
	// partial when the run was cancelled.
	Load        *loader.Result
	Index       *index.Index
	Diagnostics []diag.Diagnostic
	LoadErrors  []*solution.LoadError
	// Rules lists the ids of the rules that ran.
	Rules   []string
	Err     error
	Timings Timings

	sink progress.Sink
	mark time.Time
}

// transition moves the run to another state. An illegal transition is a
// programming error and panics.
func (r *Run) transition(to State) {
	if !CanTransition(r.State, to) {
		panic("coordinator: illegal transition " + r.State.String() + " -> " + to.String())
	}
	from := r.State
	r.State = to
	now := time.Now()
	r.sink.Report(progress.Event{
		Phase:   progress.PhaseState,
		Subject: to.String(),
		Status:  progress.StatusFinished,
		Elapsed: now.Sub(r.mark),
		Message: from.String() + " -> " + to.String(),
	})
	r.mark = now
	if to.Terminal() {
		r.Timings.Total = now.Sub(r.Started)
	}
}

// ExitCode is 0 when the run finished without error diagnostics or load
// errors, 1 when it finished with either, and 2 when it failed or was
// cancelled.
func (r *Run) ExitCode() int {
	switch r.State {
	case Done:
		if len(r.LoadErrors) > 0 || diag.HasErrors(r.Diagnostics) {
			return 1
		}
		return 0
	}
	return 2
}

// Unresolved returns the projects skipped because a dependency failed.
func (r *Run) Unresolved() []string {
	return r.Load.Unresolved()
}
