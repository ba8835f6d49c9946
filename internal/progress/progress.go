// Package progress carries phase events from the loader and coordinator
// to whoever is watching: a console, a log, or the interactive UI.
package progress

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Status of a phase.
type Status string

const (
	StatusStarted  Status = "started"
	StatusFinished Status = "finished"
	StatusFailed   Status = "failed"
	StatusSkipped  Status = "skipped"
)

// Phase names emitted by the engine.
const (
	PhaseResolve = "resolve"
	PhaseParse   = "parse"
	PhaseLoad    = "load"
	PhaseIndex   = "index"
	PhaseAnalyze = "analyze"
	PhaseRule    = "rule"
	PhaseState   = "state"
)

// Event describes a phase status change.
type Event struct {
	Phase   string
	Subject string
	Status  Status
	Elapsed time.Duration
	Message string
}

// Sink receives events. Implementations must be safe for concurrent use.
type Sink interface {
	Report(Event)
}

// Func adapts a function to a Sink.
type Func func(Event)

func (f Func) Report(e Event) {
	if f != nil {
		f(e)
	}
}

type discard struct{}

func (discard) Report(Event) {}

// Discard drops every event.
var Discard Sink = discard{}

type multi []Sink

func (m multi) Report(e Event) {
	for _, s := range m {
		s.Report(e)
	}
}

// Multi fans an event out to every non-nil sink.
func Multi(sinks ...Sink) Sink {
	out := make(multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	switch len(out) {
	case 0:
		return Discard
	case 1:
		return out[0]
	}
	return out
}

type logSink struct{ log *slog.Logger }

func (l logSink) Report(e Event) {
	level := slog.LevelDebug
	if e.Status == StatusFailed {
		level = slog.LevelWarn
	}
	attrs := []slog.Attr{
		slog.String("phase", e.Phase),
		slog.String("status", string(e.Status)),
	}
	if e.Subject != "" {
		attrs = append(attrs, slog.String("subject", e.Subject))
	}
	if e.Elapsed > 0 {
		attrs = append(attrs, slog.Duration("elapsed", e.Elapsed))
	}
	if e.Message != "" {
		attrs = append(attrs, slog.String("message", e.Message))
	}
	l.log.LogAttrs(context.Background(), level, "progress", attrs...)
}

// Log writes events to a structured logger.
func Log(log *slog.Logger) Sink {
	if log == nil {
		return Discard
	}
	return logSink{log: log}
}

// Channel forwards events to a buffered channel. Report never blocks:
// events arriving while the buffer is full are dropped and counted.
type Channel struct {
	mu      sync.Mutex
	ch      chan Event
	closed  bool
	dropped int
}

func NewChannel(n int) *Channel {
	if n < 1 {
		n = 1
	}
	return &Channel{ch: make(chan Event, n)}
}

func (c *Channel) Report(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.ch <- e:
	default:
		c.dropped++
	}
}

// Events returns the receive side.
func (c *Channel) Events() <-chan Event { return c.ch }

// Dropped reports how many events were lost to a full buffer.
func (c *Channel) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// Close closes the channel. Later reports are ignored.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
}
