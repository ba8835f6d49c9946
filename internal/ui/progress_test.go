package ui

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	prog "slnlint/internal/progress"
)

func TestProgressModel_AppliesEvents(t *testing.T) {
	events := make(chan prog.Event)
	m := NewProgressModel("sln", []string{"core (go)", "api (go)"}, events).(*progressModel)

	m.Update(eventMsg{Phase: prog.PhaseState, Subject: "loading"})
	m.Update(eventMsg{Phase: prog.PhaseParse, Subject: "core (go)", Status: prog.StatusStarted})
	assert.Equal(t, "parsing", m.items[0].status)
	assert.Zero(t, m.fraction())

	m.Update(eventMsg{Phase: prog.PhaseParse, Subject: "core (go)", Status: prog.StatusFinished, Elapsed: 1500 * time.Millisecond, Message: "3 files"})
	m.Update(eventMsg{Phase: prog.PhaseParse, Subject: "unknown", Status: prog.StatusFinished})
	assert.Equal(t, "done", m.items[0].status)
	assert.Equal(t, "0:01.5000000", m.items[0].elapsed)
	assert.InDelta(t, 0.5, m.fraction(), 1e-9)

	m.Update(eventMsg{Phase: prog.PhaseParse, Subject: "api (go)", Status: prog.StatusSkipped, Message: "dependency not loaded"})
	assert.InDelta(t, 1.0, m.fraction(), 1e-9)

	view := m.View()
	assert.Contains(t, view, "sln (loading)")
	assert.Contains(t, view, "core (go)")
	assert.Contains(t, view, "3 files")
	assert.Contains(t, view, "skipped")

	_, cmd := m.Update(doneMsg{})
	require.NotNil(t, cmd)
	assert.True(t, m.done)
	assert.Contains(t, m.View(), "done: sln")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a-very...", truncate("a-very-long-name", 9))
	assert.Equal(t, "ab", truncate("abcdef", 2))
	assert.Equal(t, "proj...", truncate("project-name", 7))
	assert.Equal(t, 7, runewidth.StringWidth(truncate("project-name", 7)))
	assert.Equal(t, "世...", truncate("世界世界世界", 5))
}

func TestEnabled(t *testing.T) {
	assert.True(t, Enabled("on", nil))
	assert.False(t, Enabled("off", nil))
	assert.False(t, Enabled("auto", nil))
}

func TestRun_ReturnsWorkOutcome(t *testing.T) {
	boom := errors.New("boom")
	got, err := Run(context.Background(), io.Discard, "sln", []string{"a"}, func(ctx context.Context, sink prog.Sink) (int, error) {
		sink.Report(prog.Event{Phase: prog.PhaseParse, Subject: "a", Status: prog.StatusFinished})
		return 7, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 7, got)
}
