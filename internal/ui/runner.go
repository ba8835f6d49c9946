package ui

import (
	"context"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	prog "slnlint/internal/progress"
)

// Enabled decides whether to show the interactive UI. mode is auto, on
// or off; auto enables it when out is a terminal.
func Enabled(mode string, out *os.File) bool {
	switch mode {
	case "on":
		return true
	case "off":
		return false
	}
	return out != nil && term.IsTerminal(int(out.Fd()))
}

// Run executes work while rendering its progress events. work receives
// the sink to report to; the UI ends when work returns.
func Run[T any](ctx context.Context, out io.Writer, title string, labels []string, work func(ctx context.Context, sink prog.Sink) (T, error)) (T, error) {
	type outcome struct {
		val T
		err error
	}
	events := prog.NewChannel(256)
	done := make(chan outcome, 1)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		v, err := work(ctx, events)
		done <- outcome{v, err}
		events.Close()
	}()

	model := NewProgressModel(title, labels, events.Events())
	program := tea.NewProgram(model, tea.WithOutput(out), tea.WithContext(ctx), tea.WithInput(nil))
	_, uiErr := program.Run()
	if uiErr != nil {
		// stop the work so the outcome arrives
		cancel()
	}
	res := <-done
	if uiErr != nil && res.err == nil {
		return res.val, uiErr
	}
	return res.val, res.err
}
