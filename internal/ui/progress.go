// Package ui renders run progress in an interactive terminal.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	prog "slnlint/internal/progress"
)

type progressModel struct {
	title   string
	events  <-chan prog.Event
	spinner spinner.Model
	bar     progress.Model
	items   []projectItem
	index   map[string]int
	state   string
	width   int
	done    bool
}

type projectItem struct {
	label   string
	status  string
	elapsed string
	message string
}

type eventMsg prog.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders one line per
// project. labels are the project labels progress events use as subjects.
func NewProgressModel(title string, labels []string, events <-chan prog.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 76

	items := make([]projectItem, 0, len(labels))
	index := make(map[string]int, len(labels))
	for i, l := range labels {
		items = append(items, projectItem{label: l, status: "queued"})
		index[l] = i
	}
	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		bar:     bar,
		items:   items,
		index:   index,
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(prog.Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.bar.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := m.title
	if m.state != "" {
		header = fmt.Sprintf("%s (%s)", header, m.state)
	}
	if m.done {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	nameWidth := max(m.width-12-16-6, 20)
	for _, item := range m.items {
		line := fmt.Sprintf("  %s %-15s %s",
			styleStatus(item.status).Render(fmt.Sprintf("%10s", item.status)),
			item.elapsed,
			truncate(item.label, nameWidth))
		if item.message != "" {
			line += lipgloss.NewStyle().Faint(true).Render("  " + item.message)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.bar.ViewAs(1.0))
	} else {
		b.WriteString(m.bar.View())
	}
	b.WriteString("\n")
	return b.String()
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev prog.Event) tea.Cmd {
	if ev.Phase == prog.PhaseState {
		m.state = ev.Subject
		return nil
	}
	if ev.Phase != prog.PhaseParse {
		return nil
	}
	idx, ok := m.index[ev.Subject]
	if !ok {
		return nil
	}
	item := &m.items[idx]
	item.status = statusLabel(ev.Status)
	if ev.Status != prog.StatusStarted {
		item.elapsed = prog.FormatElapsed(ev.Elapsed)
		item.message = ev.Message
	}
	return m.bar.SetPercent(m.fraction())
}

// fraction is the share of projects that reached a final status.
func (m *progressModel) fraction() float64 {
	if len(m.items) == 0 {
		return 1
	}
	n := 0
	for _, item := range m.items {
		switch item.status {
		case "done", "failed", "skipped":
			n++
		}
	}
	return float64(n) / float64(len(m.items))
}

func statusLabel(s prog.Status) string {
	switch s {
	case prog.StatusStarted:
		return "parsing"
	case prog.StatusFinished:
		return "done"
	case prog.StatusFailed:
		return "failed"
	case prog.StatusSkipped:
		return "skipped"
	}
	return string(s)
}

func styleStatus(status string) lipgloss.Style {
	switch status {
	case "done":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case "failed":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case "skipped":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	case "parsing":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
}

func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
