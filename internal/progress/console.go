package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
)

const columnWidth = 15

// Console prints one line per finished or failed event:
//
//	parse           0:00.0123456    core (net8.0)
type Console struct {
	mu sync.Mutex
	w  io.Writer
	// Verbose also prints started events.
	Verbose bool
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Report(e Event) {
	if e.Status == StatusStarted && !c.Verbose {
		return
	}
	phase := e.Phase
	if e.Status == StatusFailed || e.Status == StatusSkipped {
		phase += " " + string(e.Status)
	}
	line := pad(phase) + " " + pad(FormatElapsed(e.Elapsed)) + " " + e.Subject
	if e.Message != "" {
		line += ": " + e.Message
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, strings.TrimRight(line, " "))
}

func pad(s string) string {
	return runewidth.FillRight(s, columnWidth)
}

// FormatElapsed renders d as m:ss.fffffff.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	return fmt.Sprintf("%d:%02d.%07d", m, s, d/100)
}
