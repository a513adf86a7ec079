package notify

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"portfolio-monitor/internal/resilience"
	"portfolio-monitor/internal/trading"
)

// TerminalChannel prints notifications as single coloured lines.
type TerminalChannel struct {
	w       io.Writer
	bell    bool
	noColor bool

	mu sync.Mutex
}

// NewTerminalChannel writes to w. With bell set, CRITICAL alerts ring the
// terminal bell.
func NewTerminalChannel(w io.Writer, bell, noColor bool) *TerminalChannel {
	return &TerminalChannel{w: w, bell: bell, noColor: noColor || color.NoColor}
}

func (t *TerminalChannel) Name() string {
	return "terminal"
}

// Send writes one line: time, priority, title and message.
func (t *TerminalChannel) Send(ctx context.Context, n Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	line := fmt.Sprintf("%s %s %s: %s",
		n.Timestamp.In(resilience.IndiaLocation).Format("15:04:05"),
		t.priority(n.Priority), n.Title, n.Message)
	if t.bell && n.Priority == trading.PriorityCritical {
		line = "\a" + line
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := fmt.Fprintln(t.w, line)
	return err
}

func (t *TerminalChannel) priority(p trading.Priority) string {
	label := fmt.Sprintf("[%s]", p)
	if t.noColor {
		return label
	}
	var c *color.Color
	switch p {
	case trading.PriorityCritical:
		c = color.New(color.FgRed, color.Bold)
	case trading.PriorityHigh:
		c = color.New(color.FgRed)
	case trading.PriorityMedium:
		c = color.New(color.FgYellow)
	default:
		c = color.New(color.FgCyan)
	}
	c.EnableColor()
	return c.Sprint(label)
}
