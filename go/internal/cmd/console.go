package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/mcdev12/studyroom/go/internal/timer"
)

var (
	infoColor    = color.New(color.FgCyan)
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	dimColor     = color.New(color.Faint)
)

// ConsoleNotifier prints notifications and timer state to a terminal.
type ConsoleNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

var _ timer.Notifier = (*ConsoleNotifier)(nil)

func NewConsoleNotifier(out io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{out: out}
}

func (c *ConsoleNotifier) Notify(roomID string, n timer.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()

	levelColor := infoColor
	switch n.Level {
	case timer.LevelSuccess:
		levelColor = successColor
	case timer.LevelError:
		levelColor = errorColor
	}

	levelColor.Fprintf(c.out, "[%s] %s", roomID, n.Title)
	if n.Message != "" {
		fmt.Fprintf(c.out, ": %s", n.Message)
	}
	fmt.Fprintln(c.out)
}

func (c *ConsoleNotifier) RevealTimer(string) {}

// PrintState writes one line describing state.
func (c *ConsoleNotifier) PrintState(roomID string, state timer.State, remaining int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, formatState(roomID, state, remaining))
}

func formatState(roomID string, state timer.State, remaining int) string {
	status := dimColor.Sprint("idle")
	if state.IsTimerRunning {
		status = successColor.Sprint("running")
	}

	line := fmt.Sprintf("%s %s %s / %s", roomID, status,
		formatClock(remaining), formatClock(state.OriginalTimerDuration))
	if state.TimerDescription != "" {
		line += " " + infoColor.Sprint(state.TimerDescription)
	}
	return line
}

// formatClock renders seconds as MM:SS, or H:MM:SS from one hour up.
func formatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h, m, s := seconds/3600, (seconds%3600)/60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
