package ui

import (
	"fmt"
	"sync/atomic"

	"github.com/alfredjeanlab/todoboard/internal/model"
)

// ANSI256 color codes matching the Ayu palette.
const (
	colorAccent  = 74  // blue
	colorCmd     = 250 // light gray
	colorMuted   = 245 // medium gray
	colorSuccess = 114 // green
	colorError   = 203 // red
	colorWarn    = 215 // orange
)

var noColor atomic.Bool

func paint(code int, s string) string {
	if noColor.Load() {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return paint(colorAccent, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return paint(colorMuted, s) }

// RenderCommand returns s styled as a command name (light gray).
func RenderCommand(s string) string { return paint(colorCmd, s) }

// RenderSuccess returns s in green.
func RenderSuccess(s string) string { return paint(colorSuccess, s) }

// RenderError returns s in red.
func RenderError(s string) string { return paint(colorError, s) }

// RenderBold returns s in bold.
func RenderBold(s string) string {
	if noColor.Load() {
		return s
	}
	return "\x1b[1m" + s + "\x1b[0m"
}

// RenderStatus returns the status label in its accent color: muted for todo,
// blue for in progress, red for blocked and green for done.
func RenderStatus(s model.Status) string {
	label := s.Label()
	switch s {
	case model.StatusInProgress:
		return paint(colorAccent, label)
	case model.StatusBlocked:
		return paint(colorError, label)
	case model.StatusDone:
		return paint(colorSuccess, label)
	case model.StatusTodo:
		return paint(colorMuted, label)
	}
	return paint(colorWarn, label)
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor.Store(true)
}

// SetColor enables or disables color output globally.
func SetColor(enabled bool) {
	noColor.Store(!enabled)
}

// ColorEnabled reports whether the Render helpers emit ANSI sequences.
func ColorEnabled() bool {
	return !noColor.Load()
}
