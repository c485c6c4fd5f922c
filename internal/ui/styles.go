package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// ANSI256 color codes matching the Ayu palette.
var (
	colorAccent = lipgloss.Color("74")  // blue
	colorCmd    = lipgloss.Color("250") // light gray
	colorMuted  = lipgloss.Color("245") // medium gray
	colorOK     = lipgloss.Color("114") // green
	colorWarn   = lipgloss.Color("179") // amber
	colorFail   = lipgloss.Color("203") // red
)

var (
	accentStyle  = lipgloss.NewStyle().Foreground(colorAccent)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	commandStyle = lipgloss.NewStyle().Foreground(colorCmd)
	okStyle      = lipgloss.NewStyle().Foreground(colorOK)
	warnStyle    = lipgloss.NewStyle().Foreground(colorWarn)
	failStyle    = lipgloss.NewStyle().Foreground(colorFail)
	boldStyle    = lipgloss.NewStyle().Bold(true)
)

var noColor bool

func render(style lipgloss.Style, s string) string {
	if noColor {
		return s
	}
	return style.Render(s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return render(accentStyle, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return render(mutedStyle, s) }

// RenderCommand returns s styled as a command name (light gray).
func RenderCommand(s string) string { return render(commandStyle, s) }

// RenderOK returns s in green.
func RenderOK(s string) string { return render(okStyle, s) }

// RenderWarn returns s in amber.
func RenderWarn(s string) string { return render(warnStyle, s) }

// RenderFail returns s in red.
func RenderFail(s string) string { return render(failStyle, s) }

// RenderBold returns s in bold.
func RenderBold(s string) string { return render(boldStyle, s) }

// RenderConnection renders a push channel status word: green when connected,
// red otherwise.
func RenderConnection(connected bool) string {
	if connected {
		return RenderOK("connected")
	}
	return RenderFail("disconnected")
}

// RenderAvailability renders "free/capacity" colored by how much room is left.
// Closed zones render muted regardless of the counts.
func RenderAvailability(free, capacity int, open bool) string {
	s := fmt.Sprintf("%d/%d", free, capacity)
	switch {
	case !open:
		return RenderMuted(s)
	case free <= 0:
		return RenderFail(s)
	case capacity > 0 && free*5 <= capacity:
		return RenderWarn(s)
	default:
		return RenderOK(s)
	}
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}

// ColorEnabled reports whether Render* helpers emit styling.
func ColorEnabled() bool {
	return !noColor
}
