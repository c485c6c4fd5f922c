package ui

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// ColorMode selects when the Render* helpers emit ANSI styling.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// IsValid reports whether m is a known mode. The empty mode means auto.
func (m ColorMode) IsValid() bool {
	switch m {
	case "", ColorAuto, ColorAlways, ColorNever:
		return true
	}
	return false
}

// ShouldUseColor reports whether stdout gets color under mode. An explicit
// always or never wins; in auto mode NO_COLOR, CLICOLOR_FORCE and CLICOLOR
// are checked before falling back to TTY detection.
func ShouldUseColor(mode ColorMode) bool {
	switch mode {
	case ColorNever:
		return false
	case ColorAlways:
		return true
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if strings.TrimSpace(os.Getenv("CLICOLOR_FORCE")) == "1" {
		return true
	}
	if strings.TrimSpace(os.Getenv("CLICOLOR")) == "0" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// SetColorMode applies mode to every Render* helper.
func SetColorMode(mode ColorMode) {
	noColor = !ShouldUseColor(mode)
}
