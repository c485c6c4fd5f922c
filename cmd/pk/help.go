package main

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/parkgate/internal/ui"
)

// Patterns used to colorize Cobra's default help output.
var (
	// Section headers: unindented line ending with ":" (e.g. "Gate:", "Flags:").
	reGroupHeader = regexp.MustCompile(`(?m)^([A-Z][^\n]*:)\s*$`)

	// Command names: two-space indent, then a word, then two-or-more spaces
	// before the description.
	reCommand = regexp.MustCompile(`(?m)^(  )(\S+)(  )`)

	// Flag type annotations: e.g. "--config string", "--timeout duration".
	reFlagType = regexp.MustCompile(`(--?\S+\s+)(string|int|duration|stringSlice)`)

	// Argument placeholders, e.g. "<gate-id>".
	rePlaceholder = regexp.MustCompile(`<[a-z][a-z-]*>`)

	// Default values, e.g. (default "visitor").
	reDefault = regexp.MustCompile(`\(default "[^"]*"\)`)
)

// settingsHelp closes the root help.
const settingsHelp = `
Settings are read from --config or $XDG_CONFIG_HOME/parkgate/config.toml
and overridden by PARKGATE_* environment variables (PARKGATE_API_URL, ...).
`

// colorizedHelpFunc returns a Cobra help function that renders the default
// help text, styled when color is enabled, and appends settingsHelp to the
// root command's help.
func colorizedHelpFunc() func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		var buf bytes.Buffer
		orig := cmd.OutOrStdout()
		cmd.SetOut(&buf)
		_ = cmd.Usage()
		cmd.SetOut(orig)

		text := buf.String()
		if !cmd.HasParent() {
			text += settingsHelp
		}
		if ui.ShouldUseColor(colorMode()) {
			text = colorizeHelpOutput(text)
		}
		fmt.Fprint(orig, text)
	}
}

// colorizeHelpOutput applies styling to Cobra's plain-text help.
func colorizeHelpOutput(s string) string {
	s = reGroupHeader.ReplaceAllStringFunc(s, func(match string) string {
		return ui.RenderAccent(strings.TrimSpace(match))
	})
	s = reCommand.ReplaceAllStringFunc(s, func(match string) string {
		parts := reCommand.FindStringSubmatch(match)
		if len(parts) == 4 {
			return parts[1] + ui.RenderCommand(parts[2]) + parts[3]
		}
		return match
	})
	s = reFlagType.ReplaceAllStringFunc(s, func(match string) string {
		parts := reFlagType.FindStringSubmatch(match)
		if len(parts) == 3 {
			return parts[1] + ui.RenderMuted(parts[2])
		}
		return match
	})
	s = rePlaceholder.ReplaceAllStringFunc(s, ui.RenderWarn)
	return reDefault.ReplaceAllStringFunc(s, ui.RenderMuted)
}
