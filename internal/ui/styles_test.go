package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func withNoColor(t *testing.T) {
	t.Helper()
	prev := noColor
	ForceNoColor()
	t.Cleanup(func() { noColor = prev })
}

func TestRender_NoColorIsPlain(t *testing.T) {
	withNoColor(t)

	assert.False(t, ColorEnabled())
	assert.Equal(t, "zone_a", RenderAccent("zone_a"))
	assert.Equal(t, "closed", RenderMuted("closed"))
	assert.Equal(t, "pk gates", RenderCommand("pk gates"))
	assert.Equal(t, "connected", RenderConnection(true))
	assert.Equal(t, "disconnected", RenderConnection(false))
}

func TestRenderAvailability_Text(t *testing.T) {
	withNoColor(t)

	assert.Equal(t, "3/10", RenderAvailability(3, 10, true))
	assert.Equal(t, "0/10", RenderAvailability(0, 10, true))
	assert.Equal(t, "7/10", RenderAvailability(7, 10, false))
}

func TestShouldUseColor_Auto(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	t.Setenv("CLICOLOR_FORCE", "1")
	assert.False(t, ShouldUseColor(ColorAuto), "NO_COLOR wins")

	t.Setenv("NO_COLOR", "")
	assert.True(t, ShouldUseColor(ColorAuto))
	assert.True(t, ShouldUseColor(""), "empty mode is auto")

	t.Setenv("CLICOLOR_FORCE", "")
	t.Setenv("CLICOLOR", "0")
	assert.False(t, ShouldUseColor(ColorAuto))
}

func TestShouldUseColor_ExplicitMode(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.True(t, ShouldUseColor(ColorAlways))

	t.Setenv("NO_COLOR", "")
	t.Setenv("CLICOLOR_FORCE", "1")
	assert.False(t, ShouldUseColor(ColorNever))
}

func TestSetColorMode(t *testing.T) {
	prev := noColor
	t.Cleanup(func() { noColor = prev })

	SetColorMode(ColorNever)
	assert.False(t, ColorEnabled())
	assert.Equal(t, "zone_a", RenderAccent("zone_a"))

	SetColorMode(ColorAlways)
	assert.True(t, ColorEnabled())
}

func TestColorMode_IsValid(t *testing.T) {
	for _, m := range []ColorMode{"", ColorAuto, ColorAlways, ColorNever} {
		assert.True(t, m.IsValid(), m)
	}
	assert.False(t, ColorMode("sometimes").IsValid())
}
