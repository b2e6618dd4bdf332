package tui

import (
	"testing"
	"unicode/utf8"

	"github.com/osoriano/pitwall/internal/engine"
	"github.com/osoriano/pitwall/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly-10", truncate("exactly-10", 10))
	assert.Equal(t, "a long ...", truncate("a long brief that overflows", 10))
}

func TestTruncateMultibyte(t *testing.T) {
	// Feed messages are Spanish with accents and emoji; cutting must
	// never split a rune.
	got := truncate("🔍 Analizando calificación del brief", 10)
	assert.Equal(t, "🔍 Anali...", got)
	assert.True(t, utf8.ValidString(got))

	got = truncate("requerimientos priorizados según criticidad", 20)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 20, utf8.RuneCountInString(got))
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "14:03:22", formatTimestamp("2026-08-31T14:03:22.123456Z"))
	assert.Equal(t, "2026-08-31 14:03:22", formatTimestamp("2026-08-31T14:03:22"))
	assert.Equal(t, "garbage", formatTimestamp("garbage"))
}

func TestAtGate(t *testing.T) {
	app := &App{}

	assert.False(t, app.atGate(), "no run loaded")

	app.current = engine.View{Run: &models.Run{
		Status:       models.RunStatusWaitingHITL,
		CurrentPhase: models.PhaseHITLGate1,
	}}
	assert.True(t, app.atGate())

	app.current.Pending = true
	assert.False(t, app.atGate(), "pending prediction disables the controls")

	app.current = engine.View{Run: &models.Run{
		Status:       models.RunStatusRunning,
		CurrentPhase: models.PhaseBuilding,
	}}
	assert.False(t, app.atGate())
}
