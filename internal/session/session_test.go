package session_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"zipkit/internal/session"
)

func TestWarnDeduplicates(t *testing.T) {
	t.Parallel()

	s := session.New(session.DefaultConfig(), slog.LevelError)
	s.Warn("name too long")
	s.Warn("name too long")
	s.Warn("different warning")

	assert.Equal(t, []string{"name too long", "different warning"}, s.Warnings)
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := session.DefaultConfig()
	assert.Equal(t, session.ModeCreate, cfg.Mode)
	assert.Equal(t, -1, cfg.Level)
	assert.True(t, cfg.MatchCase)
	assert.Equal(t, session.OverwritePrompt, cfg.Overwrite)
}
