package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zipkit/internal/config"
	"zipkit/internal/session"
)

func TestLoadMissingFileReturnsZeroValue(t *testing.T) {
	t.Parallel()

	f, err := config.Load(filepath.Join(t.TempDir(), "zipkit.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.File{}, f)
}

func TestLoadParsesYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "zipkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
level: 6
no_compress_suffix: [".jpg", ".mp4"]
match_case: false
temp_dir: /tmp/staging
`), 0o644))

	f, err := config.Load(path)
	require.NoError(t, err)
	require.NotNil(t, f.Level)
	assert.Equal(t, 6, *f.Level)
	assert.Equal(t, []string{".jpg", ".mp4"}, f.NoCompressSuffix)
	require.NotNil(t, f.MatchCase)
	assert.False(t, *f.MatchCase)
	assert.Equal(t, "/tmp/staging", f.TempDir)
}

func TestApplyDefaultsDoesNotOverrideExplicitFlags(t *testing.T) {
	t.Parallel()

	cfg := session.DefaultConfig()
	cfg.Level = 3
	cfg.NoCompressSuffix = []string{".zip"}

	fileLevel := 9
	f := config.File{Level: &fileLevel, NoCompressSuffix: []string{".jpg"}}

	merged := config.ApplyDefaults(cfg, f)
	assert.Equal(t, 3, merged.Level)
	assert.Equal(t, []string{".zip"}, merged.NoCompressSuffix)
}

func TestApplyDefaultsFillsUnsetFields(t *testing.T) {
	t.Parallel()

	cfg := session.DefaultConfig()
	fileLevel := 9
	matchCase := false
	f := config.File{Level: &fileLevel, MatchCase: &matchCase, TempDir: "/var/tmp"}

	merged := config.ApplyDefaults(cfg, f)
	assert.Equal(t, 9, merged.Level)
	assert.False(t, merged.MatchCase)
	assert.Equal(t, "/var/tmp", merged.TempDir)
}
