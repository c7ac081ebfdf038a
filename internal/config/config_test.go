package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TRICYS_CONFIG_FILE", "")
	os.Unsetenv("TRICYS_API_URL")
	os.Unsetenv("TRICYS_PLAYBACK_INTERVAL_MS")

	cfg := Load()

	assert.Equal(t, DefaultAPIBaseURL, cfg.API.BaseURL)
	assert.Equal(t, time.Second, cfg.PlaybackInterval())
	assert.Equal(t, 3*time.Second, cfg.NotifyDuration())
	assert.Equal(t, "file", cfg.Storage.Driver)
	assert.False(t, cfg.IsProduction())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tricys.toml")
	content := `
[api]
base_url = "http://file-host/api/v1"
timeout_seconds = 5

[viewer]
playback_interval_ms = 250
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("TRICYS_CONFIG_FILE", path)
	t.Setenv("TRICYS_API_URL", "http://env-host/api/v1")
	os.Unsetenv("TRICYS_PLAYBACK_INTERVAL_MS")
	os.Unsetenv("TRICYS_HTTP_TIMEOUT_SECONDS")

	cfg := Load()

	assert.Equal(t, "http://env-host/api/v1", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout())
	assert.Equal(t, 250*time.Millisecond, cfg.PlaybackInterval())
}

func TestGetEnvAsIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("TRICYS_TEST_INT", "not-a-number")
	assert.Equal(t, 7, getEnvAsInt("TRICYS_TEST_INT", 7))
}
