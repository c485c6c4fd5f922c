package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envVars = []string{
	"PARKGATE_API_URL", "PARKGATE_WS_URL", "PARKGATE_NATS_URL", "PARKGATE_STATE_DIR", "PARKGATE_COLOR",
	"PARKGATE_LOG_LEVEL", "PARKGATE_LOG_FILE", "PARKGATE_LOG_MAX_SIZE_MB", "PARKGATE_LOG_MAX_BACKUPS",
	"PARKGATE_PUSH_BASE_DELAY", "PARKGATE_PUSH_MAX_ATTEMPTS", "PARKGATE_REQUEST_TIMEOUT",
}

// clearAllEnv unsets overrides and points the config lookup at an empty dir.
func clearAllEnv(t *testing.T) {
	t.Helper()
	for _, key := range envVars {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	clearAllEnv(t)

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000/api/v1", c.APIURL)
	assert.Equal(t, "ws://localhost:3000/api/v1/ws", c.WSURL)
	assert.Empty(t, c.NATSURL)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, time.Second, c.PushBaseDelay)
	assert.Equal(t, 5, c.PushMaxAttempts)
	assert.Equal(t, 15*time.Second, c.RequestTimeout)
	assert.Equal(t, 10, c.LogMaxSizeMB)
	assert.Equal(t, "auto", c.Color)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("PARKGATE_API_URL", "https://parking.example.com/api/v1")
	t.Setenv("PARKGATE_NATS_URL", "nats://bus:4222")
	t.Setenv("PARKGATE_PUSH_BASE_DELAY", "250ms")
	t.Setenv("PARKGATE_PUSH_MAX_ATTEMPTS", "7")
	t.Setenv("PARKGATE_LOG_LEVEL", "debug")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://parking.example.com/api/v1", c.APIURL)
	assert.Equal(t, "nats://bus:4222", c.NATSURL)
	assert.Equal(t, 250*time.Millisecond, c.PushBaseDelay)
	assert.Equal(t, 7, c.PushMaxAttempts)
	assert.Equal(t, "debug", c.LogLevel)
}

func TestLoad_File(t *testing.T) {
	clearAllEnv(t)
	path := filepath.Join(t.TempDir(), "terminal.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_url = "http://gate-server:3000/api/v1"
request_timeout = "5s"
log_file = "/var/log/parkgate.log"
`), 0o600))
	t.Setenv("PARKGATE_REQUEST_TIMEOUT", "9s")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://gate-server:3000/api/v1", c.APIURL)
	assert.Equal(t, "/var/log/parkgate.log", c.LogFile)
	assert.Equal(t, 9*time.Second, c.RequestTimeout, "env wins over file")
}

func TestLoad_DefaultLocation(t *testing.T) {
	clearAllEnv(t)
	dir := os.Getenv("XDG_CONFIG_HOME")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "parkgate"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "parkgate", "config.toml"),
		[]byte(`ws_url = "ws://gate-server:3000/ws"`), 0o600))

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "ws://gate-server:3000/ws", c.WSURL)
}

func TestLoad_Errors(t *testing.T) {
	for _, tc := range []struct {
		name string
		env  map[string]string
	}{
		{"BadDelay", map[string]string{"PARKGATE_PUSH_BASE_DELAY": "soon"}},
		{"ZeroDelay", map[string]string{"PARKGATE_PUSH_BASE_DELAY": "0s"}},
		{"ZeroAttempts", map[string]string{"PARKGATE_PUSH_MAX_ATTEMPTS": "0"}},
		{"BadColor", map[string]string{"PARKGATE_COLOR": "rainbow"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			clearAllEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	clearAllEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}
