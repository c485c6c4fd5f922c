package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/alfredjeanlab/parkgate/internal/ui"
)

// EnvPrefix prefixes every environment override (PARKGATE_API_URL, ...).
const EnvPrefix = "PARKGATE"

type Config struct {
	APIURL  string `mapstructure:"api_url"`  // PARKGATE_API_URL (default "http://localhost:3000/api/v1")
	WSURL   string `mapstructure:"ws_url"`   // PARKGATE_WS_URL (default "ws://localhost:3000/api/v1/ws")
	NATSURL string `mapstructure:"nats_url"` // PARKGATE_NATS_URL (optional; when set, push runs over NATS instead of the websocket)

	StateDir string `mapstructure:"state_dir"` // PARKGATE_STATE_DIR (default ~/.local/state/parkgate)
	Color    string `mapstructure:"color"`     // PARKGATE_COLOR ("auto", "always" or "never"; default "auto")

	// Logging
	LogLevel      string `mapstructure:"log_level"`       // PARKGATE_LOG_LEVEL (default "info")
	LogFile       string `mapstructure:"log_file"`        // PARKGATE_LOG_FILE (empty = stderr)
	LogMaxSizeMB  int    `mapstructure:"log_max_size_mb"` // PARKGATE_LOG_MAX_SIZE_MB (default 10)
	LogMaxBackups int    `mapstructure:"log_max_backups"` // PARKGATE_LOG_MAX_BACKUPS (default 3)

	// Push channel and REST settings
	PushBaseDelay   time.Duration `mapstructure:"push_base_delay"`   // PARKGATE_PUSH_BASE_DELAY (default 1s)
	PushMaxAttempts int           `mapstructure:"push_max_attempts"` // PARKGATE_PUSH_MAX_ATTEMPTS (default 5)
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`   // PARKGATE_REQUEST_TIMEOUT (default 15s)
}

var defaults = map[string]any{
	"api_url":           "http://localhost:3000/api/v1",
	"ws_url":            "ws://localhost:3000/api/v1/ws",
	"nats_url":          "",
	"state_dir":         "",
	"color":             "auto",
	"log_level":         "info",
	"log_file":          "",
	"log_max_size_mb":   10,
	"log_max_backups":   3,
	"push_base_delay":   "1s",
	"push_max_attempts": 5,
	"request_timeout":   "15s",
}

// Load reads configuration from an optional TOML file and PARKGATE_*
// environment variables, in increasing precedence. When path is empty the
// file is looked up at $XDG_CONFIG_HOME/parkgate/config.toml and may be absent.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if dir := defaultConfigDir(); dir != "" {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(dir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("%s_API_URL is required", EnvPrefix)
	}
	if c.PushBaseDelay <= 0 {
		return fmt.Errorf("%s_PUSH_BASE_DELAY must be positive", EnvPrefix)
	}
	if c.PushMaxAttempts <= 0 {
		return fmt.Errorf("%s_PUSH_MAX_ATTEMPTS must be positive", EnvPrefix)
	}
	if !ui.ColorMode(c.Color).IsValid() {
		return fmt.Errorf("%s_COLOR must be auto, always or never", EnvPrefix)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("%s_REQUEST_TIMEOUT must not be negative", EnvPrefix)
	}
	return nil
}

func defaultConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "parkgate")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "parkgate")
}
