// Package config loads pitwall configuration via Viper: defaults,
// an optional YAML config file, and PITWALL_-prefixed environment
// variables (highest priority).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// BackendURL is the base URL of the pipeline backend.
	BackendURL string `mapstructure:"backend_url"`

	// PollInterval is the fixed cadence of the sync engine's poll cycles.
	PollInterval time.Duration `mapstructure:"poll_interval"`

	// RequestTimeout bounds each individual HTTP request; a timed-out
	// fetch is an ordinary transient failure for that cycle.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	// DataDir holds the local watch history database.
	DataDir string `mapstructure:"data_dir"`

	// Debug enables slog debug output on stderr.
	Debug bool `mapstructure:"debug"`
}

func defaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".pitwall"
	}
	return filepath.Join(homeDir, ".pitwall")
}

// Load reads configuration from defaults, an optional config file
// (PITWALL_CONFIG_PATH, or config.yaml in the data dir), and PITWALL_*
// environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("backend_url", "http://localhost:8001")
	v.SetDefault("poll_interval", 3*time.Second)
	v.SetDefault("request_timeout", 10*time.Second)
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("debug", false)

	v.SetEnvPrefix("PITWALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv("PITWALL_CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(defaultDataDir())
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "pitwall.db")
}

func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0755)
}
