package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configFile string
	envPrefix  string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return NewLoaderWithViper(viper.New())
}

// NewLoaderWithViper creates a loader using an existing viper instance.
// This allows integration with CLI flag bindings.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{
		v:         v,
		envPrefix: "BEEQUEN",
	}
}

// WithConfigFile sets an explicit config file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Viper returns the underlying viper instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load loads configuration from all sources.
// Precedence (highest to lowest):
// 1. CLI flags (set via viper.BindPFlag)
// 2. Environment variables (BEEQUEN_*)
// 3. Working directory config (.beequen.yaml)
// 4. User config (~/.config/beequen/config.yaml)
// 5. Defaults
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()

	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	} else if err := l.readDefaultFiles(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if cfg.Data.Dir == "" {
		cfg.Data.Dir = DefaultDataDir()
	}

	return &cfg, nil
}

// readDefaultFiles merges the user config first and the working directory
// config on top of it. Missing files are ignored.
func (l *Loader) readDefaultFiles() error {
	var candidates []string
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "beequen", "config.yaml"))
	}
	candidates = append(candidates, ".beequen.yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("checking config %s: %w", path, err)
		}
		l.v.SetConfigFile(path)
		if err := l.v.MergeInConfig(); err != nil {
			return fmt.Errorf("reading config %s: %w", path, err)
		}
	}
	return nil
}

// setDefaults configures default values.
func (l *Loader) setDefaults() {
	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.format", "auto")
	l.v.SetDefault("log.file", "")

	l.v.SetDefault("server.host", "127.0.0.1")
	l.v.SetDefault("server.port", 7360)
	l.v.SetDefault("server.enable_cors", true)
	l.v.SetDefault("server.cors_origins", []string{"http://localhost:*", "http://127.0.0.1:*"})

	l.v.SetDefault("data.dir", "")

	l.v.SetDefault("bigquery.location", "")
	l.v.SetDefault("bigquery.table_list_budget", 50)
	l.v.SetDefault("bigquery.table_list_window", "1s")
	l.v.SetDefault("bigquery.max_result_rows", 0)

	l.v.SetDefault("history.enabled", true)
	l.v.SetDefault("history.path", "")

	l.v.SetDefault("watch.enabled", true)
}

// ConfigFile returns the config file path if one was used.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

// Set sets a configuration value.
func (l *Loader) Set(key string, value interface{}) {
	l.v.Set(key, value)
}
