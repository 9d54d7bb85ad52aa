// Package config loads the rtk user configuration and resolves where the
// tracking database lives.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// AppName is the directory name used under the platform config and data dirs.
	AppName = "rtk"

	// ConfigFileName is the name of the YAML config file inside the config dir.
	ConfigFileName = "config.yaml"

	// DatabaseFileName is the default tracking database file name.
	DatabaseFileName = "history.db"

	// EnvConfigPath overrides the config file location.
	EnvConfigPath = "RTK_CONFIG"

	// EnvDatabasePath overrides every other source of the database location.
	EnvDatabasePath = "RTK_DB_PATH"

	envPrefix = "RTK"
)

// Config is the user configuration stored in config.yaml.
type Config struct {
	Tracking TrackingConfig `yaml:"tracking" mapstructure:"tracking"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// TrackingConfig controls the savings tracking database.
type TrackingConfig struct {
	// DatabasePath overrides the default database location when non-empty.
	DatabasePath string `yaml:"database_path" mapstructure:"database_path"`
}

// LogConfig controls diagnostic output on stderr.
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Tracking: TrackingConfig{DatabasePath: ""},
		Log:      LogConfig{Level: "warn"},
	}
}

// Path returns the config file location: $RTK_CONFIG when set, otherwise
// <user config dir>/rtk/config.yaml.
func Path() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", AppName, ConfigFileName)
	}
	return filepath.Join(dir, AppName, ConfigFileName)
}

// Load reads the config file at Path. A missing file is not an error and
// yields DefaultConfig. RTK_* environment variables override file values
// (e.g. RTK_LOG_LEVEL, RTK_TRACKING_DATABASE_PATH).
func Load() (*Config, error) {
	return LoadFile(Path())
}

// LoadFile reads the config file at path, applying defaults and env overrides.
func LoadFile(path string) (*Config, error) {
	def := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetDefault("tracking.database_path", def.Tracking.DatabasePath)
	v.SetDefault("log.level", def.Log.Level)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: stat %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes cfg as YAML to path, creating parent directories.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
