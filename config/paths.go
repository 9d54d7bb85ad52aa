package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// DatabasePath resolves the tracking database location.
// Precedence: RTK_DB_PATH env var > cfg.Tracking.DatabasePath > DataDir()/rtk/history.db.
// cfg may be nil.
func DatabasePath(cfg *Config) string {
	// 1. Environment variable
	if p := os.Getenv(EnvDatabasePath); p != "" {
		return p
	}

	// 2. Config file
	if cfg != nil && cfg.Tracking.DatabasePath != "" {
		return cfg.Tracking.DatabasePath
	}

	// 3. Platform default
	return filepath.Join(DataDir(), AppName, DatabaseFileName)
}

// DataDir returns the per-user data directory ($XDG_DATA_HOME or
// ~/.local/share on Linux, ~/Library/Application Support on macOS,
// %LOCALAPPDATA% on Windows), or "." when none can be determined.
func DataDir() string {
	if xdg.DataHome == "" {
		return "."
	}
	return xdg.DataHome
}
