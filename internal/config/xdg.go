package config

import (
	"os"
	"path/filepath"
)

const appName = "replayvault"

// XDGConfigHome returns the XDG config home or a default fallback.
func XDGConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".config")
}

// XDGCacheHome returns the XDG cache home or a default fallback.
func XDGCacheHome() string {
	if v := os.Getenv("XDG_CACHE_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".cache")
}

// DefaultConfigPath returns the default TOML config path.
func DefaultConfigPath() string {
	return filepath.Join(XDGConfigHome(), appName, "config.toml")
}

// DefaultCachePath returns the default path for the catalog SQLite database.
func DefaultCachePath() string {
	return filepath.Join(XDGCacheHome(), appName, "catalog.db")
}

// DefaultLabelsPath returns the default vehicle label file.
func DefaultLabelsPath() string {
	return filepath.Join(XDGConfigHome(), appName, "vehicles.json")
}
