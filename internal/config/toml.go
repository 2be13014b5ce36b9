package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file. Unset keys keep their defaults.
type FileConfig struct {
	Replays ReplaysFileConfig `toml:"replays"`
	Catalog CatalogFileConfig `toml:"catalog"`
	Logging LoggingFileConfig `toml:"logging"`
}

// ReplaysFileConfig maps replay location settings.
type ReplaysFileConfig struct {
	Dir    *string `toml:"dir"`
	Labels *string `toml:"labels"`
}

// CatalogFileConfig maps catalog cache settings.
type CatalogFileConfig struct {
	Path      *string `toml:"path"`
	Workers   *int    `toml:"workers"`
	CacheSize *int    `toml:"cache-size"`
	Retention *string `toml:"retention"`
}

// LoggingFileConfig maps logging settings.
type LoggingFileConfig struct {
	Level      *string `toml:"level"`
	Path       *string `toml:"path"`
	MaxSizeMB  *int    `toml:"max-size-mb"`
	MaxBackups *int    `toml:"max-backups"`
	MaxAgeDays *int    `toml:"max-age-days"`
	Compress   *bool   `toml:"compress"`
}

// LoadFile reads a TOML config from path. A missing file reports found=false without error.
func LoadFile(path string) (FileConfig, bool, error) {
	if path == "" {
		return FileConfig{}, false, nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, false, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, false, fmt.Errorf("unknown config key %q in %s", undecoded[0].String(), path)
	}
	if err := cfg.validate(); err != nil {
		return FileConfig{}, false, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, true, nil
}

func (f FileConfig) validate() error {
	if f.Catalog.Workers != nil && *f.Catalog.Workers <= 0 {
		return fmt.Errorf("catalog.workers must be positive, got %d", *f.Catalog.Workers)
	}
	if f.Catalog.CacheSize != nil && *f.Catalog.CacheSize <= 0 {
		return fmt.Errorf("catalog.cache-size must be positive, got %d", *f.Catalog.CacheSize)
	}
	if f.Catalog.Retention != nil {
		d, err := time.ParseDuration(*f.Catalog.Retention)
		if err != nil || d < 0 {
			return fmt.Errorf("catalog.retention must be a non-negative duration, got %q", *f.Catalog.Retention)
		}
	}
	if f.Logging.MaxSizeMB != nil && *f.Logging.MaxSizeMB <= 0 {
		return fmt.Errorf("logging.max-size-mb must be positive, got %d", *f.Logging.MaxSizeMB)
	}
	return nil
}

func (f FileConfig) apply(cfg *Config) {
	if f.Replays.Dir != nil {
		cfg.ReplayDir = *f.Replays.Dir
	}
	if f.Replays.Labels != nil {
		cfg.LabelsPath = *f.Replays.Labels
	}
	if f.Catalog.Path != nil {
		cfg.CachePath = *f.Catalog.Path
	}
	if f.Catalog.Workers != nil {
		cfg.Workers = *f.Catalog.Workers
	}
	if f.Catalog.CacheSize != nil {
		cfg.CacheSize = *f.Catalog.CacheSize
	}
	if f.Catalog.Retention != nil {
		//1.- validate already parsed this successfully.
		cfg.Retention, _ = time.ParseDuration(*f.Catalog.Retention)
	}
	if f.Logging.Level != nil {
		cfg.Logging.Level = *f.Logging.Level
	}
	if f.Logging.Path != nil {
		cfg.Logging.Path = *f.Logging.Path
	}
	if f.Logging.MaxSizeMB != nil {
		cfg.Logging.MaxSizeMB = *f.Logging.MaxSizeMB
	}
	if f.Logging.MaxBackups != nil {
		cfg.Logging.MaxBackups = *f.Logging.MaxBackups
	}
	if f.Logging.MaxAgeDays != nil {
		cfg.Logging.MaxAgeDays = *f.Logging.MaxAgeDays
	}
	if f.Logging.Compress != nil {
		cfg.Logging.Compress = *f.Logging.Compress
	}
}
