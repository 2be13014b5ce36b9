package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// DefaultWorkers bounds how many replays the catalog parses concurrently.
	DefaultWorkers = 4
	// DefaultCacheSize is the number of catalog records kept in memory.
	DefaultCacheSize = 512
	// DefaultRetention controls how long cached catalog rows survive without a file. Zero disables age pruning.
	DefaultRetention = 90 * 24 * time.Hour

	// DefaultLogLevel controls verbosity for CLI logs.
	DefaultLogLevel = "info"
	// DefaultLogPath is empty, which sends logs to stderr.
	DefaultLogPath = ""
	// DefaultLogMaxSizeMB caps the size of a single log file before rotation.
	DefaultLogMaxSizeMB = 10
	// DefaultLogMaxBackups limits retained rotated log files.
	DefaultLogMaxBackups = 5
	// DefaultLogMaxAgeDays controls how long rotated log files are kept on disk.
	DefaultLogMaxAgeDays = 30
	// DefaultLogCompress toggles gzip compression for rotated log files.
	DefaultLogCompress = true
)

// EnvPrefix is prepended to every environment variable the CLI reads.
const EnvPrefix = "REPLAYVAULT_"

// Config captures all runtime tunables for the replay tooling.
type Config struct {
	ReplayDir  string
	CachePath  string
	LabelsPath string
	Workers    int
	CacheSize  int
	Retention  time.Duration
	Logging    LoggingConfig
	// Source is the TOML file that was applied, empty when none existed.
	Source string
}

// LoggingConfig captures structured logging configuration options.
type LoggingConfig struct {
	Level      string
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Defaults returns the configuration used when neither a file nor the environment override anything.
func Defaults() *Config {
	return &Config{
		CachePath:  DefaultCachePath(),
		LabelsPath: DefaultLabelsPath(),
		Workers:    DefaultWorkers,
		CacheSize:  DefaultCacheSize,
		Retention:  DefaultRetention,
		Logging: LoggingConfig{
			Level:      DefaultLogLevel,
			Path:       DefaultLogPath,
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
			MaxAgeDays: DefaultLogMaxAgeDays,
			Compress:   DefaultLogCompress,
		},
	}
}

// LoadDotEnv loads the first readable .env file among paths and reports which one was used.
// Variables already present in the environment are left untouched.
func LoadDotEnv(paths ...string) (string, bool) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err == nil {
			return path, true
		}
	}
	return "", false
}

// Load builds the configuration from defaults, the TOML file named by
// REPLAYVAULT_CONFIG (or the XDG default), and environment overrides, in that order.
func Load() (*Config, error) {
	path := getString(EnvPrefix+"CONFIG", DefaultConfigPath())
	return LoadFrom(path)
}

// LoadFrom is Load with an explicit TOML path. A missing file is not an error.
func LoadFrom(path string) (*Config, error) {
	cfg := Defaults()
	file, found, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if found {
		file.apply(cfg)
		cfg.Source = path
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.ReplayDir = getString(EnvPrefix+"REPLAY_DIR", cfg.ReplayDir)
	cfg.CachePath = getString(EnvPrefix+"CACHE_PATH", cfg.CachePath)
	cfg.LabelsPath = getString(EnvPrefix+"LABELS_PATH", cfg.LabelsPath)
	cfg.Logging.Level = getString(EnvPrefix+"LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Path = getString(EnvPrefix+"LOG_PATH", cfg.Logging.Path)

	var problems []string

	if raw := strings.TrimSpace(os.Getenv(EnvPrefix + "WORKERS")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			problems = append(problems, fmt.Sprintf("%sWORKERS must be a positive integer, got %q", EnvPrefix, raw))
		} else {
			cfg.Workers = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv(EnvPrefix + "CACHE_SIZE")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			problems = append(problems, fmt.Sprintf("%sCACHE_SIZE must be a positive integer, got %q", EnvPrefix, raw))
		} else {
			cfg.CacheSize = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv(EnvPrefix + "RETENTION")); raw != "" {
		duration, err := time.ParseDuration(raw)
		if err != nil || duration < 0 {
			problems = append(problems, fmt.Sprintf("%sRETENTION must be a non-negative duration, got %q", EnvPrefix, raw))
		} else {
			cfg.Retention = duration
		}
	}

	if raw := strings.TrimSpace(os.Getenv(EnvPrefix + "LOG_MAX_SIZE_MB")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			problems = append(problems, fmt.Sprintf("%sLOG_MAX_SIZE_MB must be a positive integer, got %q", EnvPrefix, raw))
		} else {
			cfg.Logging.MaxSizeMB = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv(EnvPrefix + "LOG_MAX_BACKUPS")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			problems = append(problems, fmt.Sprintf("%sLOG_MAX_BACKUPS must be a non-negative integer, got %q", EnvPrefix, raw))
		} else {
			cfg.Logging.MaxBackups = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv(EnvPrefix + "LOG_MAX_AGE_DAYS")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			problems = append(problems, fmt.Sprintf("%sLOG_MAX_AGE_DAYS must be a non-negative integer, got %q", EnvPrefix, raw))
		} else {
			cfg.Logging.MaxAgeDays = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv(EnvPrefix + "LOG_COMPRESS")); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%sLOG_COMPRESS must be a boolean value, got %q", EnvPrefix, raw))
		} else {
			cfg.Logging.Compress = value
		}
	}

	if strings.TrimSpace(cfg.CachePath) == "" {
		problems = append(problems, "cache path must not be empty")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func getString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
