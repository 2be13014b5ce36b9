package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG", "REPLAY_DIR", "CACHE_PATH", "LABELS_PATH", "WORKERS", "CACHE_SIZE", "RETENTION",
		"LOG_LEVEL", "LOG_PATH", "LOG_MAX_SIZE_MB", "LOG_MAX_BACKUPS", "LOG_MAX_AGE_DAYS", "LOG_COMPRESS",
	} {
		t.Setenv(EnvPrefix+key, "")
	}
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(home, "cache"))
}

func writeTOML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Workers != DefaultWorkers {
		t.Fatalf("expected default workers %d, got %d", DefaultWorkers, cfg.Workers)
	}
	if cfg.CacheSize != DefaultCacheSize {
		t.Fatalf("expected default cache size %d, got %d", DefaultCacheSize, cfg.CacheSize)
	}
	if cfg.Retention != DefaultRetention {
		t.Fatalf("expected default retention %v, got %v", DefaultRetention, cfg.Retention)
	}
	if cfg.CachePath != filepath.Join(os.Getenv("XDG_CACHE_HOME"), "replayvault", "catalog.db") {
		t.Fatalf("unexpected cache path %q", cfg.CachePath)
	}
	if cfg.Logging.Path != "" || cfg.Logging.Level != DefaultLogLevel {
		t.Fatalf("unexpected logging defaults %+v", cfg.Logging)
	}
	if cfg.Source != "" {
		t.Fatalf("expected no config source, got %q", cfg.Source)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvPrefix+"REPLAY_DIR", "/games/wot/replays")
	t.Setenv(EnvPrefix+"CACHE_PATH", "/tmp/catalog.db")
	t.Setenv(EnvPrefix+"WORKERS", "12")
	t.Setenv(EnvPrefix+"RETENTION", "720h")
	t.Setenv(EnvPrefix+"LOG_LEVEL", "debug")
	t.Setenv(EnvPrefix+"LOG_COMPRESS", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.ReplayDir != "/games/wot/replays" {
		t.Fatalf("unexpected replay dir: %q", cfg.ReplayDir)
	}
	if cfg.CachePath != "/tmp/catalog.db" {
		t.Fatalf("unexpected cache path: %q", cfg.CachePath)
	}
	if cfg.Workers != 12 {
		t.Fatalf("expected workers 12, got %d", cfg.Workers)
	}
	if cfg.Retention != 720*time.Hour {
		t.Fatalf("expected retention 720h, got %v", cfg.Retention)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Compress {
		t.Fatalf("unexpected logging config %+v", cfg.Logging)
	}
}

func TestLoadReturnsValidationErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvPrefix+"WORKERS", "0")
	t.Setenv(EnvPrefix+"CACHE_SIZE", "lots")
	t.Setenv(EnvPrefix+"RETENTION", "-1h")
	t.Setenv(EnvPrefix+"LOG_COMPRESS", "maybe")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error from invalid configuration, got nil")
	}

	for _, want := range []string{
		EnvPrefix + "WORKERS",
		EnvPrefix + "CACHE_SIZE",
		EnvPrefix + "RETENTION",
		EnvPrefix + "LOG_COMPRESS",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected error to mention %s, got %q", want, err.Error())
		}
	}
}

func TestLoadAllowsDisabledRetention(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvPrefix+"RETENTION", "0s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Retention != 0 {
		t.Fatalf("expected zero to disable retention, got %v", cfg.Retention)
	}
}

func TestLoadAppliesTOMLBeforeEnv(t *testing.T) {
	clearEnv(t)
	path := writeTOML(t, `
[replays]
dir = "/from/file"

[catalog]
workers = 2
retention = "48h"

[logging]
level = "warn"
path = "/var/log/replayvault.log"
`)
	t.Setenv(EnvPrefix+"CONFIG", path)
	t.Setenv(EnvPrefix+"WORKERS", "6")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Source != path {
		t.Fatalf("expected source %q, got %q", path, cfg.Source)
	}
	if cfg.ReplayDir != "/from/file" {
		t.Fatalf("expected replay dir from file, got %q", cfg.ReplayDir)
	}
	if cfg.Workers != 6 {
		t.Fatalf("expected environment to win over file, got %d", cfg.Workers)
	}
	if cfg.Retention != 48*time.Hour {
		t.Fatalf("expected retention from file, got %v", cfg.Retention)
	}
	if cfg.Logging.Level != "warn" || cfg.Logging.Path != "/var/log/replayvault.log" {
		t.Fatalf("unexpected logging config %+v", cfg.Logging)
	}
	if cfg.Logging.MaxSizeMB != DefaultLogMaxSizeMB {
		t.Fatalf("unset keys must keep defaults, got %d", cfg.Logging.MaxSizeMB)
	}
}

func TestLoadFromRejectsBadTOML(t *testing.T) {
	clearEnv(t)
	cases := map[string]string{
		"syntax":      "[catalog\nworkers = 2",
		"unknown key": "[catalog]\nthreads = 2",
		"bad workers": "[catalog]\nworkers = -1",
		"bad period":  "[catalog]\nretention = \"soon\"",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadFrom(writeTOML(t, body)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadFromMissingFile(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("missing file must not fail: %v", err)
	}
	if cfg.Source != "" {
		t.Fatalf("unexpected source %q", cfg.Source)
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("REPLAYVAULT_TEST_DOTENV=loaded\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("REPLAYVAULT_TEST_DOTENV", "")
	os.Unsetenv("REPLAYVAULT_TEST_DOTENV")

	used, ok := LoadDotEnv(filepath.Join(dir, "missing.env"), envFile)
	if !ok || used != envFile {
		t.Fatalf("expected %s to be loaded, got %q ok=%v", envFile, used, ok)
	}
	if got := os.Getenv("REPLAYVAULT_TEST_DOTENV"); got != "loaded" {
		t.Fatalf("expected variable from .env, got %q", got)
	}
}
