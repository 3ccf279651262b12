// Package config loads the engine's environment-variable boundary. Parsing
// lives here, not in the engine: the engine accepts an explicit Config
// struct so tests can construct disjoint instances without touching the
// process environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"dario.cat/mergo"
)

// SummarizerBackend selects which LLM provider backs the summarization
// capability (C2).
type SummarizerBackend string

const (
	BackendOpenRouter SummarizerBackend = "openrouter"
	BackendAnthropic  SummarizerBackend = "anthropic"
)

// Config is the full set of recognized environment options. Every field
// here is read from one environment variable by Load.
type Config struct {
	DBPath    string
	LogLevel  string

	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	AnthropicAPIKey   string
	SummarizerBackend SummarizerBackend

	DefaultMaxResults     int
	TinyContentThreshold  int
	SmallContentThreshold int

	EnableAutoBackup     bool
	BackupIntervalHours  int
	BackupRetentionCount int
	BackupPath           string
	BackupScanInterval   time.Duration
}

// Default returns the documented default configuration. Load merges the
// environment on top of this using mergo, so any field left unset in the
// environment falls back to its default here.
func Default() Config {
	return Config{
		DBPath:                "./memory_db",
		LogLevel:              "info",
		OpenRouterBaseURL:     "https://api.openrouter.ai/v1",
		SummarizerBackend:     BackendOpenRouter,
		DefaultMaxResults:     5,
		TinyContentThreshold:  500,
		SmallContentThreshold: 2000,
		EnableAutoBackup:      true,
		BackupIntervalHours:   24,
		BackupRetentionCount:  10,
		BackupPath:            "./backups",
		BackupScanInterval:    time.Hour,
	}
}

// Load reads the process environment into a Config, merged over Default().
func Load() (Config, error) {
	fromEnv := Config{
		DBPath:                getEnv("DB_PATH", ""),
		LogLevel:              getEnv("LOG_LEVEL", ""),
		OpenRouterAPIKey:      getEnv("OPENROUTER_API_KEY", ""),
		OpenRouterBaseURL:     getEnv("OPENROUTER_ENDPOINT", ""),
		AnthropicAPIKey:       getEnv("ANTHROPIC_API_KEY", ""),
		SummarizerBackend:     SummarizerBackend(getEnv("SUMMARIZER_BACKEND", "")),
		DefaultMaxResults:     getEnvInt("DEFAULT_MAX_RESULTS", 0),
		TinyContentThreshold:  getEnvInt("TINY_CONTENT_THRESHOLD", 0),
		SmallContentThreshold: getEnvInt("SMALL_CONTENT_THRESHOLD", 0),
		BackupIntervalHours:   getEnvInt("BACKUP_INTERVAL_HOURS", 0),
		BackupRetentionCount:  getEnvInt("BACKUP_RETENTION_COUNT", 0),
		BackupPath:            getEnv("BACKUP_PATH", ""),
		BackupScanInterval:    getEnvDuration("BACKUP_SCAN_INTERVAL", 0),
	}
	autoBackupSet := false
	autoBackupValue := false
	if v, ok := os.LookupEnv("ENABLE_AUTO_BACKUP"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid ENABLE_AUTO_BACKUP value %q: %w", v, err)
		}
		autoBackupSet, autoBackupValue = true, b
	}

	// mergo.Merge fills fromEnv's zero-valued fields from Default() without
	// disturbing anything the environment already set — the inverse of the
	// override merge the teacher's config.go uses for layering a user file
	// on top of built-in defaults, but the same mechanism. EnableAutoBackup
	// is excluded: its Go zero value (false) is a legitimate explicit
	// setting, not "unset", so it is applied separately below.
	defaults := Default()
	defaults.EnableAutoBackup = fromEnv.EnableAutoBackup
	if err := mergo.Merge(&fromEnv, defaults); err != nil {
		return Config{}, fmt.Errorf("failed to merge config: %w", err)
	}

	if autoBackupSet {
		fromEnv.EnableAutoBackup = autoBackupValue
	} else {
		fromEnv.EnableAutoBackup = Default().EnableAutoBackup
	}

	return fromEnv, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
