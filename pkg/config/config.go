// Package config holds the environment-driven settings for the
// phishguard service. Every setting has a sensible default so a bare
// `phishguard serve` works out of the box; reputation lookups stay off
// until a provider credential is supplied.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds global settings. All settings can be configured via
// environment variables or programmatically.
type Config struct {
	// === Core Settings ===
	ListenAddr   string // HTTP listen address (default ":8080")
	RulePackPath string // Path to a YAML rule pack; empty = embedded default pack
	LogLevel     string // zerolog level: trace/debug/info/warn/error (default "info")

	// === Engine Tuning ===
	MaxEvidencePerRule int // Evidence cap per rule hit (default 20)

	// === Reputation Provider ===
	// Lookups are disabled unless VTAPIKey is set.
	VTAPIKey      string        // VirusTotal API key (env: PHISHGUARD_VT_API_KEY)
	VTBaseURL     string        // Override the provider base URL (tests, proxies)
	VTTimeout     time.Duration // Per-lookup timeout (default 3.5s)
	VTMaxInFlight int           // Concurrent outbound lookups (default 8)
	CacheTTL      time.Duration // Reputation cache TTL (default 1h)

	// === Cache Backend ===
	// When RedisAddr is set the reputation cache is shared via Redis;
	// otherwise each process keeps an in-memory cache.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// NewDefaultConfig creates a Config from the environment with defaults
// applied.
func NewDefaultConfig() *Config {
	return &Config{
		ListenAddr:   GetEnv("PHISHGUARD_LISTEN_ADDR", ":8080"),
		RulePackPath: GetEnv("PHISHGUARD_RULE_PACK", ""),
		LogLevel:     GetEnv("PHISHGUARD_LOG_LEVEL", "info"),

		MaxEvidencePerRule: GetEnvInt("PHISHGUARD_MAX_EVIDENCE", 20),

		VTAPIKey:      GetEnv("PHISHGUARD_VT_API_KEY", os.Getenv("VT_API_KEY")),
		VTBaseURL:     GetEnv("PHISHGUARD_VT_BASE_URL", ""),
		VTTimeout:     time.Duration(GetEnvInt("PHISHGUARD_VT_TIMEOUT_MS", 3500)) * time.Millisecond,
		VTMaxInFlight: GetEnvInt("PHISHGUARD_VT_MAX_INFLIGHT", 8),
		CacheTTL:      time.Duration(GetEnvInt("PHISHGUARD_CACHE_TTL_SECONDS", 3600)) * time.Second,

		RedisAddr:     GetEnv("PHISHGUARD_REDIS_ADDR", ""),
		RedisPassword: GetEnv("PHISHGUARD_REDIS_PASSWORD", ""),
		RedisDB:       GetEnvInt("PHISHGUARD_REDIS_DB", 0),
	}
}

// ReputationEnabled reports whether a provider credential is present.
func (c *Config) ReputationEnabled() bool { return c.VTAPIKey != "" }

// Validate checks the configuration for values the service cannot run
// with. Call at startup before wiring anything.
func (c *Config) Validate() error {
	var problems []string

	if c.ListenAddr == "" {
		problems = append(problems, "listen address must not be empty")
	}
	if c.MaxEvidencePerRule <= 0 {
		problems = append(problems, "PHISHGUARD_MAX_EVIDENCE must be positive")
	}
	if c.VTTimeout <= 0 {
		problems = append(problems, "PHISHGUARD_VT_TIMEOUT_MS must be positive")
	}
	if c.VTMaxInFlight <= 0 {
		problems = append(problems, "PHISHGUARD_VT_MAX_INFLIGHT must be positive")
	}
	if c.CacheTTL <= 0 {
		problems = append(problems, "PHISHGUARD_CACHE_TTL_SECONDS must be positive")
	}
	switch strings.ToLower(c.LogLevel) {
	case "trace", "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("unknown log level %q", c.LogLevel))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Helper functions for environment variable parsing.

// GetEnv returns the value of an environment variable or a default value.
func GetEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvBool returns the boolean value of an environment variable or a default value.
func GetEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

// GetEnvFloat returns the float64 value of an environment variable or a default value.
func GetEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}

// GetEnvInt returns the integer value of an environment variable or a default value.
func GetEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return defaultValue
}
