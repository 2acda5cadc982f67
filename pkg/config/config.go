// Package config provides minimal environment-based configuration loading.
// This is deliberately not a general config-file framework (config file
// loading is a peripheral, out-of-scope collaborator per the system
// design) — it reads a handful of named environment variables, optionally
// pre-populated from a .env file for local development.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the environment-derived settings the two daemons need.
type Config struct {
	// Workspace (cmd/osmiumd)
	WorkspaceDir string
	Workers      int
	RunTimeout   int // seconds

	// Registry server (cmd/registryd)
	ListenAddr  string
	PostgresDSN string
	RedisAddr   string

	LogLevel  string
	LogFormat string
}

// Load reads configuration from the environment, first merging in the
// contents of a .env file at envPath if present (missing file is not an
// error — this mirrors godotenv.Load's own semantics for an optional file).
func Load(envPath string) *Config {
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	return &Config{
		WorkspaceDir: getenv("OSMIUM_WORKSPACE", "./workspace"),
		Workers:      getenvInt("OSMIUM_WORKERS", 4),
		RunTimeout:   getenvInt("OSMIUM_RUN_TIMEOUT", 30),

		ListenAddr:  getenv("OSMIUM_REGISTRY_ADDR", ":8080"),
		PostgresDSN: getenv("OSMIUM_REGISTRY_DSN", ""),
		RedisAddr:   getenv("OSMIUM_REGISTRY_REDIS", ""),

		LogLevel:  getenv("OSMIUM_LOG_LEVEL", "info"),
		LogFormat: getenv("OSMIUM_LOG_FORMAT", "text"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
