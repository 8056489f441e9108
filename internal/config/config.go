// Package config reads runtime configuration from the environment. Every
// value has a default so a bare checkout runs against local services; the
// processor credentials are the only hard requirement.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LoadEnv merges a .env file into the process environment when one exists.
// Missing files are normal outside local development.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
}

// GetEnv returns the named variable, or defaultVal when it is unset or
// empty.
func GetEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// GetIntEnv parses the named variable as an int. Unset or unparseable
// values fall back to defaultVal rather than failing startup.
func GetIntEnv(key string, defaultVal int) int {
	val, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		slog.Warn("ignoring non-numeric environment value", "key", key, "value", val)
		return defaultVal
	}
	return i
}

// GetSecondsEnv reads the named variable as a whole number of seconds and
// returns it as a duration.
func GetSecondsEnv(key string, defaultSec int) time.Duration {
	return time.Duration(GetIntEnv(key, defaultSec)) * time.Second
}

// IsProduction reports whether ENV selects production behavior (secure
// cookies, no debug surfaces).
func IsProduction() bool {
	return GetEnv("ENV", "development") == "production"
}
