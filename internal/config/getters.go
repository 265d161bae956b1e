// Package config provides functions for reading userhub settings from the environment
// and shared helpers for integration tests.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// GetEnvStr returns the value of the first non-empty environment variable in keys,
// or defaultValue when none is set.
//
// Several keys let a canonical USERHUB_* name coexist with a legacy one:
//
//	host := GetEnvStr("localhost", "USERHUB_DB_HOST", "DB_HOST")
func GetEnvStr(defaultValue string, keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}

	return defaultValue
}

// GetEnvInt returns the first parseable int among keys, or defaultValue.
//
// Example:
//
//	port := GetEnvInt(3000, "USERHUB_SERVER_PORT", "PORT")
func GetEnvInt(defaultValue int, keys ...string) int {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			if intValue, err := strconv.Atoi(value); err == nil {
				return intValue
			}
		}
	}

	return defaultValue
}

// GetEnvInt64 returns the first parseable int64 among keys, or defaultValue.
func GetEnvInt64(defaultValue int64, keys ...string) int64 {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			if int64Value, err := strconv.ParseInt(value, 10, 64); err == nil {
				return int64Value
			}
		}
	}

	return defaultValue
}

// GetEnvBool reads a boolean flag. "true", "1", "yes" and "sim" are true;
// "false", "0", "no" and "nao" are false (case-insensitive). Anything else falls
// through to the next key and finally to defaultValue.
func GetEnvBool(defaultValue bool, keys ...string) bool {
	for _, key := range keys {
		if value, ok := ParseBool(os.Getenv(key)); ok {
			return value
		}
	}

	return defaultValue
}

// ParseBool interprets the truthy/falsy spellings accepted by GetEnvBool.
// The second return value is false when raw is not a recognized spelling.
func ParseBool(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "sim":
		return true, true
	case "false", "0", "no", "nao":
		return false, true
	}

	return false, false
}

// GetEnvDuration returns the first parseable time.Duration among keys, or defaultValue.
//
// Example:
//
//	timeout := GetEnvDuration(30*time.Second, "USERHUB_SERVER_READ_TIMEOUT")
func GetEnvDuration(defaultValue time.Duration, keys ...string) time.Duration {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			if duration, err := time.ParseDuration(value); err == nil {
				return duration
			}
		}
	}

	return defaultValue
}

// GetEnvLogLevel maps debug|info|warn|warning|error to a slog.Level.
func GetEnvLogLevel(defaultValue slog.Level, keys ...string) slog.Level {
	for _, key := range keys {
		switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
		case "debug":
			return slog.LevelDebug
		case "info":
			return slog.LevelInfo
		case "warn", "warning":
			return slog.LevelWarn
		case "error":
			return slog.LevelError
		}
	}

	return defaultValue
}

// ParseCommaSeparatedList splits input on commas, trims each part and drops empties.
func ParseCommaSeparatedList(input string) []string {
	if input == "" {
		return []string{}
	}

	parts := strings.Split(input, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
