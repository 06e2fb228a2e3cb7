package utils

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// lookupEnv returns the parsed value of key, or defaultVal when the variable
// is unset, blank, or fails to parse.
func lookupEnv[T any](key string, defaultVal T, parse func(string) (T, error)) T {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return defaultVal
	}
	result, err := parse(strings.TrimSpace(value))
	if err != nil {
		return defaultVal
	}
	return result
}

// GetEnvAsInt retrieves an environment variable and converts it to an integer
func GetEnvAsInt(key string, defaultVal int) int {
	return lookupEnv(key, defaultVal, strconv.Atoi)
}

// GetEnvAsUint64 retrieves an environment variable and converts it to uint64
func GetEnvAsUint64(key string, defaultVal uint64) uint64 {
	return lookupEnv(key, defaultVal, func(s string) (uint64, error) {
		return strconv.ParseUint(s, 10, 64)
	})
}

// GetEnvAsDuration accepts Go duration syntax ("90s") or a bare number of seconds.
func GetEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	return lookupEnv(key, defaultVal, func(s string) (time.Duration, error) {
		if secs, err := strconv.Atoi(s); err == nil {
			return time.Duration(secs) * time.Second, nil
		}
		return time.ParseDuration(s)
	})
}

func GetEnvAsBool(key string, defaultVal bool) bool {
	return lookupEnv(key, defaultVal, strconv.ParseBool)
}

func GetEnvAsString(key string, defaultVal string) string {
	return lookupEnv(key, defaultVal, func(s string) (string, error) { return s, nil })
}
