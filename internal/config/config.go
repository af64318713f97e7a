// Package config loads process configuration from the environment, in the
// shape of the teacher's internal/infrastructure/config/config.go.
package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port int

	LogLevel string

	DatabaseDSN string

	// KernelBinPath is the path to the cmd/kernel executable the
	// Coordinator launches via os/exec (SPEC_FULL §4.4).
	KernelBinPath string

	// AutoRunDebounce is the reactive auto-run delay (SPEC_FULL §4.5,
	// "~1.5s after the last edit").
	AutoRunDebounce time.Duration
}

func Load() *Config {
	return &Config{
		Port:            getEnvInt("NOTEBOOK_PORT", 8080),
		LogLevel:        getEnv("NOTEBOOK_LOG_LEVEL", "info"),
		DatabaseDSN:     getEnv("NOTEBOOK_DATABASE_DSN", ""),
		KernelBinPath:   getEnv("NOTEBOOK_KERNEL_BIN", "./kernel"),
		AutoRunDebounce: getEnvDuration("NOTEBOOK_AUTORUN_DEBOUNCE", 1500*time.Millisecond),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
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
