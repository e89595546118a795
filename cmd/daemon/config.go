package main

import (
	"os"
	"strconv"
	"time"
)

// DaemonConfig holds daemon-specific configuration
type DaemonConfig struct {
	ConfigPath      string        // Path to charsync config YAML
	SyncInterval    time.Duration // How often to request a full sync per game (0 disables)
	SweepHour       int           // Hour of the daily retention sweep (default: 4)
	SweepMinute     int           // Minute (default: 0)
	Timezone        string        // Timezone (default: UTC)
	StateFile       string        // File to track the last sweep date
	RunOnStartup    bool          // Request a sync immediately on startup
	ServeAddr       string        // Ops HTTP listen address (empty disables)
	ShutdownTimeout time.Duration // Grace period for the ops server
}

// LoadDaemonConfig loads configuration from environment variables
func LoadDaemonConfig() *DaemonConfig {
	return &DaemonConfig{
		ConfigPath:      getEnvOrDefault("DAEMON_CONFIG_PATH", "/app/configs/default.yaml"),
		SyncInterval:    time.Duration(getEnvIntOrDefault("DAEMON_SYNC_INTERVAL_MIN", 30)) * time.Minute,
		SweepHour:       getEnvIntOrDefault("DAEMON_SWEEP_HOUR", 4),
		SweepMinute:     getEnvIntOrDefault("DAEMON_SWEEP_MINUTE", 0),
		Timezone:        getEnvOrDefault("DAEMON_TIMEZONE", "UTC"),
		StateFile:       getEnvOrDefault("DAEMON_STATE_FILE", "/app/data/.daemon-state"),
		RunOnStartup:    getEnvBoolOrDefault("DAEMON_RUN_ON_STARTUP", true),
		ServeAddr:       getEnvOrDefault("DAEMON_SERVE_ADDR", ":8080"),
		ShutdownTimeout: time.Duration(getEnvIntOrDefault("DAEMON_SHUTDOWN_TIMEOUT_SEC", 10)) * time.Second,
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
