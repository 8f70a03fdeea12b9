package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port             string
	DBPath           string
	MigrationsDir    string
	JWTSecret        string
	TokenTTL         time.Duration
	CORSOrigins      []string
	LogDir           string
	LogLevel         string
	TelemetryEnabled bool
	MetricsInterval  time.Duration
	WakePollInterval time.Duration
	SchedulerEnabled bool
}

func Load() Config {
	return Config{
		Port:             getEnv("PORT", "7317"),
		DBPath:           getEnv("DB_PATH", "./data/pulse.db"),
		MigrationsDir:    getEnv("MIGRATIONS_DIR", "./migrations"),
		JWTSecret:        getEnv("JWT_SECRET", "change-this-secret"),
		TokenTTL:         time.Duration(getEnvInt("TOKEN_TTL_HOURS", 24*30)) * time.Hour,
		CORSOrigins:      getEnvList("CORS_ORIGINS", []string{"http://localhost:5173", "http://127.0.0.1:5173"}),
		LogDir:           getEnv("LOG_DIR", "./logs"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		TelemetryEnabled: getEnvBool("TELEMETRY_ENABLED", true),
		MetricsInterval:  time.Duration(getEnvInt("METRICS_INTERVAL_SECONDS", 60)) * time.Second,
		WakePollInterval: time.Duration(getEnvInt("WAKE_POLL_SECONDS", 15)) * time.Second,
		SchedulerEnabled: getEnvBool("SCHEDULER_ENABLED", true),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	if len(items) == 0 {
		return fallback
	}
	return items
}
