package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                 int
	RequestTimeout       time.Duration
	NotificationsEnabled bool
	NotificationsBaseURL string
	NotificationsTimeout time.Duration
	LogLevel             string
	MetricsEnabled       bool
}

/* Loads .env files when present, then reads the environment. Variables already set are never overridden. */
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}

	var cfg Config
	var err error

	if cfg.Port, err = intFromEnv("PORT", 8080); err != nil {
		return Config{}, err
	}
	//These ENVs must be written with a unit suffix, like seconds
	if cfg.RequestTimeout, err = durationFromEnv("HTTP_REQUEST_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.NotificationsTimeout, err = durationFromEnv("NOTIFICATIONS_TIMEOUT", 2*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.NotificationsEnabled, err = boolFromEnv("NOTIFICATIONS_ENABLED", false); err != nil {
		return Config{}, err
	}
	if cfg.MetricsEnabled, err = boolFromEnv("METRICS_ENABLED", true); err != nil {
		return Config{}, err
	}
	cfg.NotificationsBaseURL = os.Getenv("NOTIFICATIONS_BASE_URL")
	cfg.LogLevel = getenv("LOG_LEVEL", "info")

	if cfg.NotificationsEnabled && cfg.NotificationsBaseURL == "" {
		return Config{}, fmt.Errorf("NOTIFICATIONS_BASE_URL must be set when notifications are enabled")
	}

	return cfg, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func intFromEnv(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("getting %s from env: %w", k, err)
	}
	return n, nil
}

func durationFromEnv(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("getting %s from env: %w", k, err)
	}
	return d, nil
}

func boolFromEnv(k string, def bool) (bool, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("getting %s from env: %w", k, err)
	}
	return b, nil
}
