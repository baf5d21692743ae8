package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/books-catalog/cmd/api/config"
	"github.com/matryer/is"
)

var envKeys = []string{
	"PORT", "HTTP_REQUEST_TIMEOUT", "NOTIFICATIONS_ENABLED", "NOTIFICATIONS_BASE_URL",
	"NOTIFICATIONS_TIMEOUT", "LOG_LEVEL", "METRICS_ENABLED",
}

// clearEnv blanks every key for the test; t.Setenv restores the previous values.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.env")

	t.Run("uses defaults when nothing is set", func(t *testing.T) {
		is := is.New(t)
		clearEnv(t)

		cfg, err := config.Load(missing)
		is.NoErr(err)
		is.Equal(cfg.Port, 8080)
		is.Equal(cfg.RequestTimeout, 5*time.Second)
		is.Equal(cfg.NotificationsTimeout, 2*time.Second)
		is.True(!cfg.NotificationsEnabled)
		is.True(cfg.MetricsEnabled)
		is.Equal(cfg.LogLevel, "info")
	})

	t.Run("reads the environment", func(t *testing.T) {
		is := is.New(t)
		clearEnv(t)
		t.Setenv("PORT", "9090")
		t.Setenv("HTTP_REQUEST_TIMEOUT", "250ms")
		t.Setenv("NOTIFICATIONS_ENABLED", "true")
		t.Setenv("NOTIFICATIONS_BASE_URL", "https://ntfy.sh/catalog")

		cfg, err := config.Load(missing)
		is.NoErr(err)
		is.Equal(cfg.Port, 9090)
		is.Equal(cfg.RequestTimeout, 250*time.Millisecond)
		is.True(cfg.NotificationsEnabled)
		is.Equal(cfg.NotificationsBaseURL, "https://ntfy.sh/catalog")
	})

	t.Run("loads values from an env file without overriding the environment", func(t *testing.T) {
		is := is.New(t)
		clearEnv(t)
		envFile := filepath.Join(t.TempDir(), ".env")
		err := os.WriteFile(envFile, []byte("PORT=7070\nLOG_LEVEL=debug\n"), 0o600)
		is.NoErr(err)
		t.Setenv("LOG_LEVEL", "warn")

		cfg, err := config.Load(envFile)
		is.NoErr(err)
		is.Equal(cfg.Port, 7070)
		is.Equal(cfg.LogLevel, "warn")
	})

	t.Run("rejects a duration without unit", func(t *testing.T) {
		is := is.New(t)
		clearEnv(t)
		t.Setenv("HTTP_REQUEST_TIMEOUT", "5")

		_, err := config.Load(missing)
		is.True(err != nil)
	})

	t.Run("notifications need a base url", func(t *testing.T) {
		is := is.New(t)
		clearEnv(t)
		t.Setenv("NOTIFICATIONS_ENABLED", "true")

		_, err := config.Load(missing)
		is.True(err != nil)
	})
}
