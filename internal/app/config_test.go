package app

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "dev-session")
	t.Setenv("CSRF_SECRET", "dev-csrf")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, 12*time.Hour, cfg.SessionTTL)
	require.Equal(t, "S/", cfg.CurrencySymbol)
	require.Equal(t, ":9091", cfg.WorkerMetricsAddr)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigRequiresSecrets(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("CSRF_SECRET", "")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestValidateProductionSecrets(t *testing.T) {
	cfg := Config{
		AppEnv:            "production",
		SessionSecret:     "short",
		CSRFSecret:        "short",
		SessionTTL:        time.Hour,
		WorkerConcurrency: 1,
		LogFormat:         "json",
	}
	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "at least 32")
	require.Contains(t, err.Error(), "must differ")

	cfg.SessionSecret = strings.Repeat("s", 40)
	cfg.CSRFSecret = strings.Repeat("c", 40)
	require.NoError(t, cfg.Validate())

	cfg.LogFormat = "xml"
	require.ErrorContains(t, cfg.Validate(), "LOG_FORMAT")
}
