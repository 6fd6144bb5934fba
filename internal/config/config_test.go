package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/network-lumen/gateway-agent/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_PATH", "")
	cfg, err := config.Load()
	// DB_PATH defaults to "gateway-agent.db". viper treats an empty env var
	// as unset, so the default normally applies; if Load still rejects the
	// path, the error names DB_PATH.
	if err != nil {
		require.Contains(t, err.Error(), "DB_PATH")
		return
	}
	require.NotNil(t, cfg)
}

func TestLoadResolvesEnvOverrides(t *testing.T) {
	t.Setenv("DB_PATH", "/tmp/custom.db")
	t.Setenv("PORT", "9999")
	t.Setenv("CRAWL_CONCURRENCY", "7")
	t.Setenv("BUSY_TIMEOUT_S", "600")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, "/tmp/custom.db", cfg.DBPath)
	require.Equal(t, 9999, cfg.Port)
	require.Equal(t, 7, cfg.CrawlConcurrency)
	// busy timeout is clamped to [0, 60]s regardless of the env override.
	require.Equal(t, 60*time.Second, cfg.BusyTimeout)
}

func TestLoadDefaultIntervals(t *testing.T) {
	t.Setenv("DB_PATH", "/tmp/default.db")
	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, 1800*time.Second, cfg.PinRefresh)
	require.Equal(t, 300*time.Second, cfg.TypeRefresh)
	require.Equal(t, 600*time.Second, cfg.DirRefresh)
}
