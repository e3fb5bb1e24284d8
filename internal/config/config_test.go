package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, uint16(8085), cfg.HttpServerPort)
	require.Equal(t, "postgres", cfg.StoreDriver)
	require.Equal(t, 50*time.Millisecond, cfg.BatchInterval)
	require.Equal(t, 4, cfg.DurabilityShards)
	require.False(t, cfg.RedisEnabled)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("BATCH_INTERVAL", "20ms")
	t.Setenv("REDIS_ENABLED", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "sqlite", cfg.StoreDriver)
	require.Equal(t, 20*time.Millisecond, cfg.BatchInterval)
	require.True(t, cfg.RedisEnabled)
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORE_DRIVER", "mongo")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigRejectsLowPort(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HTTP_SERVER_PORT", "80")

	_, err := LoadConfig()
	require.Error(t, err)
}
