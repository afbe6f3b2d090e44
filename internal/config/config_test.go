package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "PREFS_BACKEND", "PREFS_PATH", "ETA_GATEWAY_URL", "ETA_TIMEOUT", "ETA_RETRY_ATTEMPTS", "ETA_RETRY_DELAY", "LOG_LEVEL", "LOG_DEV"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, BackendFile, cfg.Storage.Backend)
	assert.Equal(t, "data/favorites.json", cfg.Storage.Path)
	assert.False(t, cfg.ETA.Enabled())
	assert.Equal(t, 30*time.Second, cfg.ETA.Timeout)
	assert.Equal(t, uint(3), cfg.ETA.RetryAttempts)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadServerConfigAcceptsHostPort(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:9000")

	server, err := loadServerConfig()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", server.Addr)
}

func TestLoadServerConfigRejectsSpaces(t *testing.T) {
	t.Setenv("PORT", "80 80")

	_, err := loadServerConfig()
	require.ErrorContains(t, err, "invalid PORT value")
}

func TestLoadStorageConfigRejectsUnknownBackend(t *testing.T) {
	t.Setenv("PREFS_BACKEND", "redis")

	_, err := loadStorageConfig()
	require.ErrorContains(t, err, "invalid PREFS_BACKEND value")
}

func TestLoadStorageConfigMemoryNeedsNoPath(t *testing.T) {
	t.Setenv("PREFS_BACKEND", " Memory ")
	t.Setenv("PREFS_PATH", "")

	cfg, err := loadStorageConfig()
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Backend)
}

func TestLoadETAConfigTrimsGatewayURL(t *testing.T) {
	t.Setenv("ETA_GATEWAY_URL", "http://gateway.local/ ")
	t.Setenv("ETA_RETRY_ATTEMPTS", "0")

	cfg, err := loadETAConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://gateway.local", cfg.GatewayURL)
	assert.Equal(t, uint(1), cfg.RetryAttempts)
	assert.True(t, cfg.Enabled())
}

func TestLoadETAConfigRejectsInvalidDuration(t *testing.T) {
	t.Setenv("ETA_TIMEOUT", "soon")

	_, err := loadETAConfig()
	require.Error(t, err)
}
