package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/parley/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "parley.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, config.DefaultCatalogDir, cfg.CatalogDir)
	assert.Equal(t, config.DefaultStoreBackend, cfg.Store.Backend)
	assert.Equal(t, config.DefaultStatePath, cfg.Store.Path)
	assert.Equal(t, config.DefaultRedisAddr, cfg.Store.Redis.Addr)
	assert.Equal(t, config.DefaultGatewayTimeout, cfg.Gateway.Timeout)
	assert.Equal(t, config.DefaultListenAddr, cfg.Server.ListenAddr)
	assert.Equal(t, config.DefaultWhisperTimeout, cfg.Whisper.Timeout)
	assert.Equal(t, config.DefaultMatchThreshold, cfg.MatchThreshold)
	assert.Equal(t, config.DefaultRetryLimit, cfg.RetryLimit)
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
	assert.Empty(t, cfg.Whisper.Endpoint, "voice is disabled by default")
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
catalog_dir: my-commands
store:
  backend: redis
  redis:
    addr: redis.internal:6379
    db: 2
  ttl: 24h
auth:
  login_url: http://backend.test/api/validate_credentials
gateway:
  timeout: 15s
match_threshold: 0.9
retry_limit: 5
log_level: debug
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "my-commands", cfg.CatalogDir)
	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, "redis.internal:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, 2, cfg.Store.Redis.DB)
	assert.Equal(t, 24*time.Hour, cfg.Store.TTL)
	assert.Equal(t, "http://backend.test/api/validate_credentials", cfg.Auth.LoginURL)
	assert.Equal(t, 15*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, 0.9, cfg.MatchThreshold)
	assert.Equal(t, 5, cfg.RetryLimit)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
store:
  backend: file
log_level: info
`)
	t.Setenv("PARLEY_STORE_BACKEND", "memory")
	t.Setenv("PARLEY_LOG_LEVEL", "warn")
	t.Setenv("PARLEY_AUTH_LOGIN_URL", "http://other.test/login")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "http://other.test/login", cfg.Auth.LoginURL)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := writeConfig(t, "store: [not a mapping")
	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestLoad_Validation(t *testing.T) {
	t.Run("unknown backend", func(t *testing.T) {
		_, err := config.Load(writeConfig(t, "store:\n  backend: etcd\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown store backend "etcd"`)
	})

	t.Run("threshold out of range", func(t *testing.T) {
		_, err := config.Load(writeConfig(t, "match_threshold: 1.5\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "match_threshold")
	})

	t.Run("retry limit below one", func(t *testing.T) {
		_, err := config.Load(writeConfig(t, "retry_limit: -1\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "retry_limit")
	})
}
