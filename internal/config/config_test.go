package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "http://192.168.1.125:3000", cfg.API.DefaultURL)
	assert.Equal(t, "http://localhost:3000", cfg.API.LoopbackURL)
	assert.Equal(t, 5*time.Second, cfg.Probe.Timeout)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, LogsRemote, cfg.Logs.Mode)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, cfg.API.DefaultURL, cfg.InitialBaseURL())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("BRICKSYNC_SERVER_PORT", "9000")
	t.Setenv("BRICKSYNC_STORAGE_DRIVER", "memory")
	t.Setenv("BRICKSYNC_PROBE_TIMEOUT", "2s")
	t.Setenv("BRICKSYNC_API_BASE_URL", "http://10.0.0.5:3000")
	t.Setenv("BRICKSYNC_LOGS_MODE", "local")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, 2*time.Second, cfg.Probe.Timeout)
	assert.Equal(t, LogsLocal, cfg.Logs.Mode)
	assert.Equal(t, "http://10.0.0.5:3000", cfg.InitialBaseURL())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bricksync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 8090
storage:
  driver: redis
  redis_addr: cache:6379
  redis_db: 2
logs:
  max_entries: 50
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, DriverRedis, cfg.Storage.Driver)
	assert.Equal(t, "cache:6379", cfg.Storage.RedisAddr)
	assert.Equal(t, 2, cfg.Storage.RedisDB)
	assert.Equal(t, 50, cfg.Logs.MaxEntries)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Setenv("BRICKSYNC_STORAGE_DRIVER", "mongo")
	t.Setenv("BRICKSYNC_API_DEFAULT_URL", "192.168.1.125:3000")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `storage.driver "mongo" unknown`)
	assert.Contains(t, err.Error(), "api.default_url")
}
