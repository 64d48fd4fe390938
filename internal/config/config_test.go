package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bot-server.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  name: "test"
database:
  dsn: "postgres://localhost/test"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, 4000, cfg.API.Port)
	require.Equal(t, 5*time.Minute, cfg.Cache.TenantTTL)
	require.Equal(t, 15*time.Second, cfg.Gateway.SendTimeout)
	require.Equal(t, 15*time.Minute, cfg.JWT.AccessTokenTTL)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
database:
  dsn: "postgres://localhost/from-file"
gateway:
  url: "http://file-gateway"
`)

	t.Setenv("DATABASE_URL", "postgres://localhost/from-env")
	t.Setenv("GATEWAY_URL", "http://env-gateway")
	t.Setenv("JWT_SECRET", "env-secret")

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "postgres://localhost/from-env", cfg.Database.DSN)
	require.Equal(t, "http://env-gateway", cfg.Gateway.URL)
	require.Equal(t, "env-secret", cfg.JWT.Secret)
}

func TestLoadPoolSettings(t *testing.T) {
	path := writeConfig(t, `
database:
  dsn: "postgres://localhost/test"
  max_open_conns: 25
  max_idle_conns: 5
  conn_max_lifetime: 30m
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 25, cfg.Database.MaxOpenConns)
	require.Equal(t, 5, cfg.Database.MaxIdleConns)
	require.Equal(t, 30*time.Minute, cfg.Database.ConnMaxLifetime)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
}

func TestLoadMemoryDriver(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: "memory"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "memory", cfg.Database.Driver)
}
