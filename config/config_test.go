package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := LoadFrom(viper.New(), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "./rpglife.db", cfg.Database.Path)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 3, cfg.Game.RequiredDailies)
	assert.Equal(t, "UTC", cfg.Game.DefaultTimezone)
}

func TestFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
server:
  port: 9000
  allowed_origins: ["https://rpg.example.com"]
log:
  level: DEBUG
game:
  required_dailies: 5
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.local.yaml"), []byte(`
game:
  default_timezone: Europe/Moscow
`), 0o644))
	t.Setenv("RPGLIFE_DATABASE_PATH", "/tmp/other.db")

	cfg, err := LoadFrom(viper.New(), dir)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, []string{"https://rpg.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 5, cfg.Game.RequiredDailies)
	assert.Equal(t, "Europe/Moscow", cfg.Game.DefaultTimezone)
	assert.Equal(t, "/tmp/other.db", cfg.Database.Path)
}

func TestValidationRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
auth:
  jwt_secret: short
`), 0o644))

	_, err := LoadFrom(viper.New(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWTSecret")
}
