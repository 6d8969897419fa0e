package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("PRONIA_SERVER_PORT", "9090")
	t.Setenv("PRONIA_FEED_POLL_INTERVAL", "1s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, time.Second, cfg.Feed.PollInterval)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 10*time.Minute, cfg.Redis.CacheTTL)
	assert.Equal(t, 4, cfg.Relation.Workers)
}

func TestValidate(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{Driver: "mysql"}}
	assert.Error(t, cfg.Validate())

	cfg = &Config{Server: ServerConfig{Mode: "release"}, Database: DatabaseConfig{Driver: "postgres"}, JWT: JWTConfig{Secret: "dev-secret-change-me"}}
	assert.Error(t, cfg.Validate())

	cfg.JWT.Secret = "s3cr3t"
	assert.NoError(t, cfg.Validate())
}
