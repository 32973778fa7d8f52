package server

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
[server]
host = "0.0.0.0"
port = "9500"

[grpc]
enable_reflection = false
max_receive_message_size = 1024

[grpc.testing]
enable_reflection = true
max_receive_message_size = 2048

[auth]
jwt_secret = "k"
token_expiration = "30m"

[backend]
kind = "grpc"

[[backend.endpoints]]
address = "node-a:9400"
version = "26.2"

[build]
projects = ["/srv/app"]
`

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(testConfig), 0644))
	t.Setenv(ConfigPathEnv, dir)
	t.Setenv("APP_ENV", EnvTesting)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "9500", cfg.Server.Port)
	assert.True(t, cfg.GRPC.EnableReflection)
	assert.Equal(t, 2048, cfg.GRPC.MaxReceiveMessageSize)
	assert.Equal(t, 30*time.Minute, cfg.Auth.TokenExpiration)
	require.Len(t, cfg.Backend.Endpoints, 1)
	assert.Equal(t, "26.2", cfg.Backend.Endpoints[0].Version)
	assert.Equal(t, []string{"/srv/app"}, cfg.Build.Projects)
	assert.Equal(t, "memory", cfg.Markers.Store)
	assert.Equal(t, "127.0.0.1:9301", cfg.HTTP.Address)
}

func TestLoadConfig_Missing(t *testing.T) {
	t.Setenv(ConfigPathEnv, t.TempDir())
	t.Chdir(t.TempDir())

	_, err := LoadConfig()
	var notFound viper.ConfigFileNotFoundError
	assert.True(t, errors.As(err, &notFound))

	cfg, err := DefaultConfig()
	require.NoError(t, err)
	assert.Equal(t, "9300", cfg.Server.Port)
	assert.Equal(t, time.Hour, cfg.Auth.TokenExpiration)
}

func TestNewLogger(t *testing.T) {
	for _, env := range []string{EnvDevelopment, EnvProduction, EnvTesting} {
		logger, err := NewLogger(env)
		require.NoError(t, err)
		assert.NotNil(t, logger)
	}
}
