package server

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/elskow/erlbuild/internal/config"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTesting     = "testing"
)

// ConfigPathEnv points at a directory holding config.toml.
const ConfigPathEnv = "ERLBUILD_CONFIG_DIR"

func LoadConfig() (*config.AppConfig, error) {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = EnvDevelopment
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	if dir := os.Getenv(ConfigPathEnv); dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath("./config/server")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config config.AppConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Load environment-specific configurations
	if envSettings := v.GetStringMap(fmt.Sprintf("grpc.%s", env)); len(envSettings) > 0 {
		if err := v.UnmarshalKey(fmt.Sprintf("grpc.%s", env), &config.GRPC); err != nil {
			return nil, fmt.Errorf("error unmarshaling env config: %w", err)
		}
	}

	return &config, nil
}

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() (*config.AppConfig, error) {
	v := viper.New()
	setDefaults(v)

	var config config.AppConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling default config: %w", err)
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", "9300")
	v.SetDefault("grpc.max_receive_message_size", 4<<20)
	v.SetDefault("grpc.max_send_message_size", 4<<20)
	v.SetDefault("http.address", "127.0.0.1:9301")
	v.SetDefault("auth.token_expiration", time.Hour)
	v.SetDefault("markers.store", "memory")
	v.SetDefault("markers.path", "erlbuild-markers.db")
	v.SetDefault("events.subject", "erlbuild.passes")
	v.SetDefault("backend.kind", "grpc")
	v.SetDefault("backend.subject", "erlbuild")
	v.SetDefault("backend.discovery.kind", "static")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
}
