package main

import (
	"errors"
	"os"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/elskow/erlbuild/internal/config"
	"github.com/elskow/erlbuild/internal/server"
)

// CLI definition & global flags.
type CLI struct {
	ConfigDir string `short:"c" name:"config-dir" help:"Directory holding config.toml" env:"ERLBUILD_CONFIG_DIR"`
	Env       string `help:"Environment (development, production, testing)" default:"development" env:"APP_ENV"`
	Verbose   bool   `short:"v" help:"Show debug logs"`

	Build   BuildCmd   `cmd:"" help:"Build a project incrementally or from scratch"`
	Clean   CleanCmd   `cmd:"" help:"Remove derived artifacts and diagnostics"`
	Watch   WatchCmd   `cmd:"" help:"Rebuild a project whenever its files change"`
	Token   TokenCmd   `cmd:"" help:"Issue a daemon token or hash a client secret"`
	Migrate MigrateCmd `cmd:"" help:"Manage the marker store schema"`
	Node    NodeCmd    `cmd:"" help:"Serve a docker compile backend over gRPC"`
}

// Global is shared by every command.
type Global struct {
	Logger *zap.Logger
	Config *config.AppConfig
}

func newGlobal(cli *CLI) (*Global, error) {
	if cli.ConfigDir != "" {
		os.Setenv(server.ConfigPathEnv, cli.ConfigDir)
	}
	os.Setenv("APP_ENV", cli.Env)

	logger, err := server.NewLogger(cli.Env)
	if err != nil {
		return nil, err
	}
	if !cli.Verbose {
		logger = logger.WithOptions(zap.IncreaseLevel(zap.InfoLevel))
	}

	cfg, err := server.LoadConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		logger.Debug("no config file found, using defaults")
		if cfg, err = server.DefaultConfig(); err != nil {
			return nil, err
		}
	}

	return &Global{Logger: logger, Config: cfg}, nil
}
