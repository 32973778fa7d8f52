package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/elskow/erlbuild/internal/migration"
)

// MigrateCmd implements the 'migrate' command.
type MigrateCmd struct {
	Command string `arg:"" optional:"" help:"up, down, status, version or reset" enum:"up,down,status,version,reset" default:"up"`
}

func (c *MigrateCmd) Run(g *Global) error {
	migrator, err := migration.NewMigrator(&g.Config.Database)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer migrator.Close()

	switch c.Command {
	case "up":
		if err := migrator.Up(); err != nil {
			return err
		}
		g.Logger.Info("successfully ran migrations")
	case "down":
		if err := migrator.Down(); err != nil {
			return err
		}
		g.Logger.Info("successfully rolled back migrations")
	case "status":
		return migrator.Status()
	case "version":
		version, err := migrator.Version()
		if err != nil {
			return fmt.Errorf("failed to get migration version: %w", err)
		}
		g.Logger.Info("current migration version", zap.Int64("version", version))
	case "reset":
		if err := migrator.Reset(); err != nil {
			return err
		}
		g.Logger.Info("successfully reset migrations")
	}
	return nil
}
