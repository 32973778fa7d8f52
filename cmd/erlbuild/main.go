package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"
)

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("erlbuild"),
		kong.Description("Incremental builds for Erlang/OTP projects."),
		kong.UsageOnError(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, err := newGlobal(&cli)
	kctx.FatalIfErrorf(err)
	defer func() { _ = g.Logger.Sync() }()

	kctx.BindTo(ctx, (*context.Context)(nil))
	if err := kctx.Run(g); err != nil {
		g.Logger.Error("command failed", zap.String("command", kctx.Command()), zap.Error(err))
		_ = g.Logger.Sync()
		stop()
		os.Exit(1)
	}
}
