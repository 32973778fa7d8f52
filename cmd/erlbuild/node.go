package main

import (
	"context"
	"fmt"
	"net"

	"go.uber.org/zap"

	"github.com/elskow/erlbuild/internal/api"
	"github.com/elskow/erlbuild/internal/auth"
	"github.com/elskow/erlbuild/internal/backend/docker"
	"github.com/elskow/erlbuild/internal/backend/rpc"
	"github.com/elskow/erlbuild/internal/server"
)

// NodeCmd implements the 'node' command: a compiler node other daemons reach
// through the grpc backend kind.
type NodeCmd struct {
	Listen string `help:"Listen address" default:":9400"`
}

func (c *NodeCmd) Run(ctx context.Context, g *Global) error {
	be, err := docker.New(&g.Config.Backend.Docker, g.Logger)
	if err != nil {
		return err
	}
	defer be.Close()

	if g.Config.Auth.JWTSecret == "" {
		g.Logger.Warn("auth.jwt_secret is not set, compile calls will be rejected")
	}
	srv := server.NewGRPCServer(g.Config, auth.NewAuthMiddleware(&g.Config.Auth), g.Logger)
	api.RegisterBackendServer(srv, rpc.NewServer(be, g.Logger))

	lis, err := net.Listen("tcp", c.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	go func() {
		<-ctx.Done()
		srv.GracefulStop()
	}()

	g.Logger.Info("compiler node ready",
		zap.String("address", lis.Addr().String()),
		zap.String("backend", be.Name()),
		zap.String("version", be.Version()))
	return srv.Serve(lis)
}
