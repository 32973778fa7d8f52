package server

import (
	"context"
	"fmt"
	"net"
	"os"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/elskow/erlbuild/internal/api"
	"github.com/elskow/erlbuild/internal/auth"
	"github.com/elskow/erlbuild/internal/buildsvc"
	"github.com/elskow/erlbuild/internal/config"
)

type Server struct {
	config         *config.AppConfig
	log            *zap.Logger
	grpcServer     *grpc.Server
	authHandler    *auth.Handler
	authMiddleware *auth.AuthMiddleware
}

type Params struct {
	fx.In

	Config         *config.AppConfig
	Logger         *zap.Logger
	AuthHandler    *auth.Handler
	AuthMiddleware *auth.AuthMiddleware
	BuildHandler   *buildsvc.Handler
}

func isProtectedEndpoint(method string) bool {
	isPublic, exists := api.PublicEndpoints[method]
	return !exists || !isPublic
}

// AuthInterceptor rejects calls to protected endpoints without a valid token.
func AuthInterceptor(m *auth.AuthMiddleware, log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if !isProtectedEndpoint(info.FullMethod) {
			return handler(ctx, req)
		}

		newCtx, err := m.AuthenticationMiddleware(ctx)
		if err != nil {
			log.Warn("authentication failed",
				zap.String("method", info.FullMethod),
				zap.Error(err))
			return nil, status.Error(codes.Unauthenticated, "authentication required")
		}

		return handler(newCtx, req)
	}
}

func NewServer(p Params) *Server {
	grpcServer := NewGRPCServer(p.Config, p.AuthMiddleware, p.Logger)

	server := &Server{
		config:         p.Config,
		log:            p.Logger,
		grpcServer:     grpcServer,
		authHandler:    p.AuthHandler,
		authMiddleware: p.AuthMiddleware,
	}

	api.RegisterAuthServer(grpcServer, p.AuthHandler)
	api.RegisterBuilderServer(grpcServer, p.BuildHandler)

	return server
}

// NewGRPCServer builds a gRPC server with authentication and the configured
// message limits. Compiler nodes use it too.
func NewGRPCServer(cfg *config.AppConfig, m *auth.AuthMiddleware, log *zap.Logger) *grpc.Server {
	opts := []grpc.ServerOption{
		grpc.UnaryInterceptor(AuthInterceptor(m, log)),
	}
	if cfg.GRPC.MaxReceiveMessageSize > 0 {
		opts = append(opts, grpc.MaxRecvMsgSize(cfg.GRPC.MaxReceiveMessageSize))
	}
	if cfg.GRPC.MaxSendMessageSize > 0 {
		opts = append(opts, grpc.MaxSendMsgSize(cfg.GRPC.MaxSendMessageSize))
	}

	grpcServer := grpc.NewServer(opts...)
	if cfg.GRPC.EnableReflection {
		reflection.Register(grpcServer)
	}
	return grpcServer
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%s", s.config.Server.Host, s.config.Server.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	return s.Serve(lis)
}

func (s *Server) Serve(lis net.Listener) error {
	s.log.Info("Starting gRPC server",
		zap.String("address", lis.Addr().String()),
		zap.Object("config", serverConfigToField(s.config)),
	)

	if err := s.grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("failed to serve: %w", err)
	}

	return nil
}

func serverConfigToField(config *config.AppConfig) zapcore.ObjectMarshaler {
	return zapcore.ObjectMarshalerFunc(func(enc zapcore.ObjectEncoder) error {
		enc.AddString("environment", os.Getenv("APP_ENV"))
		enc.AddBool("reflection_enabled", config.GRPC.EnableReflection)
		enc.AddInt("max_receive_size", config.GRPC.MaxReceiveMessageSize)
		enc.AddInt("max_send_size", config.GRPC.MaxSendMessageSize)
		enc.AddString("backend_kind", config.Backend.Kind)
		enc.AddString("marker_store", config.Markers.Store)
		return nil
	})
}

func (s *Server) Stop() {
	s.log.Info("shutting down gRPC server")
	s.grpcServer.GracefulStop()
}
