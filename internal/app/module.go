package app

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/elskow/erlbuild/internal/auth"
	"github.com/elskow/erlbuild/internal/backend/factory"
	"github.com/elskow/erlbuild/internal/builder"
	"github.com/elskow/erlbuild/internal/buildsvc"
	"github.com/elskow/erlbuild/internal/config"
	"github.com/elskow/erlbuild/internal/database"
	"github.com/elskow/erlbuild/internal/events"
	"github.com/elskow/erlbuild/internal/markers"
	"github.com/elskow/erlbuild/internal/migration"
	"github.com/elskow/erlbuild/internal/server"
)

const (
	MarkerStorePostgres = "postgres"
	MarkerStoreSQLite   = "sqlite"
)

// Module combines all application modules
func Module(cfg *config.AppConfig, logger *zap.Logger) fx.Option {
	return fx.Options(
		fx.Supply(cfg, logger),

		fx.Provide(server.NewRegistry),

		markerModule(cfg),
		auth.NewModule(),
		factory.Module(),
		builder.Module(),
		events.Module(),
		buildsvc.Module(),

		fx.Provide(server.NewServer),
		fx.Provide(server.NewHTTPServer),

		fx.Invoke(registerHooks),
	)
}

func markerModule(cfg *config.AppConfig) fx.Option {
	switch cfg.Markers.Store {
	case MarkerStorePostgres:
		return fx.Options(
			database.Module(),
			migration.Module(),
			markers.StoreModule(),
		)
	case MarkerStoreSQLite:
		return markers.SQLiteModule()
	default:
		return markers.MemoryModule()
	}
}

func registerHooks(
	lifecycle fx.Lifecycle,
	srv *server.Server,
	httpSrv *server.HTTPServer,
	log *zap.Logger,
) {
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil {
					log.Error("failed to start server", zap.Error(err))
				}
			}()
			go func() {
				if err := httpSrv.Start(); err != nil {
					log.Error("failed to start http server", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down server...")
			srv.Stop()
			return httpSrv.Stop(ctx)
		},
	})
}
