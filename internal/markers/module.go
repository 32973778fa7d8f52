package markers

import (
	"context"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/elskow/erlbuild/internal/config"
	"github.com/elskow/erlbuild/internal/database"
)

// MemoryModule provides a process local Sink.
func MemoryModule() fx.Option {
	return fx.Provide(
		fx.Annotate(
			func() Sink { return NewMemory() },
		),
	)
}

// StoreModule provides a Sink backed by the database manager.
func StoreModule() fx.Option {
	return fx.Provide(
		fx.Annotate(
			func(manager *database.Manager) *gorm.DB {
				return manager.DB()
			},
		),
		fx.Annotate(
			func(db *gorm.DB) Sink {
				return NewStore(db)
			},
		),
	)
}

// SQLiteModule provides a Sink kept in a local database file.
func SQLiteModule() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				func(cfg *config.AppConfig) (*SQLite, error) {
					return OpenSQLite(context.Background(), cfg.Markers.Path)
				},
			),
			fx.Annotate(
				func(s *SQLite) Sink { return s },
			),
		),
		fx.Invoke(func(lifecycle fx.Lifecycle, s *SQLite) {
			lifecycle.Append(fx.Hook{
				OnStop: func(context.Context) error {
					return s.Close()
				},
			})
		}),
	)
}
