package factory

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/elskow/erlbuild/internal/auth"
	"github.com/elskow/erlbuild/internal/backend"
	"github.com/elskow/erlbuild/internal/config"
)

// Module provides a *backend.Manager built from the backend configuration.
func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				func(config *config.AppConfig, svc *auth.Service, logger *zap.Logger) *Factory {
					return NewFactory(&config.Backend, svc, logger)
				},
			),
			NewManager,
		),
		fx.Invoke(registerHooks),
	)
}

func NewManager(f *Factory, logger *zap.Logger) (*backend.Manager, error) {
	locator, err := f.CreateLocator()
	if err != nil {
		return nil, err
	}
	return backend.NewManager(locator, f.Open, logger), nil
}

func registerHooks(lifecycle fx.Lifecycle, manager *backend.Manager, logger *zap.Logger) {
	lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info("closing compile backends")
			return manager.Close()
		},
	})
}
