package events

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/elskow/erlbuild/internal/config"
)

// Module provides a Publisher. Without a NATS URL events are dropped.
func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				func(cfg *config.AppConfig, log *zap.Logger) (Publisher, error) {
					if cfg.Events.NATSURL == "" {
						return Nop{}, nil
					}
					return NewNATSPublisher(&cfg.Events, log)
				},
			),
		),
		fx.Invoke(func(lifecycle fx.Lifecycle, p Publisher) {
			lifecycle.Append(fx.Hook{
				OnStop: func(context.Context) error {
					return p.Close()
				},
			})
		}),
	)
}
