package builder

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/elskow/erlbuild/internal/backend"
	"github.com/elskow/erlbuild/internal/markers"
)

func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				func(reg *prometheus.Registry) *MetricsCollector {
					return NewMetricsCollector(reg)
				},
			),
			fx.Annotate(
				func(
					manager *backend.Manager,
					sink markers.Sink,
					metrics *MetricsCollector,
					logger *zap.Logger,
				) *Builder {
					return NewBuilder(manager, sink, metrics, logger)
				},
			),
		),
	)
}
