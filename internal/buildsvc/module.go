package buildsvc

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/elskow/erlbuild/internal/builder"
	"github.com/elskow/erlbuild/internal/config"
	"github.com/elskow/erlbuild/internal/events"
	"github.com/elskow/erlbuild/internal/markers"
)

func Module() fx.Option {
	return fx.Provide(
		fx.Annotate(
			func(b *builder.Builder, sink markers.Sink, publisher events.Publisher, config *config.AppConfig, log *zap.Logger) *Handler {
				return NewHandler(b, sink, &config.Build, log, WithPublisher(publisher))
			},
		),
	)
}
