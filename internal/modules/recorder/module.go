package recorder

import (
	"context"

	"go.uber.org/fx"

	"backtest_bot/internal/modules/recorder/service"
)

func Module() fx.Option {
	return fx.Module("recorder",
		fx.Provide(
			service.New,
		),
		fx.Invoke(func(lc fx.Lifecycle, r service.Recorder) {
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error { return r.Close() },
			})
		}),
	)
}
