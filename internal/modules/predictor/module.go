package predictor

import (
	"go.uber.org/fx"

	"backtest_bot/internal/modules/predictor/service"
)

func Module() fx.Option {
	return fx.Module("predictor",
		fx.Provide(
			service.NewFactory,
		),
	)
}
