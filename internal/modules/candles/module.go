package candles

import (
	"go.uber.org/fx"

	"backtest_bot/internal/modules/candles/service"
)

func Module() fx.Option {
	return fx.Module("candles",
		fx.Provide(
			service.NewSource,
		),
	)
}
