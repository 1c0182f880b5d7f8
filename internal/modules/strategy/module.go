package strategy

import (
	"go.uber.org/fx"

	"backtest_bot/internal/modules/strategy/service"
)

// Module отдаёт полосную стратегию как service.Engine. Состояния у неё нет,
// поэтому один экземпляр делят все прогоны.
func Module() fx.Option {
	return fx.Module("strategy",
		fx.Provide(
			service.NewEngine,
		),
	)
}
