package backtest

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"backtest_bot/internal/modules/backtest/service"
	"backtest_bot/internal/modules/config"
)

// Start без schedule.cron делает один прогон и гасит приложение,
// с расписанием: запускает прогоны по cron до остановки.
func Start(lc fx.Lifecycle, sd fx.Shutdowner, cfg *config.Config, runner *service.Runner, log *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())

	if cfg.Schedule.Cron == "" {
		done := make(chan struct{})
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				go func() {
					defer close(done)
					code := 0
					if _, err := runner.Run(ctx); err != nil {
						log.Error("backtest failed", zap.Error(err))
						code = 1
					}
					_ = sd.Shutdown(fx.ExitCode(code))
				}()
				return nil
			},
			OnStop: func(stopCtx context.Context) error {
				cancel()
				select {
				case <-done:
				case <-stopCtx.Done():
				}
				return nil
			},
		})
		return nil
	}

	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(cfg.Schedule.Cron, func() {
		if _, err := runner.Run(ctx); err != nil {
			log.Error("scheduled backtest failed", zap.Error(err))
		}
	}); err != nil {
		cancel()
		return err
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			c.Start()
			log.Info("scheduler started", zap.String("cron", cfg.Schedule.Cron))
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-c.Stop().Done():
			case <-stopCtx.Done():
			}
			log.Info("scheduler stopped")
			return nil
		},
	})
	return nil
}

func Module() fx.Option {
	return fx.Module("backtest",
		fx.Provide(
			service.NewRunner,
		),
		fx.Invoke(Start),
	)
}
