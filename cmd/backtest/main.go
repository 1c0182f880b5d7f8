package main

import (
	"context"
	"log"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"backtest_bot/internal/modules/backtest"
	"backtest_bot/internal/modules/candles"
	"backtest_bot/internal/modules/config"
	"backtest_bot/internal/modules/health"
	"backtest_bot/internal/modules/postgres"
	"backtest_bot/internal/modules/predictor"
	"backtest_bot/internal/modules/recorder"
	"backtest_bot/internal/modules/risk"
	"backtest_bot/internal/modules/strategy"
	"backtest_bot/internal/notify"
	"backtest_bot/pkg/logger"
	"backtest_bot/pkg/tracing"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New(logger.Config{
		Service: cfg.Service.Name,
		Level:   cfg.Service.LogLevel,
		Format:  cfg.Service.LogFormat,
	})
}

// initTracing включает jaeger только при tracing.enabled, иначе спаны уходят в NoopTracer.
func initTracing(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) error {
	if !cfg.Tracing.Enabled {
		return nil
	}
	_, closer, err := tracing.InitTracer(tracing.Config{
		ServiceName: cfg.Service.Name,
		Host:        cfg.Tracing.Host,
		Port:        cfg.Tracing.Port,
	}, log)
	if err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			closer()
			return nil
		},
	})
	return nil
}

func main() {
	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
			newLogger,
			notify.New,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		fx.Invoke(initTracing),
		config.Module(),
		postgres.Module(),
		candles.Module(),
		strategy.Module(),
		predictor.Module(),
		risk.Module(),
		recorder.Module(),
		health.Module(),
		backtest.Module(),
	)
	if err := app.Err(); err != nil {
		log.Fatal(err)
	}
	app.Run()
}
