package service

import (
	"go.uber.org/zap"

	"backtest_bot/internal/modules/config"
)

func NewEngine(cfg *config.Config, log *zap.Logger) (Engine, error) {
	return NewBollinger(BollingerConfig{
		Window:    cfg.Strategy.Window,
		Deviation: cfg.Strategy.Deviation,
	}, log.Named("strategy"))
}
