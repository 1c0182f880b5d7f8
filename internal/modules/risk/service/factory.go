package service

import (
	"time"

	"go.uber.org/zap"

	"backtest_bot/internal/modules/config"
)

// Factory: новый сайзер на прогон с часами симуляции.
type Factory func(clock func() time.Time) *Sizer

func OptionsFromConfig(cfg config.RiskConfig) Options {
	return Options{
		MaxDailyTrades:  cfg.MaxDailyTrades,
		MaxDailyLossPct: cfg.MaxDailyLossPct,
		BaseRiskPct:     cfg.BaseRiskPct,
		MaxRiskPct:      cfg.MaxRiskPct,
	}
}

func NewFactory(cfg *config.Config, log *zap.Logger) (Factory, error) {
	opts := OptionsFromConfig(cfg.Risk)
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	log = log.Named("risk")
	return func(clock func() time.Time) *Sizer {
		s, _ := NewSizer(opts, log, WithClock(clock))
		return s
	}, nil
}
