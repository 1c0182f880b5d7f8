package service

import (
	"go.uber.org/zap"

	"backtest_bot/internal/modules/config"
)

// Factory отдаёт свежую необученную модель на каждый прогон.
type Factory func() *Model

func OptionsFromConfig(cfg config.ModelConfig) Options {
	return Options{
		Horizon:         cfg.Horizon,
		MinSamples:      cfg.MinSamples,
		RetrainEvery:    cfg.RetrainEvery,
		RetrainInterval: cfg.RetrainInterval,
		WindowSize:      cfg.WindowSize,
		Threshold:       cfg.Threshold,
		Tree: TreeOptions{
			MaxDepth:        cfg.Tree.MaxDepth,
			MinSamplesSplit: cfg.Tree.MinSamplesSplit,
			MinSamplesLeaf:  cfg.Tree.MinSamplesLeaf,
		},
	}
}

// NewFactory проверяет настройки один раз при сборке приложения.
func NewFactory(cfg *config.Config, log *zap.Logger) (Factory, error) {
	opts := OptionsFromConfig(cfg.Model)
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	log = log.Named("model")
	return func() *Model {
		m, _ := New(opts, log)
		return m
	}, nil
}
