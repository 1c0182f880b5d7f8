package service

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"backtest_bot/internal/helper"
	"backtest_bot/internal/modules/config"
	"backtest_bot/pkg/db"
)

// NewSource выбирает источник по data.source. pg может быть nil, если база не настроена.
func NewSource(cfg *config.Config, pg *db.PgTxManager, log *zap.Logger) (Source, error) {
	log = log.Named("candles")
	switch cfg.Data.Source {
	case "csv":
		return NewCSVSource(cfg.Data.Path, log), nil
	case "postgres":
		if pg == nil {
			return nil, errors.New("postgres source needs db_dsn")
		}
		return NewPgSource(pg, log), nil
	case "random":
		return NewRandomSource(RandomOptions{
			Seed:       cfg.Data.Random.Seed,
			Count:      cfg.Data.Random.Count,
			StartPrice: cfg.Data.Random.StartPrice,
			Volatility: cfg.Data.Random.Volatility,
			Interval:   helper.TFDuration(cfg.Data.Timeframe),
		}, log)
	default:
		return nil, errors.Errorf("unknown data source %q", cfg.Data.Source)
	}
}
