package service

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"backtest_bot/internal/modules/config"
	"backtest_bot/pkg/db"
)

// New собирает хранилища по конфигу: файлы, sqlite, postgres. Если не настроено ничего, отдаёт Noop.
func New(ctx context.Context, cfg *config.Config, pg *db.PgTxManager, log *zap.Logger) (Recorder, error) {
	log = log.Named("recorder")
	var recorders []Recorder

	closeAll := func() { _ = NewMulti(recorders...).Close() }

	if cfg.Report.Dir != "" {
		r, err := NewFileRecorder(cfg.Report.Dir, log)
		if err != nil {
			return nil, err
		}
		recorders = append(recorders, r)
	}
	if cfg.SQLitePath != "" {
		r, err := NewSQLiteRecorder(cfg.SQLitePath, log)
		if err != nil {
			closeAll()
			return nil, errors.Wrap(err, "sqlite recorder")
		}
		recorders = append(recorders, r)
	}
	if pg != nil {
		r, err := NewPgRecorder(ctx, pg, log)
		if err != nil {
			closeAll()
			return nil, errors.Wrap(err, "postgres recorder")
		}
		recorders = append(recorders, r)
	}

	switch len(recorders) {
	case 0:
		log.Info("no recorders configured")
		return NewNoop(), nil
	case 1:
		return recorders[0], nil
	default:
		return NewMulti(recorders...), nil
	}
}
