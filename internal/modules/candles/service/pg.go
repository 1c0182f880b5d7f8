package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"backtest_bot/internal/models"
	"backtest_bot/pkg/db"
)

const selectCandles = `
SELECT ts, open, high, low, close, volume
FROM candles
WHERE symbol = $1
  AND ($2::timestamptz IS NULL OR ts >= $2)
  AND ($3::timestamptz IS NULL OR ts <= $3)
ORDER BY ts`

// PgSource читает свечи из таблицы candles.
type PgSource struct {
	tx  db.TxManager
	log *zap.Logger
}

func NewPgSource(tx db.TxManager, log *zap.Logger) *PgSource {
	return &PgSource{tx: tx, log: log}
}

func (s *PgSource) Name() string { return "postgres" }

func (s *PgSource) Load(ctx context.Context, symbol string, from, to time.Time) ([]models.Candle, error) {
	rows, err := s.tx.Conn().Query(ctx, selectCandles, symbol, nullTime(from), nullTime(to))
	if err != nil {
		return nil, errors.Wrap(err, "query candles")
	}
	defer rows.Close()

	var out []models.Candle
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Time, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, errors.Wrap(err, "scan candle")
		}
		c.Time = c.Time.UTC()
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate candles")
	}

	if err := validate(out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNoCandles
	}
	s.log.Info("candles loaded",
		zap.String("source", s.Name()),
		zap.String("symbol", symbol),
		zap.Int("count", len(out)),
	)
	return out, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
