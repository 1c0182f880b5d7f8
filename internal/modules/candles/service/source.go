package service

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"backtest_bot/internal/models"
)

var ErrNoCandles = errors.New("no candles in range")

// Source отдаёт уже готовую историю свечей по инструменту.
// Нулевые from/to: без ограничения с этой стороны.
type Source interface {
	Name() string
	Load(ctx context.Context, symbol string, from, to time.Time) ([]models.Candle, error)
}

// validate проверяет, что свечи корректны и строго возрастают по времени.
func validate(cs []models.Candle) error {
	for i, c := range cs {
		if !c.Valid() {
			return errors.Errorf("candle %d at %s is invalid", i, c.Time.Format(time.RFC3339))
		}
		if i > 0 && !c.Time.After(cs[i-1].Time) {
			return errors.Errorf("candle %d at %s is not after %s", i,
				c.Time.Format(time.RFC3339), cs[i-1].Time.Format(time.RFC3339))
		}
	}
	return nil
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && t.After(to) {
		return false
	}
	return true
}
