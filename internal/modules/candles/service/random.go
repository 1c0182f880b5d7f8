package service

import (
	"context"
	"math/rand"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"backtest_bot/internal/helper"
	"backtest_bot/internal/models"
)

type RandomOptions struct {
	Seed       int64
	Count      int
	StartPrice float64
	Volatility float64 // максимальное относительное движение за свечу
	Interval   time.Duration
	Start      time.Time // нулевое: 2024-01-01 UTC
}

func (o RandomOptions) Validate() error {
	if o.Count < 1 {
		return errors.Errorf("random count must be >= 1, got %d", o.Count)
	}
	if o.StartPrice <= 0 {
		return errors.Errorf("random start_price must be > 0, got %v", o.StartPrice)
	}
	if o.Volatility <= 0 || o.Volatility >= 1 {
		return errors.Errorf("random volatility must be in (0,1), got %v", o.Volatility)
	}
	if o.Interval <= 0 {
		return errors.Errorf("random interval must be > 0, got %s", o.Interval)
	}
	return nil
}

// RandomSource генерирует детерминированное случайное блуждание, один seed даёт одну и ту же историю.
type RandomSource struct {
	opts RandomOptions
	log  *zap.Logger
}

func NewRandomSource(opts RandomOptions, log *zap.Logger) (*RandomSource, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Start.IsZero() {
		opts.Start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return &RandomSource{opts: opts, log: log}, nil
}

func (s *RandomSource) Name() string { return "random" }

func (s *RandomSource) Load(ctx context.Context, symbol string, from, to time.Time) ([]models.Candle, error) {
	r := rand.New(rand.NewSource(s.opts.Seed))
	start := s.opts.Start
	if !from.IsZero() {
		start = from.UTC()
	}

	vol := s.opts.Volatility
	price := s.opts.StartPrice
	out := make([]models.Candle, 0, s.opts.Count)
	ts := start
	for i := 0; i < s.opts.Count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !to.IsZero() && ts.After(to) {
			break
		}
		open := price
		ret := (r.Float64() - 0.5) * 2.0 * vol
		close := open * (1.0 + ret)
		high := max(open, close) * (1.0 + r.Float64()*vol*0.5)
		low := min(open, close) * (1.0 - r.Float64()*vol*0.5)
		volume := 10_000 + r.Float64()*5_000

		out = append(out, models.Candle{Time: ts, Open: open, High: high, Low: low, Close: close, Volume: volume})
		price = close
		ts = ts.Add(s.opts.Interval)
	}

	if len(out) == 0 {
		return nil, ErrNoCandles
	}
	s.log.Info("candles generated",
		zap.String("source", s.Name()),
		zap.String("symbol", symbol),
		zap.Int64("seed", s.opts.Seed),
		zap.Int("count", len(out)),
		zap.String("first_day", helper.DayStart(out[0].Time).Format(time.DateOnly)),
	)
	return out, nil
}
