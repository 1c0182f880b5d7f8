package service

import (
	"time"

	"backtest_bot/internal/models"
)

// scripted отдаёт сигнал по длине истории.
type scripted struct {
	source  string
	signals map[int]models.Side
}

func (s *scripted) Evaluate(history []models.Candle) models.Signal {
	side, ok := s.signals[len(history)]
	if !ok || side == models.SideNone {
		return models.Neutral(s.source)
	}
	return models.Signal{Side: side, Confidence: 1, Source: s.source}
}

type fakeModel struct {
	scripted
	minHistory int
	trainedAt  []int
	trained    bool
}

func (m *fakeModel) ShouldRetrain(step int, now time.Time) bool { return !m.trained }
func (m *fakeModel) MinHistory() int                            { return m.minHistory }
func (m *fakeModel) Train(history []models.Candle, step int, now time.Time) error {
	m.trainedAt = append(m.trainedAt, step)
	m.trained = true
	return nil
}
func (m *fakeModel) Predict(history []models.Candle) models.Signal { return m.Evaluate(history) }

// fixedSizer всегда разрешает вход и даёт фиксированный номинал.
type fixedSizer struct {
	notional float64
	opened   int
	closed   int
	allow    bool
}

func (f *fixedSizer) UpdateDailyMetrics() bool { return false }
func (f *fixedSizer) CanOpenPosition(symbol string, balance, price float64) bool {
	return f.allow
}
func (f *fixedSizer) CalculatePositionSize(balance, price, confidence float64) float64 {
	return f.notional
}
func (f *fixedSizer) UpdatePosition(symbol string, side models.Side, entryPrice, currentPrice, size float64) {
	f.opened++
}
func (f *fixedSizer) ClosePosition(symbol string, exitPrice float64) (float64, bool) {
	f.closed++
	return 0, true
}

type recordingObserver struct {
	steps  []int
	equity []float64
	trades []models.Trade
}

func (o *recordingObserver) OnStep(step int, c models.Candle, equity float64) {
	o.steps = append(o.steps, step)
	o.equity = append(o.equity, equity)
}
func (o *recordingObserver) OnTrade(t models.Trade) { o.trades = append(o.trades, t) }

func candlesAt(closes ...float64) []models.Candle {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, len(closes))
	for i, c := range closes {
		out[i] = models.Candle{
			Time:   start.Add(time.Duration(i) * time.Hour),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1,
		}
	}
	return out
}

// constant отдаёт один и тот же сигнал на каждом шаге.
type constant struct{ sig models.Signal }

func (c constant) Evaluate([]models.Candle) models.Signal { return c.sig }
