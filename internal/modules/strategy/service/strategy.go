package service

import "backtest_bot/internal/models"

// Engine: то, что симулятор дергает на каждом шаге.
// Реализации без состояния между вызовами: весь контекст в history.
type Engine interface {
	Evaluate(history []models.Candle) models.Signal
	Warmup() int
	Name() string
}
