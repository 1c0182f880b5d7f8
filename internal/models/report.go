package models

import (
	"math"
	"time"
)

// Metrics: итоговая статистика прогона. Проценты уже умножены на 100.
type Metrics struct {
	TotalTrades    int     `json:"total_trades"`
	WinRate        float64 `json:"win_rate"`
	ProfitFactor   float64 `json:"profit_factor"`
	SharpeRatio    float64 `json:"sharpe_ratio"`
	MaxDrawdown    float64 `json:"max_drawdown"`
	TotalReturn    float64 `json:"total_return"`
	InitialBalance float64 `json:"initial_balance"`
	FinalBalance   float64 `json:"final_balance"`
}

// ProfitFactorInf: нет убыточных сделок, profit factor равен +Inf.
func (m Metrics) ProfitFactorInf() bool { return math.IsInf(m.ProfitFactor, 1) }

// ModelInfo: последняя удачная тренировка модели за прогон.
type ModelInfo struct {
	Trained   bool      `json:"trained"`
	Step      int       `json:"step"`
	TrainedAt time.Time `json:"trained_at"`
	Accuracy  float64   `json:"accuracy"`
}

// DailyInfo: дневные счётчики риска на последний симулированный день.
type DailyInfo struct {
	Day           time.Time `json:"day"`
	Trades        int       `json:"trades"`
	PnL           float64   `json:"pnl"`
	OpenPositions int       `json:"open_positions"`
}

// Report содержит всё, что прогон отдаёт наружу: метрики, журнал сделок и кривую капитала.
type Report struct {
	RunID        string        `json:"run_id"`
	Symbol       string        `json:"symbol"`
	Source       string        `json:"source"`
	Strategy     string        `json:"strategy"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   time.Time     `json:"finished_at"`
	Steps        int           `json:"steps"`
	Entries      int           `json:"entries"`
	Metrics      Metrics       `json:"metrics"`
	Model        ModelInfo     `json:"model"`
	Daily        DailyInfo     `json:"daily"`
	Trades       []Trade       `json:"trades"`
	Equity       []EquityPoint `json:"equity"`
	OpenPosition *Position     `json:"open_position,omitempty"`
}
