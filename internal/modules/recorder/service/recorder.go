package service

import (
	"context"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"backtest_bot/internal/models"
)

// Recorder сохраняет результат прогона. Вызывается после симуляции, не из цикла.
type Recorder interface {
	Record(ctx context.Context, report *models.Report) error
	Close() error
}

const pricePlaces = 8

// round режет float до фиксированного числа знаков, чтобы в выгрузках не было хвостов 0.30000000000000004.
func round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// numeric: строка для колонки numeric; nil для NaN/Inf.
func numeric(v float64) *string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	s := decimal.NewFromFloat(v).Round(pricePlaces).String()
	return &s
}

// MetricsRow: метрики в виде, пригодном для JSON/YAML: +Inf не кодируется,
// поэтому profit factor без убытков уходит как null с флагом.
type MetricsRow struct {
	TotalTrades     int      `json:"total_trades" yaml:"total_trades"`
	WinRate         float64  `json:"win_rate" yaml:"win_rate"`
	ProfitFactor    *float64 `json:"profit_factor" yaml:"profit_factor"`
	ProfitFactorInf bool     `json:"profit_factor_inf" yaml:"profit_factor_inf"`
	SharpeRatio     float64  `json:"sharpe_ratio" yaml:"sharpe_ratio"`
	MaxDrawdown     float64  `json:"max_drawdown" yaml:"max_drawdown"`
	TotalReturn     float64  `json:"total_return" yaml:"total_return"`
	InitialBalance  float64  `json:"initial_balance" yaml:"initial_balance"`
	FinalBalance    float64  `json:"final_balance" yaml:"final_balance"`
}

func NewMetricsRow(m models.Metrics) MetricsRow {
	row := MetricsRow{
		TotalTrades:     m.TotalTrades,
		WinRate:         round(m.WinRate, 4),
		ProfitFactorInf: m.ProfitFactorInf(),
		SharpeRatio:     round(m.SharpeRatio, 6),
		MaxDrawdown:     round(m.MaxDrawdown, 4),
		TotalReturn:     round(m.TotalReturn, 4),
		InitialBalance:  round(m.InitialBalance, pricePlaces),
		FinalBalance:    round(m.FinalBalance, pricePlaces),
	}
	if !math.IsInf(m.ProfitFactor, 0) && !math.IsNaN(m.ProfitFactor) {
		pf := round(m.ProfitFactor, 6)
		row.ProfitFactor = &pf
	}
	return row
}

// Summary: короткая сводка прогона для summary.yaml и jsonb-колонок.
type Summary struct {
	RunID        string           `json:"run_id" yaml:"run_id"`
	Symbol       string           `json:"symbol" yaml:"symbol"`
	Source       string           `json:"source" yaml:"source"`
	Strategy     string           `json:"strategy" yaml:"strategy"`
	StartedAt    string           `json:"started_at" yaml:"started_at"`
	FinishedAt   string           `json:"finished_at" yaml:"finished_at"`
	Steps        int              `json:"steps" yaml:"steps"`
	Entries      int              `json:"entries" yaml:"entries"`
	Metrics      MetricsRow       `json:"metrics" yaml:"metrics"`
	ModelTrained bool             `json:"model_trained" yaml:"model_trained"`
	ModelStep    int              `json:"model_step" yaml:"model_step"`
	ModelAcc     float64          `json:"model_accuracy" yaml:"model_accuracy"`
	OpenPosition *models.Position `json:"open_position,omitempty" yaml:"open_position,omitempty"`
}

func NewSummary(r *models.Report) Summary {
	return Summary{
		RunID:        r.RunID,
		Symbol:       r.Symbol,
		Source:       r.Source,
		Strategy:     r.Strategy,
		StartedAt:    r.StartedAt.UTC().Format(time.RFC3339),
		FinishedAt:   r.FinishedAt.UTC().Format(time.RFC3339),
		Steps:        r.Steps,
		Entries:      r.Entries,
		Metrics:      NewMetricsRow(r.Metrics),
		ModelTrained: r.Model.Trained,
		ModelStep:    r.Model.Step,
		ModelAcc:     round(r.Model.Accuracy, 4),
		OpenPosition: r.OpenPosition,
	}
}
