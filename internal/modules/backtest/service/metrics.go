package service

import (
	"math"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"backtest_bot/internal/models"
)

// SharpeMode: как считать коэффициент Шарпа.
type SharpeMode string

const (
	// SharpePerTrade: среднее / выборочное отклонение доходностей сделок, без годового пересчёта.
	SharpePerTrade SharpeMode = "per_trade"
	// SharpeAnnualized: по шаговым доходностям кривой капитала, умножается на sqrt(252).
	SharpeAnnualized SharpeMode = "annualized"
)

const tradingDays = 252

func ParseSharpeMode(raw string) (SharpeMode, error) {
	switch m := SharpeMode(strings.ToLower(strings.TrimSpace(raw))); m {
	case "":
		return SharpePerTrade, nil
	case SharpePerTrade, SharpeAnnualized:
		return m, nil
	default:
		return "", errors.Errorf("unknown sharpe mode %q", raw)
	}
}

// ComputeMetrics считает итоговую статистику. Без закрытых сделок все производные метрики нулевые.
func ComputeMetrics(trades []models.Trade, equity []models.EquityPoint, initial, final float64, mode SharpeMode) models.Metrics {
	m := models.Metrics{
		TotalTrades:    len(trades),
		InitialBalance: initial,
		FinalBalance:   final,
	}
	if len(trades) == 0 {
		return m
	}

	var wins int
	var grossWin, grossLoss float64
	returns := make([]float64, len(trades))
	for i, t := range trades {
		switch {
		case t.PnL > 0:
			wins++
			grossWin += t.PnL
		case t.PnL < 0:
			grossLoss += -t.PnL
		}
		returns[i] = t.ReturnPct
	}

	m.WinRate = float64(wins) / float64(len(trades)) * 100
	if grossLoss == 0 {
		m.ProfitFactor = math.Inf(1)
	} else {
		m.ProfitFactor = grossWin / grossLoss
	}

	switch mode {
	case SharpeAnnualized:
		m.SharpeRatio = annualizedSharpe(equity)
	default:
		m.SharpeRatio = sharpe(returns, false)
	}

	m.MaxDrawdown = MaxDrawdown(equity)
	if initial != 0 {
		m.TotalReturn = (final - initial) / initial * 100
	}
	return m
}

func sharpe(xs []float64, population bool) float64 {
	if len(xs) < 2 {
		return 0
	}
	var mean, std float64
	if population {
		mean, std = stat.PopMeanStdDev(xs, nil)
	} else {
		mean, std = stat.MeanStdDev(xs, nil)
	}
	if std == 0 || math.IsNaN(std) || math.IsNaN(mean) {
		return 0
	}
	return mean / std
}

func annualizedSharpe(equity []models.EquityPoint) float64 {
	if len(equity) < 2 {
		return 0
	}
	rets := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Equity
		if prev == 0 {
			continue
		}
		rets = append(rets, equity[i].Equity/prev-1)
	}
	return sharpe(rets, true) * math.Sqrt(tradingDays)
}

// MaxDrawdown: наибольшая просадка от предыдущего пика в процентах (положительное число).
func MaxDrawdown(equity []models.EquityPoint) float64 {
	var peak, worst float64
	for i, p := range equity {
		if i == 0 || p.Equity > peak {
			peak = p.Equity
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - p.Equity) / peak * 100; dd > worst {
			worst = dd
		}
	}
	return worst
}
