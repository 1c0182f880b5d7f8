package service

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtest_bot/internal/models"
)

func curve(values ...float64) []models.EquityPoint {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.EquityPoint, len(values))
	for i, v := range values {
		out[i] = models.EquityPoint{Equity: v}
		if i > 0 {
			out[i].Time = start.Add(time.Duration(i) * time.Hour)
		}
	}
	return out
}

func trade(pnl, ret float64) models.Trade {
	return models.Trade{PnL: pnl, ReturnPct: ret}
}

func TestComputeMetrics_NoTrades(t *testing.T) {
	m := ComputeMetrics(nil, curve(1000, 900, 1000), 1000, 1000, SharpePerTrade)
	assert.Equal(t, models.Metrics{InitialBalance: 1000, FinalBalance: 1000}, m)
}

func TestComputeMetrics_AllWins(t *testing.T) {
	trades := []models.Trade{trade(10, 1), trade(30, 3)}
	m := ComputeMetrics(trades, curve(1000, 1010, 1040), 1000, 1040, SharpePerTrade)

	assert.Equal(t, 2, m.TotalTrades)
	assert.Equal(t, 100.0, m.WinRate)
	assert.True(t, math.IsInf(m.ProfitFactor, 1))
	assert.True(t, m.ProfitFactorInf())
	assert.Equal(t, 0.0, m.MaxDrawdown)
	assert.InDelta(t, 4.0, m.TotalReturn, 1e-12)
	// mean 2, выборочное std sqrt(2)
	assert.InDelta(t, 2/math.Sqrt(2), m.SharpeRatio, 1e-12)
}

func TestComputeMetrics_Mixed(t *testing.T) {
	trades := []models.Trade{trade(100, 10), trade(-50, -5), trade(0, 0), trade(50, 5)}
	m := ComputeMetrics(trades, curve(1000, 1100, 1050, 1050, 1100), 1000, 1100, SharpePerTrade)

	assert.Equal(t, 4, m.TotalTrades)
	assert.Equal(t, 50.0, m.WinRate)
	assert.InDelta(t, 3.0, m.ProfitFactor, 1e-12)
	assert.InDelta(t, 50.0/1100*100, m.MaxDrawdown, 1e-9)
	assert.InDelta(t, 10.0, m.TotalReturn, 1e-12)
}

func TestComputeMetrics_SingleTradeSharpeIsZero(t *testing.T) {
	m := ComputeMetrics([]models.Trade{trade(10, 1)}, curve(1000, 1010), 1000, 1010, SharpePerTrade)
	assert.Equal(t, 0.0, m.SharpeRatio)

	m = ComputeMetrics([]models.Trade{trade(10, 1), trade(10, 1)}, curve(1000, 1010, 1020), 1000, 1020, SharpePerTrade)
	assert.Equal(t, 0.0, m.SharpeRatio)
}

func TestComputeMetrics_Annualized(t *testing.T) {
	eq := curve(100, 110, 99, 108.9)
	m := ComputeMetrics([]models.Trade{trade(8.9, 8.9)}, eq, 100, 108.9, SharpeAnnualized)

	rets := []float64{0.1, -0.1, 0.1}
	mean := (rets[0] + rets[1] + rets[2]) / 3
	var ss float64
	for _, r := range rets {
		ss += (r - mean) * (r - mean)
	}
	std := math.Sqrt(ss / 3)
	assert.InDelta(t, mean/std*math.Sqrt(252), m.SharpeRatio, 1e-9)
}

func TestMaxDrawdown(t *testing.T) {
	assert.Equal(t, 0.0, MaxDrawdown(curve(1, 2, 3, 3)))
	assert.InDelta(t, 50.0, MaxDrawdown(curve(100, 200, 100, 150)), 1e-12)
	assert.Equal(t, 0.0, MaxDrawdown(nil))
}

func TestParseSharpeMode(t *testing.T) {
	m, err := ParseSharpeMode("")
	require.NoError(t, err)
	assert.Equal(t, SharpePerTrade, m)
	m, err = ParseSharpeMode("ANNUALIZED")
	require.NoError(t, err)
	assert.Equal(t, SharpeAnnualized, m)
	_, err = ParseSharpeMode("weekly")
	assert.Error(t, err)
}
