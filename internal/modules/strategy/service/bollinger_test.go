package service

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"backtest_bot/internal/models"
)

func candles(closes ...float64) []models.Candle {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, len(closes))
	for i, c := range closes {
		out[i] = models.Candle{
			Time:   start.Add(time.Duration(i) * time.Minute),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1,
		}
	}
	return out
}

func newTestBollinger(t *testing.T, window int, k float64) *Bollinger {
	t.Helper()
	b, err := NewBollinger(BollingerConfig{Window: window, Deviation: k}, zap.NewNop())
	require.NoError(t, err)
	return b
}

func TestNewBollinger_Invalid(t *testing.T) {
	_, err := NewBollinger(BollingerConfig{Window: 0, Deviation: 0.5}, zap.NewNop())
	assert.Error(t, err)
	_, err = NewBollinger(BollingerConfig{Window: 10, Deviation: 0}, zap.NewNop())
	assert.Error(t, err)
}

func TestBollinger_Evaluate(t *testing.T) {
	b := newTestBollinger(t, 3, 0.5)

	tests := []struct {
		name   string
		closes []float64
		want   models.Side
		conf   float64
	}{
		{"above upper band", []float64{1, 2, 3}, models.SideShort, 1},
		{"below middle", []float64{3, 2, 1}, models.SideLong, 1},
		{"flat window prefers short", []float64{2, 2, 2}, models.SideShort, 1},
		{"between middle and upper", []float64{1, 3, 2.2}, models.SideNone, 0},
		{"not enough history", []float64{1, 2}, models.SideNone, 0},
		{"nan in window", []float64{1, math.NaN(), 3}, models.SideNone, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := b.Evaluate(candles(tt.closes...))
			assert.Equal(t, tt.want, sig.Side)
			assert.Equal(t, tt.conf, sig.Confidence)
			assert.Equal(t, "bollinger", sig.Source)
		})
	}
}

func TestBollinger_UsesOnlyLastWindow(t *testing.T) {
	b := newTestBollinger(t, 3, 0.5)
	// первые точки за пределами окна не должны влиять
	sig := b.Evaluate(candles(1000, -5, 3, 2, 1))
	assert.Equal(t, models.SideLong, sig.Side)
}

func TestBollinger_Bands(t *testing.T) {
	b := newTestBollinger(t, 3, 0.5)
	bands, ok := b.Bands(candles(1, 2, 3))
	require.True(t, ok)

	std := math.Sqrt(2.0 / 3.0)
	assert.InDelta(t, 2.0, bands.Middle, 1e-12)
	assert.InDelta(t, 2.0+0.5*std, bands.Upper, 1e-12)
	assert.InDelta(t, 2.0-0.5*std, bands.Lower, 1e-12)

	_, ok = b.Bands(candles(1))
	assert.False(t, ok)
	assert.Equal(t, 3, b.Warmup())
}
