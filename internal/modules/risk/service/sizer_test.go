package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"backtest_bot/internal/models"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func defaultOptions() Options {
	return Options{MaxDailyTrades: 100, MaxDailyLossPct: 10, BaseRiskPct: 1, MaxRiskPct: 5}
}

func newTestSizer(t *testing.T, opts Options) (*Sizer, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	s, err := NewSizer(opts, zap.NewNop(), WithClock(clock.Now))
	require.NoError(t, err)
	return s, clock
}

func TestOptions_Validate(t *testing.T) {
	bad := []Options{
		{MaxDailyTrades: 0, MaxDailyLossPct: 10, BaseRiskPct: 1, MaxRiskPct: 5},
		{MaxDailyTrades: 1, MaxDailyLossPct: 101, BaseRiskPct: 1, MaxRiskPct: 5},
		{MaxDailyTrades: 1, MaxDailyLossPct: 10, BaseRiskPct: -1, MaxRiskPct: 5},
		{MaxDailyTrades: 1, MaxDailyLossPct: 10, BaseRiskPct: 3, MaxRiskPct: 2},
	}
	for _, o := range bad {
		assert.Error(t, o.Validate())
	}
	assert.NoError(t, defaultOptions().Validate())
}

func TestCalculatePositionSize(t *testing.T) {
	s, _ := newTestSizer(t, defaultOptions())

	assert.InDelta(t, 50.0, s.CalculatePositionSize(1000, 100, 1.0), 1e-9)
	assert.InDelta(t, 10.0, s.CalculatePositionSize(1000, 100, 0), 1e-9)
	assert.InDelta(t, 30.0, s.CalculatePositionSize(1000, 100, 0.5), 1e-9)
	// уверенность вне [0,1] обрезается
	assert.InDelta(t, 50.0, s.CalculatePositionSize(1000, 100, 7), 1e-9)
	assert.Equal(t, 0.0, s.CalculatePositionSize(0, 100, 1))

	prev := 0.0
	for _, c := range []float64{0, 0.1, 0.3, 0.6, 0.9, 1} {
		size := s.CalculatePositionSize(1000, 100, c)
		assert.GreaterOrEqual(t, size, prev)
		prev = size
	}
}

func TestCalculatePositionSize_CappedAtBalance(t *testing.T) {
	s, _ := newTestSizer(t, Options{MaxDailyTrades: 1, MaxDailyLossPct: 10, BaseRiskPct: 150, MaxRiskPct: 200})
	assert.Equal(t, 1000.0, s.CalculatePositionSize(1000, 100, 1))
}

func TestDailyTradeLimit(t *testing.T) {
	s, clock := newTestSizer(t, Options{MaxDailyTrades: 1, MaxDailyLossPct: 10, BaseRiskPct: 1, MaxRiskPct: 5})

	require.True(t, s.CanOpenPosition("ETHUSDT", 1000, 100))
	s.UpdatePosition("ETHUSDT", models.SideLong, 100, 100, 50)
	_, ok := s.ClosePosition("ETHUSDT", 100)
	require.True(t, ok)

	assert.Equal(t, 0.0, s.CalculatePositionSize(1000, 100, 1))
	assert.False(t, s.CanOpenPosition("ETHUSDT", 1000, 100))

	// новый день снимает лимит
	clock.t = clock.t.Add(24 * time.Hour)
	assert.True(t, s.CanOpenPosition("ETHUSDT", 1000, 100))
	assert.InDelta(t, 50.0, s.CalculatePositionSize(1000, 100, 1), 1e-9)
}

func TestDailyLossLimit(t *testing.T) {
	s, _ := newTestSizer(t, defaultOptions())

	s.UpdatePosition("ETHUSDT", models.SideLong, 100, 100, 1000)
	pnl, ok := s.ClosePosition("ETHUSDT", 90)
	require.True(t, ok)
	assert.InDelta(t, -100.0, pnl, 1e-9)

	// -100 <= -10% от 1000
	assert.False(t, s.CanOpenPosition("ETHUSDT", 1000, 100))
	assert.True(t, s.CanOpenPosition("ETHUSDT", 2000, 100))
}

func TestDuplicatePosition(t *testing.T) {
	s, _ := newTestSizer(t, defaultOptions())
	s.UpdatePosition("ETHUSDT", models.SideLong, 100, 100, 50)
	assert.False(t, s.CanOpenPosition("ETHUSDT", 1000, 100))
	assert.True(t, s.CanOpenPosition("BTCUSDT", 1000, 100))

	info, ok := s.PositionInfo("ETHUSDT")
	require.True(t, ok)
	assert.Equal(t, 50.0, info.Size)
	assert.Equal(t, models.SideLong, info.Side)
}

func TestClosePosition(t *testing.T) {
	s, _ := newTestSizer(t, defaultOptions())

	_, ok := s.ClosePosition("ETHUSDT", 100)
	assert.False(t, ok)

	s.UpdatePosition("ETHUSDT", models.SideShort, 100, 100, 50)
	pnl, ok := s.ClosePosition("ETHUSDT", 110)
	require.True(t, ok)
	assert.InDelta(t, -5.0, pnl, 1e-9)

	m := s.DailyMetrics()
	assert.Equal(t, 1, m.Trades)
	assert.InDelta(t, -5.0, m.PnL, 1e-9)
	assert.Equal(t, 0, m.OpenPositions)
}

func TestUpdateDailyMetrics(t *testing.T) {
	s, clock := newTestSizer(t, defaultOptions())

	assert.True(t, s.UpdateDailyMetrics())
	s.UpdatePosition("ETHUSDT", models.SideLong, 100, 100, 50)
	assert.False(t, s.UpdateDailyMetrics())
	assert.False(t, s.UpdateDailyMetrics())
	assert.Equal(t, 1, s.DailyMetrics().Trades)

	clock.t = time.Date(2024, 5, 1, 23, 59, 0, 0, time.UTC)
	assert.False(t, s.UpdateDailyMetrics())

	clock.t = time.Date(2024, 5, 2, 0, 0, 1, 0, time.UTC)
	assert.True(t, s.UpdateDailyMetrics())
	m := s.DailyMetrics()
	assert.Equal(t, 0, m.Trades)
	assert.Equal(t, 0.0, m.PnL)
	// открытые позиции переживают смену дня
	assert.Equal(t, 1, m.OpenPositions)
	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), m.Day)
}
