package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	risk "backtest_bot/internal/modules/risk/service"
)

func TestClock(t *testing.T) {
	c := NewClock()
	assert.True(t, c.Now().IsZero())

	ts := time.Date(2024, 5, 1, 3, 0, 0, 0, time.FixedZone("UTC+3", 3*3600))
	c.Set(ts)
	assert.True(t, ts.Equal(c.Now()))
	assert.Equal(t, time.UTC, c.Now().Location())
}

func TestClock_Epoch(t *testing.T) {
	c := NewClock()
	epoch := time.Unix(0, 0).UTC()
	c.Set(epoch)
	require.False(t, c.Now().IsZero())
	assert.True(t, epoch.Equal(c.Now()))

	sizer, err := risk.NewSizer(risk.Options{
		MaxDailyTrades: 1, MaxDailyLossPct: 10, BaseRiskPct: 1, MaxRiskPct: 5,
	}, zap.NewNop(), risk.WithClock(c.Now))
	require.NoError(t, err)

	assert.True(t, sizer.UpdateDailyMetrics())
	c.Set(epoch.Add(time.Hour))
	assert.False(t, sizer.UpdateDailyMetrics())
	assert.True(t, epoch.Equal(sizer.DailyMetrics().Day))
}
