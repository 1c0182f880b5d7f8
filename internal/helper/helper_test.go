package helper

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTFDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"1m":       time.Minute,
		"candle5m": 5 * time.Minute,
		"60m":      time.Hour,
		"1d":       24 * time.Hour,
		"weird":    0,
	}
	for in, want := range cases {
		assert.Equal(t, want, TFDuration(in), in)
	}
}

func TestDayStart(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	// 01:30 по UTC+3: это ещё предыдущий день по UTC
	ts := time.Date(2024, 3, 10, 1, 30, 0, 0, loc)
	assert.Equal(t, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), DayStart(ts))
	assert.True(t, SameDay(ts, time.Date(2024, 3, 9, 23, 0, 0, 0, time.UTC)))
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(-1))
	assert.Equal(t, 1.0, Clamp01(3))
	assert.Equal(t, 0.0, Clamp01(math.NaN()))
	assert.Equal(t, 0.25, Clamp01(0.25))
}
