package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtest_bot/internal/models"
)

func sig(side models.Side, conf float64, src string) models.Signal {
	return models.Signal{Side: side, Confidence: conf, Source: src}
}

func TestFuse(t *testing.T) {
	long := sig(models.SideLong, 1, "bollinger")
	short := sig(models.SideShort, 0.7, "model")
	none := models.Neutral("model")

	tests := []struct {
		name string
		tb   TieBreak
		in   []models.Signal
		side models.Side
		conf float64
	}{
		{"any long", TieBreakLong, []models.Signal{long, none}, models.SideLong, 1},
		{"any short", TieBreakLong, []models.Signal{none, short}, models.SideShort, 0.7},
		{"all neutral", TieBreakLong, []models.Signal{none, none}, models.SideNone, 0},
		{"conflict long", TieBreakLong, []models.Signal{long, short}, models.SideLong, 1},
		{"conflict short", TieBreakShort, []models.Signal{long, short}, models.SideShort, 0.7},
		{"conflict neutral", TieBreakNeutral, []models.Signal{long, short}, models.SideNone, 0},
		{"max confidence of voters", TieBreakLong, []models.Signal{sig(models.SideLong, 0.3, "a"), sig(models.SideLong, 0.8, "b")}, models.SideLong, 0.8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Fuse(tt.tb, tt.in...)
			assert.Equal(t, tt.side, out.Side)
			assert.Equal(t, tt.conf, out.Confidence)
			assert.Equal(t, "fused", out.Source)
		})
	}
}

func TestParseTieBreak(t *testing.T) {
	tb, err := ParseTieBreak("")
	require.NoError(t, err)
	assert.Equal(t, TieBreakLong, tb)

	tb, err = ParseTieBreak(" Short ")
	require.NoError(t, err)
	assert.Equal(t, TieBreakShort, tb)

	_, err = ParseTieBreak("coin")
	assert.Error(t, err)
}
