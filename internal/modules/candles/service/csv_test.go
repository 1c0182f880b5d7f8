package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const sampleCSV = `timestamp,open,high,low,close,volume
2024-01-01T00:00:00Z,100,101,99,100.5,10
2024-01-01T01:00:00Z,100.5,102,100,101,12
1704074400,101,103,100.5,102,9
1704078000000,102,102.5,101,101.5,11
`

func TestReadCSV(t *testing.T) {
	cs, err := ReadCSV(context.Background(), strings.NewReader(sampleCSV), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, cs, 4)

	assert.Equal(t, 100.5, cs[0].Close)
	assert.True(t, cs[2].Time.Equal(time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC)))
	assert.True(t, cs[3].Time.Equal(time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC)))
	assert.Equal(t, 11.0, cs[3].Volume)
}

func TestReadCSV_Range(t *testing.T) {
	from := time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC)
	cs, err := ReadCSV(context.Background(), strings.NewReader(sampleCSV), from, to)
	require.NoError(t, err)
	require.Len(t, cs, 2)
	assert.Equal(t, 101.0, cs[0].Close)

	_, err = ReadCSV(context.Background(), strings.NewReader(sampleCSV), time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), time.Time{})
	assert.ErrorIs(t, err, ErrNoCandles)
}

func TestReadCSV_Invalid(t *testing.T) {
	tests := map[string]string{
		"out of order":  "2024-01-01T01:00:00Z,1,1,1,1,1\n2024-01-01T00:00:00Z,1,1,1,1,1\n",
		"duplicate ts":  "2024-01-01T00:00:00Z,1,1,1,1,1\n2024-01-01T00:00:00Z,1,1,1,1,1\n",
		"zero close":    "2024-01-01T00:00:00Z,1,1,1,0,1\n",
		"bad number":    "2024-01-01T00:00:00Z,1,1,1,x,1\n",
		"short row":     "2024-01-01T00:00:00Z,1,1,1\n",
		"bad timestamp": "2024-13-01,1,1,1,1,1\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ReadCSV(context.Background(), strings.NewReader(body), time.Time{}, time.Time{})
			assert.Error(t, err)
		})
	}
}

func TestCSVSource_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "candles.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	src := NewCSVSource(path, zap.NewNop())
	cs, err := src.Load(context.Background(), "ETHUSDT", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, cs, 4)
	assert.Equal(t, "csv", src.Name())

	_, err = NewCSVSource(filepath.Join(t.TempDir(), "missing.csv"), zap.NewNop()).
		Load(context.Background(), "ETHUSDT", time.Time{}, time.Time{})
	assert.Error(t, err)
}

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("2024-01-01 05:00:00")
	require.NoError(t, err)
	assert.Equal(t, 5, ts.Hour())

	_, err = ParseTimestamp("yesterday")
	assert.Error(t, err)
}
