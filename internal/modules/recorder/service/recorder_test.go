package service

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"backtest_bot/internal/models"
)

func sampleReport() *models.Report {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &models.Report{
		RunID:      "7f0c4c3e-3f7e-4a8a-9a51-2a7c1c0b9d11",
		Symbol:     "ETHUSDT",
		Source:     "random",
		StartedAt:  start,
		FinishedAt: start.Add(time.Second),
		Steps:      3,
		Entries:    1,
		Metrics: models.Metrics{
			TotalTrades:    1,
			WinRate:        100,
			ProfitFactor:   math.Inf(1),
			TotalReturn:    10,
			InitialBalance: 1000,
			FinalBalance:   1100,
		},
		Trades: []models.Trade{{
			Symbol: "ETHUSDT", Side: models.SideLong, Qty: 10, Entry: 100, Exit: 110,
			EntryTime: start, ExitTime: start.Add(time.Hour), PnL: 100, ReturnPct: 10,
		}},
		Equity: []models.EquityPoint{
			{Equity: 1000},
			{Time: start, Equity: 1000},
			{Time: start.Add(time.Hour), Equity: 1100},
			{Time: start.Add(2 * time.Hour), Equity: 1100},
		},
	}
}

func TestNewMetricsRow_Inf(t *testing.T) {
	row := NewMetricsRow(models.Metrics{ProfitFactor: math.Inf(1), WinRate: 33.333333333})
	assert.Nil(t, row.ProfitFactor)
	assert.True(t, row.ProfitFactorInf)
	assert.Equal(t, 33.3333, row.WinRate)

	row = NewMetricsRow(models.Metrics{ProfitFactor: 1.5})
	require.NotNil(t, row.ProfitFactor)
	assert.Equal(t, 1.5, *row.ProfitFactor)
	assert.False(t, row.ProfitFactorInf)
}

func TestNumeric(t *testing.T) {
	assert.Nil(t, numeric(math.Inf(1)))
	assert.Nil(t, numeric(math.NaN()))
	require.NotNil(t, numeric(0.1+0.2))
	assert.Equal(t, "0.3", *numeric(0.1 + 0.2))
}

func TestFileRecorder(t *testing.T) {
	dir := t.TempDir()
	r, err := NewFileRecorder(dir, zap.NewNop())
	require.NoError(t, err)

	report := sampleReport()
	require.NoError(t, r.Record(context.Background(), report))

	runDir := filepath.Join(dir, report.RunID)
	trades, err := os.ReadFile(filepath.Join(runDir, "trades.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(trades), "ETHUSDT,LONG,10,100,110,2024-01-01T00:00:00Z,2024-01-01T01:00:00Z,100,10")

	equity, err := os.ReadFile(filepath.Join(runDir, "equity.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(equity), "ts,equity\n,1000\n")

	bs, err := os.ReadFile(filepath.Join(runDir, "summary.yaml"))
	require.NoError(t, err)
	var summary Summary
	require.NoError(t, yaml.Unmarshal(bs, &summary))
	assert.Equal(t, report.RunID, summary.RunID)
	assert.True(t, summary.Metrics.ProfitFactorInf)
	assert.Nil(t, summary.Metrics.ProfitFactor)

	js, err := os.ReadFile(filepath.Join(runDir, "report.json"))
	require.NoError(t, err)
	var full struct {
		RunID  string         `json:"run_id"`
		Trades []models.Trade `json:"trades"`
	}
	require.NoError(t, sonic.Unmarshal(js, &full))
	assert.Equal(t, report.RunID, full.RunID)
	assert.Len(t, full.Trades, 1)
}

func TestSQLiteRecorder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	r, err := NewSQLiteRecorder(path, zap.NewNop())
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Record(context.Background(), sampleReport()))
	n, err := r.RunCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// повторный run_id нарушает первичный ключ
	assert.Error(t, r.Record(context.Background(), sampleReport()))
}

type failingRecorder struct {
	calls int
}

func (f *failingRecorder) Record(context.Context, *models.Report) error {
	f.calls++
	return errors.New("disk full")
}
func (f *failingRecorder) Close() error { return nil }

func TestMulti(t *testing.T) {
	bad := &failingRecorder{}
	dir := t.TempDir()
	file, err := NewFileRecorder(dir, zap.NewNop())
	require.NoError(t, err)

	m := NewMulti(bad, file, NewNoop())
	assert.Equal(t, 3, m.Len())

	report := sampleReport()
	err = m.Record(context.Background(), report)
	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, 1, bad.calls)

	// файловое хранилище всё равно записало отчёт
	_, statErr := os.Stat(filepath.Join(dir, report.RunID, "report.json"))
	assert.NoError(t, statErr)
	assert.NoError(t, m.Close())
}

func TestNoop(t *testing.T) {
	n := NewNoop()
	assert.NoError(t, n.Record(context.Background(), sampleReport()))
	assert.NoError(t, n.Close())
}
