package service

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"backtest_bot/internal/models"
)

// FileRecorder складывает прогон в <dir>/<run_id>/: trades.csv, equity.csv,
// summary.yaml и полный report.json.
type FileRecorder struct {
	dir string
	log *zap.Logger
}

func NewFileRecorder(dir string, log *zap.Logger) (*FileRecorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create report dir %s", dir)
	}
	return &FileRecorder{dir: dir, log: log}, nil
}

func (r *FileRecorder) Record(ctx context.Context, report *models.Report) error {
	dir := filepath.Join(r.dir, report.RunID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create run dir %s", dir)
	}

	if err := writeTradesCSV(filepath.Join(dir, "trades.csv"), report.Trades); err != nil {
		return err
	}
	if err := writeEquityCSV(filepath.Join(dir, "equity.csv"), report.Equity); err != nil {
		return err
	}

	summary := NewSummary(report)
	bs, err := yaml.Marshal(summary)
	if err != nil {
		return errors.Wrap(err, "marshal summary")
	}
	if err := os.WriteFile(filepath.Join(dir, "summary.yaml"), bs, 0o644); err != nil {
		return errors.Wrap(err, "write summary.yaml")
	}

	full := struct {
		Summary
		Trades []models.Trade       `json:"trades"`
		Equity []models.EquityPoint `json:"equity"`
	}{summary, report.Trades, report.Equity}
	js, err := sonic.ConfigStd.MarshalIndent(full, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal report")
	}
	if err := os.WriteFile(filepath.Join(dir, "report.json"), js, 0o644); err != nil {
		return errors.Wrap(err, "write report.json")
	}

	r.log.Info("report written", zap.String("dir", dir))
	return nil
}

func (r *FileRecorder) Close() error { return nil }

func writeTradesCSV(path string, trades []models.Trade) error {
	rows := make([][]string, 0, len(trades)+1)
	rows = append(rows, []string{"symbol", "side", "qty", "entry", "exit", "entry_time", "exit_time", "pnl", "return_pct"})
	for _, t := range trades {
		rows = append(rows, []string{
			t.Symbol,
			t.Side.String(),
			ftoa(t.Qty),
			ftoa(t.Entry),
			ftoa(t.Exit),
			t.EntryTime.UTC().Format(time.RFC3339),
			t.ExitTime.UTC().Format(time.RFC3339),
			ftoa(t.PnL),
			ftoa(t.ReturnPct),
		})
	}
	return writeCSV(path, rows)
}

func writeEquityCSV(path string, equity []models.EquityPoint) error {
	rows := make([][]string, 0, len(equity)+1)
	rows = append(rows, []string{"ts", "equity"})
	for _, p := range equity {
		ts := ""
		if !p.Time.IsZero() {
			ts = p.Time.UTC().Format(time.RFC3339)
		}
		rows = append(rows, []string{ts, ftoa(p.Equity)})
	}
	return writeCSV(path, rows)
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

func ftoa(v float64) string {
	return strconv.FormatFloat(round(v, pricePlaces), 'f', -1, 64)
}
