package service

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"backtest_bot/internal/models"
)

// CSVSource читает файл вида timestamp,open,high,low,close,volume.
// timestamp: RFC3339 или unix в секундах/миллисекундах. Строка заголовка пропускается.
type CSVSource struct {
	path string
	log  *zap.Logger
}

func NewCSVSource(path string, log *zap.Logger) *CSVSource {
	return &CSVSource{path: path, log: log}
}

func (s *CSVSource) Name() string { return "csv" }

func (s *CSVSource) Load(ctx context.Context, symbol string, from, to time.Time) ([]models.Candle, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", s.path)
	}
	defer f.Close()

	out, err := ReadCSV(ctx, f, from, to)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", s.path)
	}
	s.log.Info("candles loaded",
		zap.String("source", s.Name()),
		zap.String("path", s.path),
		zap.String("symbol", symbol),
		zap.Int("count", len(out)),
	)
	return out, nil
}

// ReadCSV разбирает свечи из r и оставляет только попавшие в [from, to].
func ReadCSV(ctx context.Context, r io.Reader, from, to time.Time) ([]models.Candle, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	var out []models.Candle
	for line := 1; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		if len(rec) == 0 || (len(rec) == 1 && strings.TrimSpace(rec[0]) == "") {
			continue
		}
		if line == 1 && isHeader(rec) {
			continue
		}
		if len(rec) < 6 {
			return nil, errors.Errorf("line %d: want 6 columns, got %d", line, len(rec))
		}

		c, err := parseRecord(rec)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		if inRange(c.Time, from, to) {
			out = append(out, c)
		}
	}

	if err := validate(out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNoCandles
	}
	return out, nil
}

func isHeader(rec []string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(rec[len(rec)-1]), 64)
	return err != nil
}

func parseRecord(rec []string) (models.Candle, error) {
	ts, err := ParseTimestamp(rec[0])
	if err != nil {
		return models.Candle{}, err
	}
	var vals [5]float64
	for i := range vals {
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[i+1]), 64)
		if err != nil {
			return models.Candle{}, errors.Wrapf(err, "column %d", i+2)
		}
		vals[i] = v
	}
	return models.Candle{
		Time:   ts,
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}

// ParseTimestamp понимает RFC3339, "2006-01-02 15:04:05" и unix-время.
// Число больше 1e12 считается миллисекундами.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n > 1e12 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	for _, layout := range []string{time.RFC3339, time.DateTime} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.Errorf("bad timestamp %q", raw)
}
