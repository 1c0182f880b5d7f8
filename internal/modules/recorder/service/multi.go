package service

import (
	"context"

	"go.uber.org/multierr"

	"backtest_bot/internal/models"
)

// Multi пишет в несколько хранилищ. Ошибка одного не мешает остальным.
type Multi struct {
	recorders []Recorder
}

func NewMulti(recorders ...Recorder) *Multi {
	return &Multi{recorders: recorders}
}

func (m *Multi) Len() int { return len(m.recorders) }

func (m *Multi) Record(ctx context.Context, report *models.Report) error {
	var err error
	for _, r := range m.recorders {
		err = multierr.Append(err, r.Record(ctx, report))
	}
	return err
}

func (m *Multi) Close() error {
	var err error
	for _, r := range m.recorders {
		err = multierr.Append(err, r.Close())
	}
	return err
}
