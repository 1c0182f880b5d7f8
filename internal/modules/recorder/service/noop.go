package service

import (
	"context"

	"backtest_bot/internal/models"
)

// Noop: когда ни одно хранилище не настроено.
type Noop struct{}

func NewNoop() *Noop { return &Noop{} }

func (Noop) Record(context.Context, *models.Report) error { return nil }
func (Noop) Close() error                                 { return nil }
