package service

import (
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"backtest_bot/internal/helper"
	"backtest_bot/internal/models"
)

const bollingerName = "bollinger"

// BollingerConfig: параметры стратегии.
type BollingerConfig struct {
	Window    int     // W, сколько последних закрытий берём
	Deviation float64 // k, множитель стандартного отклонения для верхней полосы
}

func (c BollingerConfig) Validate() error {
	if c.Window < 1 {
		return errors.Errorf("strategy window must be >= 1, got %d", c.Window)
	}
	if c.Deviation <= 0 {
		return errors.Errorf("strategy deviation must be > 0, got %v", c.Deviation)
	}
	return nil
}

type Bands struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// Bollinger это полосная стратегия, покупка у средней, продажа от верхней полосы.
type Bollinger struct {
	cfg BollingerConfig
	log *zap.Logger
}

func NewBollinger(cfg BollingerConfig, log *zap.Logger) (*Bollinger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Bollinger{cfg: cfg, log: log}, nil
}

func (b *Bollinger) Name() string { return bollingerName }
func (b *Bollinger) Warmup() int  { return b.cfg.Window }

// Bands считает полосы по последним W закрытиям. ok=false, если точек меньше W
// или среди них есть NaN/Inf.
func (b *Bollinger) Bands(history []models.Candle) (Bands, bool) {
	n := b.cfg.Window
	if len(history) < n {
		return Bands{}, false
	}
	window := models.Closes(history[len(history)-n:])
	if !helper.Finite(window...) {
		return Bands{}, false
	}
	mean, std := stat.PopMeanStdDev(window, nil)
	return Bands{
		Upper:  mean + b.cfg.Deviation*std,
		Middle: mean,
		Lower:  mean - b.cfg.Deviation*std,
	}, true
}

// Evaluate: Long при close <= средней, Short при close >= верхней полосы.
// Если выполняются оба условия (окно без разброса), побеждает Short.
func (b *Bollinger) Evaluate(history []models.Candle) models.Signal {
	bands, ok := b.Bands(history)
	if !ok {
		return models.Neutral(bollingerName)
	}
	last := history[len(history)-1].Close

	side := models.SideNone
	if last <= bands.Middle {
		side = models.SideLong
	}
	if last >= bands.Upper {
		side = models.SideShort
	}

	if side == models.SideNone {
		return models.Neutral(bollingerName)
	}

	reason := fmt.Sprintf("BB[%d,%.2f] close=%.6f mid=%.6f up=%.6f", b.cfg.Window, b.cfg.Deviation, last, bands.Middle, bands.Upper)
	b.log.Debug("band signal", zap.String("side", side.String()), zap.String("reason", reason))

	return models.Signal{
		Side:       side,
		Confidence: 1.0,
		Source:     bollingerName,
		Reason:     reason,
	}
}
