package service

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"backtest_bot/internal/helper"
	"backtest_bot/internal/models"
)

// Options: дневные лимиты и диапазон риска на сделку в процентах баланса.
type Options struct {
	MaxDailyTrades  int
	MaxDailyLossPct float64
	BaseRiskPct     float64
	MaxRiskPct      float64
}

func (o Options) Validate() error {
	if o.MaxDailyTrades < 1 {
		return errors.Errorf("risk max_daily_trades must be >= 1, got %d", o.MaxDailyTrades)
	}
	if o.MaxDailyLossPct < 0 || o.MaxDailyLossPct > 100 {
		return errors.Errorf("risk max_daily_loss_pct must be in [0,100], got %v", o.MaxDailyLossPct)
	}
	if o.BaseRiskPct < 0 {
		return errors.Errorf("risk base_risk_pct must be >= 0, got %v", o.BaseRiskPct)
	}
	if o.MaxRiskPct < o.BaseRiskPct {
		return errors.Errorf("risk max_risk_pct %v is below base_risk_pct %v", o.MaxRiskPct, o.BaseRiskPct)
	}
	return nil
}

// OpenPosition: то, что сайзер помнит про открытую позицию. Size: номинал в валюте котировки.
type OpenPosition struct {
	Symbol       string
	Side         models.Side
	EntryPrice   float64
	CurrentPrice float64
	Size         float64
	EntryTime    time.Time
}

type DailyMetrics struct {
	Day           time.Time
	Trades        int
	PnL           float64
	OpenPositions int
}

type Option func(*Sizer)

// WithClock подменяет часы. В симуляции сюда передают время текущей свечи.
func WithClock(now func() time.Time) Option {
	return func(s *Sizer) { s.now = now }
}

// Sizer считает размер позиции и ведёт дневные лимиты. Позицию он не исполняет,
// только учитывает.
type Sizer struct {
	opts Options
	log  *zap.Logger
	now  func() time.Time

	mu          sync.Mutex
	day         time.Time
	dailyTrades int
	dailyPnL    float64
	positions   map[string]OpenPosition
}

func NewSizer(opts Options, log *zap.Logger, options ...Option) (*Sizer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	s := &Sizer{
		opts:      opts,
		log:       log,
		now:       time.Now,
		positions: make(map[string]OpenPosition),
	}
	for _, o := range options {
		o(s)
	}
	return s, nil
}

// UpdateDailyMetrics обнуляет дневные счётчики при смене календарного дня (UTC).
// Возвращает true, если сброс был. Повторный вызов в тот же день ничего не меняет.
func (s *Sizer) UpdateDailyMetrics() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rollDay()
}

func (s *Sizer) rollDay() bool {
	now := s.now()
	if !s.day.IsZero() && helper.SameDay(now, s.day) {
		return false
	}
	today := helper.DayStart(now)
	s.day = today
	s.dailyTrades = 0
	s.dailyPnL = 0
	s.log.Debug("daily metrics reset", zap.Time("day", today))
	return true
}

// CalculatePositionSize возвращает номинал сделки: balance * risk% / 100,
// где risk% растёт от BaseRiskPct до MaxRiskPct вместе с уверенностью.
func (s *Sizer) CalculatePositionSize(balance, price, confidence float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollDay()

	if s.dailyTrades >= s.opts.MaxDailyTrades {
		s.log.Debug("daily trade limit reached", zap.Int("trades", s.dailyTrades))
		return 0
	}
	if balance <= 0 || !helper.Finite(balance, price) {
		return 0
	}

	riskPct := s.opts.BaseRiskPct + (s.opts.MaxRiskPct-s.opts.BaseRiskPct)*helper.Clamp01(confidence)
	return min(balance*riskPct/100, balance)
}

func (s *Sizer) CanOpenPosition(symbol string, balance, price float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollDay()

	if _, ok := s.positions[symbol]; ok {
		s.log.Debug("position already open", zap.String("symbol", symbol))
		return false
	}
	if s.dailyTrades >= s.opts.MaxDailyTrades {
		s.log.Debug("daily trade limit reached", zap.Int("trades", s.dailyTrades))
		return false
	}
	if s.dailyPnL <= -s.opts.MaxDailyLossPct*balance/100 {
		s.log.Debug("daily loss limit reached", zap.Float64("daily_pnl", s.dailyPnL))
		return false
	}
	return true
}

// UpdatePosition запоминает позицию и засчитывает сделку в дневной лимит.
func (s *Sizer) UpdatePosition(symbol string, side models.Side, entryPrice, currentPrice, size float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollDay()

	s.positions[symbol] = OpenPosition{
		Symbol:       symbol,
		Side:         side,
		EntryPrice:   entryPrice,
		CurrentPrice: currentPrice,
		Size:         size,
		EntryTime:    s.now(),
	}
	s.dailyTrades++
}

// ClosePosition снимает позицию и добавляет её PnL к дневному. ok=false: позиции не было.
func (s *Sizer) ClosePosition(symbol string, exitPrice float64) (pnl float64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollDay()

	p, ok := s.positions[symbol]
	if !ok {
		s.log.Warn("no open position", zap.String("symbol", symbol))
		return 0, false
	}
	if p.EntryPrice != 0 {
		pnl = p.Side.Sign() * p.Size * (exitPrice - p.EntryPrice) / p.EntryPrice
	}
	s.dailyPnL += pnl
	delete(s.positions, symbol)
	return pnl, true
}

func (s *Sizer) PositionInfo(symbol string) (OpenPosition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[symbol]
	return p, ok
}

func (s *Sizer) DailyMetrics() DailyMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return DailyMetrics{
		Day:           s.day,
		Trades:        s.dailyTrades,
		PnL:           s.dailyPnL,
		OpenPositions: len(s.positions),
	}
}
