package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"backtest_bot/internal/models"
)

var (
	ErrOutOfOrder    = errors.New("candle is not after the previous one")
	ErrInvalidCandle = errors.New("candle has non-finite or non-positive values")
)

const defaultWarmup = 26

// SignalSource: индикаторная стратегия.
type SignalSource interface {
	Evaluate(history []models.Candle) models.Signal
}

// Predictor: переобучаемая модель.
type Predictor interface {
	ShouldRetrain(step int, now time.Time) bool
	MinHistory() int
	Train(history []models.Candle, step int, now time.Time) error
	Predict(history []models.Candle) models.Signal
}

// RiskSizer: размер позиции и дневные лимиты.
type RiskSizer interface {
	UpdateDailyMetrics() bool
	CanOpenPosition(symbol string, balance, price float64) bool
	CalculatePositionSize(balance, price, confidence float64) float64
	UpdatePosition(symbol string, side models.Side, entryPrice, currentPrice, size float64)
	ClosePosition(symbol string, exitPrice float64) (float64, bool)
}

// Observer получает каждый шаг и каждую закрытую сделку. Вызывается синхронно из цикла.
type Observer interface {
	OnStep(step int, candle models.Candle, equity float64)
	OnTrade(trade models.Trade)
}

type Options struct {
	Symbol         string
	InitialBalance float64
	Warmup         int
	TieBreak       TieBreak
}

func (o Options) Validate() error {
	if o.Symbol == "" {
		return errors.New("run symbol is required")
	}
	if o.InitialBalance <= 0 {
		return errors.Errorf("run initial_balance must be > 0, got %v", o.InitialBalance)
	}
	if o.Warmup < 1 {
		return errors.Errorf("run warmup must be >= 1, got %d", o.Warmup)
	}
	if _, err := ParseTieBreak(string(o.TieBreak)); err != nil {
		return err
	}
	return nil
}

// Result: состояние симуляции после прогона.
type Result struct {
	Steps        int
	Entries      int
	Balance      float64
	Trades       []models.Trade
	Equity       []models.EquityPoint
	OpenPosition *models.Position
}

// Simulator прогоняет свечи по одной и держит не больше одной позиции.
// Не потокобезопасен, на каждый прогон свой экземпляр.
type Simulator struct {
	opts      Options
	log       *zap.Logger
	strategy  SignalSource
	model     Predictor
	sizer     RiskSizer
	clock     *Clock
	observers []Observer

	history  []models.Candle
	step     int
	entries  int
	balance  float64
	position models.Position
	trades   []models.Trade
	equity   []models.EquityPoint
}

type Deps struct {
	Strategy  SignalSource
	Model     Predictor
	Sizer     RiskSizer
	Clock     *Clock // nil: свои часы
	Observers []Observer
}

func NewSimulator(opts Options, deps Deps, log *zap.Logger) (*Simulator, error) {
	if opts.Warmup == 0 {
		opts.Warmup = defaultWarmup
	}
	if opts.TieBreak == "" {
		opts.TieBreak = TieBreakLong
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if deps.Strategy == nil || deps.Model == nil || deps.Sizer == nil {
		return nil, errors.New("simulator needs strategy, model and sizer")
	}
	clock := deps.Clock
	if clock == nil {
		clock = NewClock()
	}
	return &Simulator{
		opts:      opts,
		log:       log,
		strategy:  deps.Strategy,
		model:     deps.Model,
		sizer:     deps.Sizer,
		clock:     clock,
		observers: deps.Observers,
		balance:   opts.InitialBalance,
		position:  models.Position{Symbol: opts.Symbol},
		equity:    []models.EquityPoint{{Equity: opts.InitialBalance}},
	}, nil
}

// Now: время последней принятой свечи.
func (s *Simulator) Now() time.Time { return s.clock.Now() }

func (s *Simulator) Balance() float64 { return s.balance }

func (s *Simulator) Position() models.Position { return s.position }

// Step обрабатывает одну свечу. Свеча не позже предыдущей или битая отклоняется,
// шаг при этом не засчитывается.
func (s *Simulator) Step(c models.Candle) error {
	if !c.Valid() {
		return errors.Wrapf(ErrInvalidCandle, "candle at %s", c.Time.Format(time.RFC3339))
	}
	if n := len(s.history); n > 0 && !c.Time.After(s.history[n-1].Time) {
		return errors.Wrapf(ErrOutOfOrder, "candle at %s after %s",
			c.Time.Format(time.RFC3339), s.history[n-1].Time.Format(time.RFC3339))
	}

	s.clock.Set(c.Time)
	s.history = append(s.history, c)
	s.step++

	if len(s.history) < s.opts.Warmup {
		s.markToMarket(c)
		return nil
	}

	if s.model.ShouldRetrain(s.step, c.Time) && len(s.history) >= s.model.MinHistory() {
		if err := s.model.Train(s.history, s.step, c.Time); err != nil {
			s.log.Warn("model training failed", zap.Int("step", s.step), zap.Error(err))
		}
	}

	a := s.strategy.Evaluate(s.history)
	b := s.model.Predict(s.history)
	fused := Fuse(s.opts.TieBreak, a, b)

	s.sizer.UpdateDailyMetrics()

	switch {
	case s.position.IsFlat():
		if fused.Side != models.SideNone {
			s.open(c, fused)
		}
	case fused.Side == s.position.Side.Opposite():
		s.close(c)
	}

	s.markToMarket(c)
	return nil
}

func (s *Simulator) open(c models.Candle, sig models.Signal) {
	if !s.sizer.CanOpenPosition(s.opts.Symbol, s.balance, c.Close) {
		return
	}
	notional := s.sizer.CalculatePositionSize(s.balance, c.Close, sig.Confidence)
	if notional <= 0 {
		return
	}

	s.position = models.Position{
		Symbol:    s.opts.Symbol,
		Side:      sig.Side,
		Qty:       notional / c.Close,
		Entry:     c.Close,
		EntryTime: c.Time,
	}
	s.sizer.UpdatePosition(s.opts.Symbol, sig.Side, c.Close, c.Close, notional)
	s.entries++

	s.log.Debug("position opened",
		zap.Int("step", s.step),
		zap.String("side", sig.Side.String()),
		zap.Float64("qty", s.position.Qty),
		zap.Float64("price", c.Close),
		zap.Float64("confidence", sig.Confidence),
		zap.String("reason", sig.Reason),
	)
}

func (s *Simulator) close(c models.Candle) {
	p := s.position
	pnl := p.Unrealized(c.Close)
	s.balance += pnl

	trade := models.Trade{
		Symbol:    p.Symbol,
		Side:      p.Side,
		Qty:       p.Qty,
		Entry:     p.Entry,
		Exit:      c.Close,
		EntryTime: p.EntryTime,
		ExitTime:  c.Time,
		PnL:       pnl,
	}
	if n := p.Notional(); n != 0 {
		trade.ReturnPct = pnl / n * 100
	}
	s.trades = append(s.trades, trade)

	if _, ok := s.sizer.ClosePosition(s.opts.Symbol, c.Close); !ok {
		s.log.Warn("sizer had no record of the closed position", zap.String("symbol", s.opts.Symbol))
	}
	s.position = models.Position{Symbol: s.opts.Symbol}

	s.log.Debug("position closed",
		zap.Int("step", s.step),
		zap.String("side", trade.Side.String()),
		zap.Float64("pnl", pnl),
		zap.Float64("return_pct", trade.ReturnPct),
	)
	for _, o := range s.observers {
		o.OnTrade(trade)
	}
}

func (s *Simulator) markToMarket(c models.Candle) {
	eq := s.balance + s.position.Unrealized(c.Close)
	s.equity = append(s.equity, models.EquityPoint{Time: c.Time, Equity: eq})
	for _, o := range s.observers {
		o.OnStep(s.step, c, eq)
	}
}

// Run прогоняет все свечи. Отмена контекста проверяется между шагами.
func (s *Simulator) Run(ctx context.Context, candles []models.Candle) error {
	for i, c := range candles {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Step(c); err != nil {
			return errors.Wrapf(err, "step %d", i)
		}
	}
	return nil
}

// Result отдаёт копии журнала сделок и кривой капитала.
func (s *Simulator) Result() Result {
	r := Result{
		Steps:   s.step,
		Entries: s.entries,
		Balance: s.balance,
		Trades:  append([]models.Trade(nil), s.trades...),
		Equity:  append([]models.EquityPoint(nil), s.equity...),
	}
	if !s.position.IsFlat() {
		p := s.position
		r.OpenPosition = &p
	}
	return r
}
