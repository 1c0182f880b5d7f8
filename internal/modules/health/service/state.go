package service

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"backtest_bot/internal/models"
)

// State: прогресс прогонов для /healthz. Обновляется из цикла симуляции как Observer.
type State struct {
	ready     atomic.Bool
	running   atomic.Bool
	startedAt time.Time

	steps          atomic.Int64
	trades         atomic.Int64
	runs           atomic.Int64
	lastCandleUnix atomic.Int64 // unix seconds
	equityBits     atomic.Uint64

	mu        sync.Mutex
	runID     string
	lastError string
}

func NewState() *State {
	s := &State{startedAt: time.Now()}
	s.ready.Store(false)
	return s
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

func (s *State) Running() bool { return s.running.Load() }

// RunStarted сбрасывает счётчики шага под новый прогон.
func (s *State) RunStarted(runID string) {
	s.mu.Lock()
	s.runID = runID
	s.mu.Unlock()
	s.steps.Store(0)
	s.trades.Store(0)
	s.lastCandleUnix.Store(0)
	s.running.Store(true)
}

func (s *State) RunFinished(err error) {
	s.mu.Lock()
	if err != nil {
		s.lastError = err.Error()
	} else {
		s.lastError = ""
	}
	s.mu.Unlock()
	s.runs.Add(1)
	s.running.Store(false)
}

func (s *State) OnStep(step int, c models.Candle, equity float64) {
	s.steps.Store(int64(step))
	s.lastCandleUnix.Store(c.Time.Unix())
	s.equityBits.Store(math.Float64bits(equity))
}

func (s *State) OnTrade(models.Trade) { s.trades.Add(1) }

func (s *State) Steps() int64  { return s.steps.Load() }
func (s *State) Trades() int64 { return s.trades.Load() }
func (s *State) Runs() int64   { return s.runs.Load() }
func (s *State) Equity() float64 {
	return math.Float64frombits(s.equityBits.Load())
}

func (s *State) LastCandle() time.Time {
	u := s.lastCandleUnix.Load()
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0).UTC()
}

func (s *State) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

func (s *State) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
