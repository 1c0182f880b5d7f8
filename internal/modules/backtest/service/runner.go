package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"backtest_bot/internal/models"
	candles "backtest_bot/internal/modules/candles/service"
	"backtest_bot/internal/modules/config"
	health "backtest_bot/internal/modules/health/service"
	predictor "backtest_bot/internal/modules/predictor/service"
	recorder "backtest_bot/internal/modules/recorder/service"
	risk "backtest_bot/internal/modules/risk/service"
	strategy "backtest_bot/internal/modules/strategy/service"
	"backtest_bot/internal/notify"
	"backtest_bot/pkg/tracing"
)

// Runner выполняет один полный прогон: загрузка свечей, симуляция, метрики, запись и уведомление.
// Прогоны по расписанию идут строго по очереди.
type Runner struct {
	opts     Options
	sharpe   SharpeMode
	from, to time.Time
	log      *zap.Logger
	strategy strategy.Engine
	models   predictor.Factory
	sizers   risk.Factory
	source   candles.Source
	recorder recorder.Recorder
	notifier notify.Notifier
	state    *health.State

	mu sync.Mutex
}

func NewRunner(
	cfg *config.Config,
	log *zap.Logger,
	engine strategy.Engine,
	modelFactory predictor.Factory,
	sizerFactory risk.Factory,
	source candles.Source,
	rec recorder.Recorder,
	notifier notify.Notifier,
	state *health.State,
) (*Runner, error) {
	tb, err := ParseTieBreak(cfg.Run.TieBreak)
	if err != nil {
		return nil, err
	}
	sharpe, err := ParseSharpeMode(cfg.Run.SharpeMode)
	if err != nil {
		return nil, err
	}
	// разогрев не короче, чем нужно стратегии
	warmup := cfg.Run.Warmup
	if engine != nil {
		warmup = max(warmup, engine.Warmup())
	}
	opts := Options{
		Symbol:         cfg.Run.Symbol,
		InitialBalance: cfg.Run.InitialBalance,
		Warmup:         warmup,
		TieBreak:       tb,
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	from, to, err := cfg.Data.Range()
	if err != nil {
		return nil, err
	}

	return &Runner{
		opts:     opts,
		sharpe:   sharpe,
		from:     from,
		to:       to,
		log:      log.Named("backtest"),
		strategy: engine,
		models:   modelFactory,
		sizers:   sizerFactory,
		source:   source,
		recorder: rec,
		notifier: notifier,
		state:    state,
	}, nil
}

// Run выполняет прогон. Отчёт возвращается и при ошибке записи: симуляция уже прошла.
func (r *Runner) Run(ctx context.Context) (*models.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	runID := uuid.NewString()
	log := r.log.With(zap.String("run_id", runID), zap.String("symbol", r.opts.Symbol))

	span, ctx := tracing.StartSpan(ctx, "backtest.run", map[string]any{
		"run_id":   runID,
		"symbol":   r.opts.Symbol,
		"source":   r.source.Name(),
		"strategy": r.strategy.Name(),
		"warmup":   r.opts.Warmup,
	})
	defer span.Finish()

	r.state.RunStarted(runID)
	report, err := r.run(ctx, runID, log)
	r.state.RunFinished(err)
	tracing.Fail(span, err)
	return report, err
}

func (r *Runner) run(ctx context.Context, runID string, log *zap.Logger) (*models.Report, error) {
	startedAt := time.Now()

	history, err := r.load(ctx)
	if err != nil {
		log.Error("load candles", zap.Error(err))
		return nil, err
	}
	log.Info("backtest started", zap.Int("candles", len(history)), zap.String("source", r.source.Name()))

	clock := NewClock()
	model := r.models()
	sizer := r.sizers(clock.Now)
	sim, err := NewSimulator(r.opts, Deps{
		Strategy:  r.strategy,
		Model:     model,
		Sizer:     sizer,
		Clock:     clock,
		Observers: []Observer{r.state},
	}, log)
	if err != nil {
		return nil, err
	}

	simSpan, simCtx := tracing.StartSpan(ctx, "backtest.simulate", map[string]any{"candles": len(history)})
	err = sim.Run(simCtx, history)
	tracing.Fail(simSpan, err)
	simSpan.Finish()
	if err != nil {
		log.Error("simulation stopped", zap.Error(err))
		return nil, errors.Wrap(err, "simulate")
	}

	res := sim.Result()
	report := &models.Report{
		RunID:        runID,
		Symbol:       r.opts.Symbol,
		Source:       r.source.Name(),
		Strategy:     r.strategy.Name(),
		StartedAt:    startedAt,
		FinishedAt:   time.Now(),
		Steps:        res.Steps,
		Entries:      res.Entries,
		Metrics:      ComputeMetrics(res.Trades, res.Equity, r.opts.InitialBalance, res.Balance, r.sharpe),
		Model:        modelInfo(model),
		Daily:        dailyInfo(sizer.DailyMetrics()),
		Trades:       res.Trades,
		Equity:       res.Equity,
		OpenPosition: res.OpenPosition,
	}
	if res.OpenPosition != nil {
		if info, ok := sizer.PositionInfo(r.opts.Symbol); ok {
			log.Info("position left open",
				zap.String("side", info.Side.String()),
				zap.Float64("entry", info.EntryPrice),
				zap.Float64("notional", info.Size),
				zap.Time("entry_time", info.EntryTime),
			)
		}
	}

	m := report.Metrics
	log.Info("backtest completed",
		zap.Int("steps", report.Steps),
		zap.Int("trades", m.TotalTrades),
		zap.Float64("win_rate", m.WinRate),
		zap.Float64("profit_factor", m.ProfitFactor),
		zap.Float64("sharpe", m.SharpeRatio),
		zap.Float64("max_drawdown", m.MaxDrawdown),
		zap.Float64("total_return", m.TotalReturn),
		zap.Bool("open_position", report.OpenPosition != nil),
		zap.Bool("model_trained", report.Model.Trained),
		zap.Float64("model_accuracy", report.Model.Accuracy),
	)
	if m.TotalTrades == 0 {
		log.Warn("no trades were executed during the backtest period")
	}

	recSpan, recCtx := tracing.StartSpan(ctx, "backtest.record", nil)
	recErr := r.recorder.Record(recCtx, report)
	tracing.Fail(recSpan, recErr)
	recSpan.Finish()
	if recErr != nil {
		log.Error("record report", zap.Error(recErr))
	}

	r.notifier.Send(notify.FormatReport(report))
	return report, errors.Wrap(recErr, "record report")
}

func modelInfo(m *predictor.Model) models.ModelInfo {
	step, at, acc, ok := m.LastTrained()
	return models.ModelInfo{Trained: ok, Step: step, TrainedAt: at, Accuracy: acc}
}

func dailyInfo(d risk.DailyMetrics) models.DailyInfo {
	return models.DailyInfo{Day: d.Day, Trades: d.Trades, PnL: d.PnL, OpenPositions: d.OpenPositions}
}

func (r *Runner) load(ctx context.Context) ([]models.Candle, error) {
	span, ctx := tracing.StartSpan(ctx, "backtest.load", map[string]any{"source": r.source.Name()})
	defer span.Finish()

	history, err := r.source.Load(ctx, r.opts.Symbol, r.from, r.to)
	if err == nil && len(history) == 0 {
		err = candles.ErrNoCandles
	}
	tracing.Fail(span, err)
	return history, errors.Wrap(err, "load candles")
}
