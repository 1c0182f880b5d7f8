package service

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"backtest_bot/internal/helper"
	"backtest_bot/internal/models"
)

const modelSource = "model"

// Options: настройки модели. RetrainInterval считается в симулированном времени
// и, если задан, важнее RetrainEvery.
type Options struct {
	Horizon         int
	MinSamples      int
	RetrainEvery    int
	RetrainInterval time.Duration
	WindowSize      int // 0: вся история
	Threshold       float64
	Tree            TreeOptions
}

func (o Options) Validate() error {
	if o.Horizon < 1 {
		return errors.Errorf("model horizon must be >= 1, got %d", o.Horizon)
	}
	if o.MinSamples < 1 {
		return errors.Errorf("model min_samples must be >= 1, got %d", o.MinSamples)
	}
	if o.RetrainInterval < 0 {
		return errors.Errorf("model retrain_interval must be >= 0, got %s", o.RetrainInterval)
	}
	if o.RetrainInterval == 0 && o.RetrainEvery < 1 {
		return errors.Errorf("model retrain_every must be >= 1, got %d", o.RetrainEvery)
	}
	if o.WindowSize < 0 {
		return errors.Errorf("model window_size must be >= 0, got %d", o.WindowSize)
	}
	if o.WindowSize > 0 && o.WindowSize < o.MinSamples+o.Horizon {
		return errors.Errorf("model window_size %d is smaller than min_samples+horizon %d",
			o.WindowSize, o.MinSamples+o.Horizon)
	}
	if o.Threshold < 0.5 || o.Threshold >= 1 {
		return errors.Errorf("model threshold must be in [0.5,1), got %v", o.Threshold)
	}
	return o.Tree.Validate()
}

// Classifier: бинарный классификатор. PredictProba возвращает [P(0), P(1)].
type Classifier interface {
	Fit(x [][]float64, y []int) error
	PredictProba(row []float64) ([2]float64, error)
}

// state: либо untrained, либо trained. Меняется только в Train.
type state interface{ isState() }

type untrained struct{}

type trained struct {
	clf      Classifier
	scaler   *Scaler
	step     int
	at       time.Time
	accuracy float64
}

func (untrained) isState() {}
func (trained) isState()   {}

type Option func(*Model)

// WithClassifier подменяет классификатор. newFn вызывается на каждое обучение,
// неудачное обучение не портит предыдущую модель.
func WithClassifier(newFn func() Classifier) Option {
	return func(m *Model) { m.newClassifier = newFn }
}

type Model struct {
	opts          Options
	log           *zap.Logger
	newClassifier func() Classifier
	state         state
}

func New(opts Options, log *zap.Logger, options ...Option) (*Model, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	m := &Model{
		opts:  opts,
		log:   log,
		state: untrained{},
	}
	m.newClassifier = func() Classifier { return NewDecisionTree(opts.Tree) }
	for _, o := range options {
		o(m)
	}
	return m, nil
}

// MinHistory: сколько свечей нужно, чтобы набрать MinSamples размеченных строк.
func (m *Model) MinHistory() int { return m.opts.MinSamples + m.opts.Horizon }

func (m *Model) Trained() bool {
	_, ok := m.state.(trained)
	return ok
}

// LastTrained: шаг, время и точность на обучении последней удачной тренировки.
func (m *Model) LastTrained() (step int, at time.Time, accuracy float64, ok bool) {
	s, ok := m.state.(trained)
	if !ok {
		return 0, time.Time{}, 0, false
	}
	return s.step, s.at, s.accuracy, true
}

func (m *Model) ShouldRetrain(step int, now time.Time) bool {
	s, ok := m.state.(trained)
	if !ok {
		return true
	}
	if m.opts.RetrainInterval > 0 {
		return now.Sub(s.at) >= m.opts.RetrainInterval
	}
	return step-s.step >= m.opts.RetrainEvery
}

func (m *Model) window(history []models.Candle) []models.Candle {
	if m.opts.WindowSize > 0 && len(history) > m.opts.WindowSize {
		return history[len(history)-m.opts.WindowSize:]
	}
	return history
}

// Train обучает модель на последних WindowSize свечах. Нехватка данных не ошибка:
// пишем предупреждение и остаёмся в прежнем состоянии.
func (m *Model) Train(history []models.Candle, step int, now time.Time) error {
	data := m.window(history)
	labels := Labels(data, m.opts.Horizon)
	if len(labels) < m.opts.MinSamples {
		m.log.Warn("not enough samples for training",
			zap.Int("need", m.opts.MinSamples),
			zap.Int("got", len(labels)),
		)
		return nil
	}

	rows, err := Features(data)
	if err != nil {
		return errors.Wrap(err, "build features")
	}
	rows = rows[:len(labels)]

	scaler, err := FitScaler(rows)
	if err != nil {
		return errors.Wrap(err, "fit scaler")
	}
	x, err := scaler.TransformAll(rows)
	if err != nil {
		return errors.Wrap(err, "scale features")
	}

	clf := m.newClassifier()
	if err := clf.Fit(x, labels); err != nil {
		return errors.Wrap(err, "fit classifier")
	}

	var hits int
	for i, row := range x {
		p, err := clf.PredictProba(row)
		if err != nil {
			return errors.Wrap(err, "evaluate classifier")
		}
		pred := 0
		if p[1] > p[0] {
			pred = 1
		}
		if pred == labels[i] {
			hits++
		}
	}
	accuracy := float64(hits) / float64(len(labels))

	m.state = trained{clf: clf, scaler: scaler, step: step, at: now, accuracy: accuracy}
	m.log.Info("model trained",
		zap.Int("step", step),
		zap.Int("samples", len(labels)),
		zap.Float64("accuracy", accuracy),
	)
	return nil
}

// Predict никогда не возвращает ошибку: при любой проблеме отдаёт нейтральный сигнал.
func (m *Model) Predict(history []models.Candle) models.Signal {
	s, ok := m.state.(trained)
	if !ok {
		return models.Neutral(modelSource)
	}

	rows, err := Features(m.window(history))
	if err != nil {
		m.log.Debug("predict: features", zap.Error(err))
		return models.Neutral(modelSource)
	}
	row, err := s.scaler.Transform(rows[len(rows)-1])
	if err != nil {
		m.log.Debug("predict: scale", zap.Error(err))
		return models.Neutral(modelSource)
	}
	p, err := s.clf.PredictProba(row)
	if err != nil || !helper.Finite(p[0], p[1]) {
		m.log.Debug("predict: classifier", zap.Error(err))
		return models.Neutral(modelSource)
	}

	down, up := helper.Clamp01(p[0]), helper.Clamp01(p[1])
	switch {
	case up > m.opts.Threshold:
		return models.Signal{Side: models.SideLong, Confidence: up, Source: modelSource, Reason: "p_up above threshold"}
	case down > m.opts.Threshold:
		return models.Signal{Side: models.SideShort, Confidence: down, Source: modelSource, Reason: "p_down above threshold"}
	default:
		return models.Signal{Side: models.SideNone, Confidence: max(up, down), Source: modelSource}
	}
}
