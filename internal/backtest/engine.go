// Package backtest measures forecast accuracy by replaying history: the
// model is fitted on a prefix of a series, projected forward, and compared
// with the weeks that actually followed.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/energybot/internal/advisory"
	"github.com/seenimoa/energybot/pkg/models"
)

// ErrNoFolds is returned when no origin could be evaluated.
var ErrNoFolds = errors.New("backtest: no folds could be evaluated")

// Forecaster projects a series forward.
type Forecaster interface {
	Forecast(ctx context.Context, s models.Series, horizon int) (models.Forecast, error)
}

// ════════════════════════════════════════════════════════════════════
// Engine Configuration
// ════════════════════════════════════════════════════════════════════

// Config holds all parameters for a backtest run.
type Config struct {
	Horizon     int // weeks projected from every origin (default: 10)
	Folds       int // number of forecast origins (default: 8)
	Step        int // weeks between consecutive origins (default: 1)
	Concurrency int // folds fitted in parallel (default: 4)
}

// DefaultConfig returns the defaults used by the CLI and API.
func DefaultConfig() Config {
	return Config{
		Horizon:     10,
		Folds:       8,
		Step:        1,
		Concurrency: 4,
	}
}

// ════════════════════════════════════════════════════════════════════
// Results
// ════════════════════════════════════════════════════════════════════

// Fold is one forecast origin and how it turned out.
type Fold struct {
	Origin   time.Time          `json:"origin"` // last week used for fitting
	Forecast []models.TimePoint `json:"forecast"`
	Actual   []models.TimePoint `json:"actual"`
	Advised  models.Verdict     `json:"advised"`
	Realised models.Verdict     `json:"realised"`
	MAE      float64            `json:"mae"`
}

// Hit reports whether the advice matched what the prices actually did.
func (f Fold) Hit() bool { return f.Advised == f.Realised }

// Result summarises a backtest over all evaluated folds.
type Result struct {
	Commodity models.Commodity `json:"commodity"`
	Config    Config           `json:"config"`
	Folds     []Fold           `json:"folds"` // oldest origin first
	Skipped   int              `json:"skipped"`

	MAE     float64 `json:"mae"`
	RMSE    float64 `json:"rmse"`
	MAPE    float64 `json:"mape"`     // percent, over non-zero actuals
	HitRate float64 `json:"hit_rate"` // percent of folds with correct advice
}

// ════════════════════════════════════════════════════════════════════
// Engine
// ════════════════════════════════════════════════════════════════════

// Engine runs rolling-origin backtests with a shared forecaster.
type Engine struct {
	cfg Config
	fc  Forecaster
}

// NewEngine creates a backtesting engine, filling zero fields with defaults.
func NewEngine(fc Forecaster, cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.Horizon < 1 {
		cfg.Horizon = def.Horizon
	}
	if cfg.Folds < 1 {
		cfg.Folds = def.Folds
	}
	if cfg.Step < 1 {
		cfg.Step = def.Step
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = def.Concurrency
	}
	return &Engine{cfg: cfg, fc: fc}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// Run evaluates s. The newest origin leaves exactly Horizon weeks of actuals;
// each earlier origin moves back by Step. Origins whose prefix is too short or
// cannot be fitted are counted in Skipped.
func (e *Engine) Run(ctx context.Context, s models.Series) (*Result, error) {
	if e.fc == nil {
		return nil, fmt.Errorf("forecaster is nil")
	}
	n := s.Len()
	h := e.cfg.Horizon
	if n <= h {
		return nil, fmt.Errorf("%w: %d weeks of %s cannot cover a %d-week horizon", ErrNoFolds, n, s.Commodity, h)
	}

	var ends []int
	for k := 0; k < e.cfg.Folds; k++ {
		end := n - h - k*e.cfg.Step
		if end < 1 {
			break
		}
		ends = append(ends, end)
	}

	folds := make([]*Fold, len(ends))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(e.cfg.Concurrency)
	for i, end := range ends {
		eg.Go(func() error {
			f, err := e.fold(ctx, s, end)
			if err != nil {
				if skippable(err) {
					return nil
				}
				return err
			}
			folds[i] = f
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	r := &Result{Commodity: s.Commodity, Config: e.cfg}
	// ends runs newest first; report oldest first.
	for i := len(folds) - 1; i >= 0; i-- {
		if folds[i] == nil {
			r.Skipped++
			continue
		}
		r.Folds = append(r.Folds, *folds[i])
	}
	if len(r.Folds) == 0 {
		return nil, fmt.Errorf("%w: %s, %d origins skipped", ErrNoFolds, s.Commodity, r.Skipped)
	}
	ComputeMetrics(r)
	return r, nil
}

func (e *Engine) fold(ctx context.Context, s models.Series, end int) (*Fold, error) {
	train := models.Series{Commodity: s.Commodity, Points: s.Points[:end]}.Clone()
	actual := make([]models.TimePoint, e.cfg.Horizon)
	copy(actual, s.Points[end:end+e.cfg.Horizon])

	fc, err := e.fc.Forecast(ctx, train, e.cfg.Horizon)
	if err != nil {
		return nil, err
	}
	return &Fold{
		Origin:   train.Points[end-1].Time,
		Forecast: fc.Points,
		Actual:   actual,
		Advised:  advisory.Evaluate(fc),
		Realised: advisory.Evaluate(models.Forecast{Commodity: s.Commodity, Horizon: len(actual), Points: actual}),
		MAE:      mae(fc.Points, actual),
	}, nil
}

// skippable reports whether err is a per-origin failure rather than a
// cancellation. Model errors come back wrapped by the forecaster.
func skippable(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
