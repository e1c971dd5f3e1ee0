package forecast

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/seenimoa/energybot/pkg/models"
	"github.com/seenimoa/energybot/pkg/utils"
)

// FitError records which commodity failed to forecast. It unwraps to one of
// ErrInsufficientHistory, ErrModelFit or ErrInvalidHorizon.
type FitError struct {
	Commodity models.Commodity
	Err       error
}

func (e *FitError) Error() string {
	return fmt.Sprintf("forecast %s: %v", e.Commodity, e.Err)
}

func (e *FitError) Unwrap() error { return e.Err }

// Forecaster fits a fresh model for every request. It holds no per-request
// state and can be shared between sessions.
type Forecaster struct {
	order  Order
	tracer trace.Tracer
}

// New returns a forecaster for the given order.
func New(order Order) (*Forecaster, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}
	return &Forecaster{
		order:  order,
		tracer: otel.Tracer("github.com/seenimoa/energybot/internal/forecast"),
	}, nil
}

// NewDefault returns an ARIMA(5,1,0) forecaster.
func NewDefault() *Forecaster {
	f, _ := New(DefaultOrder)
	return f
}

// Order returns the model order used for every fit.
func (f *Forecaster) Order() Order { return f.order }

// Forecast fits the model to s and projects horizon weeks past its last point.
func (f *Forecaster) Forecast(ctx context.Context, s models.Series, horizon int) (models.Forecast, error) {
	_, span := f.tracer.Start(ctx, "forecast.Forecast", trace.WithAttributes(
		attribute.String("commodity", s.Commodity.String()),
		attribute.Int("horizon", horizon),
		attribute.Int("history", s.Len()),
		attribute.String("order", f.order.String()),
	))
	defer span.End()

	fc, err := f.forecast(ctx, s, horizon)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return models.Forecast{}, &FitError{Commodity: s.Commodity, Err: err}
	}
	return fc, nil
}

func (f *Forecaster) forecast(ctx context.Context, s models.Series, horizon int) (models.Forecast, error) {
	if horizon < 1 {
		return models.Forecast{}, fmt.Errorf("%w: %d", ErrInvalidHorizon, horizon)
	}
	if err := ctx.Err(); err != nil {
		return models.Forecast{}, err
	}
	last, ok := s.Last()
	if !ok {
		return models.Forecast{}, fmt.Errorf("%w: empty series", ErrInsufficientHistory)
	}

	m, err := Fit(s.Values(), f.order)
	if err != nil {
		return models.Forecast{}, err
	}
	vals, err := m.Project(horizon)
	if err != nil {
		return models.Forecast{}, err
	}

	weeks := utils.WeeksAfter(last.Time, horizon)
	pts := make([]models.TimePoint, horizon)
	for i, v := range vals {
		if v < 0 {
			v = 0
		}
		pts[i] = models.TimePoint{Time: weeks[i], Value: v}
	}
	return models.Forecast{Commodity: s.Commodity, Horizon: horizon, Points: pts}, nil
}
