// Package forecast projects weekly commodity prices forward with an
// autoregressive model fitted on differenced history, ARIMA(p,d,0) style.
package forecast

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Model order. Kept as named constants so the order can be tuned in one place.
const (
	AROrder      = 5
	Differencing = 1
	MAOrder      = 0
)

var (
	ErrInsufficientHistory = errors.New("forecast: insufficient history")
	ErrModelFit            = errors.New("forecast: model fit failed")
	ErrInvalidHorizon      = errors.New("forecast: horizon must be positive")
	ErrInvalidOrder        = errors.New("forecast: invalid model order")
)

// Order is the (p, d, q) triple of an ARIMA-class model.
type Order struct {
	P int
	D int
	Q int
}

// DefaultOrder is ARIMA(5,1,0).
var DefaultOrder = Order{P: AROrder, D: Differencing, Q: MAOrder}

func (o Order) String() string { return fmt.Sprintf("(%d,%d,%d)", o.P, o.D, o.Q) }

// Validate rejects orders this package cannot fit. Only pure AR models on
// differenced data are supported.
func (o Order) Validate() error {
	switch {
	case o.P < 1:
		return fmt.Errorf("%w: p must be >= 1, got %d", ErrInvalidOrder, o.P)
	case o.D < 0:
		return fmt.Errorf("%w: d must be >= 0, got %d", ErrInvalidOrder, o.D)
	case o.Q != 0:
		return fmt.Errorf("%w: moving-average terms are not supported (q=%d)", ErrInvalidOrder, o.Q)
	}
	return nil
}

// MinHistory is the shortest series that can be fitted with order o:
// twice p+1 points, and never fewer than needed for p regression rows.
func (o Order) MinHistory() int {
	n := 2 * (o.P + 1)
	if rows := 2*o.P + o.D + 1; rows > n {
		n = rows
	}
	return n
}

// Model is a fitted AR(p) model on the d-th differences of a series.
type Model struct {
	Order Order
	Coef  []float64 // Coef[k] multiplies the (k+1)-th lag

	diffs []float64 // d-th differenced history
	lasts []float64 // last value at each differencing level 0..d-1
}

// Fit estimates AR coefficients by conditional least squares (QR) on the
// differenced series. No intercept is fitted.
func Fit(values []float64, order Order) (m *Model, err error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}
	if len(values) < order.MinHistory() {
		return nil, fmt.Errorf("%w: have %d points, need %d for ARIMA%s",
			ErrInsufficientHistory, len(values), order.MinHistory(), order)
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: non-finite value at index %d", ErrModelFit, i)
		}
	}

	// gonum panics on shape errors; never let that reach the caller.
	defer func() {
		if r := recover(); r != nil {
			m, err = nil, fmt.Errorf("%w: %v", ErrModelFit, r)
		}
	}()

	diffs, lasts := difference(values, order.D)
	p := order.P
	rows := len(diffs) - p

	x := mat.NewDense(rows, p, nil)
	y := mat.NewVecDense(rows, nil)
	for r := 0; r < rows; r++ {
		t := r + p
		y.SetVec(r, diffs[t])
		for k := 0; k < p; k++ {
			x.Set(r, k, diffs[t-k-1])
		}
	}

	var qr mat.QR
	qr.Factorize(x)
	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, y); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelFit, err)
	}

	coef := make([]float64, p)
	for k := range coef {
		coef[k] = beta.AtVec(k)
		if math.IsNaN(coef[k]) || math.IsInf(coef[k], 0) {
			return nil, fmt.Errorf("%w: non-finite coefficient", ErrModelFit)
		}
	}

	return &Model{Order: order, Coef: coef, diffs: diffs, lasts: lasts}, nil
}

// Project returns h level forecasts. Each step is conditioned on the
// previously projected differences, then integrated back to price levels.
func (m *Model) Project(h int) ([]float64, error) {
	if h < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidHorizon, h)
	}
	p := m.Order.P
	hist := make([]float64, len(m.diffs), len(m.diffs)+h)
	copy(hist, m.diffs)
	lasts := make([]float64, len(m.lasts))
	copy(lasts, m.lasts)

	out := make([]float64, h)
	for i := 0; i < h; i++ {
		next := 0.0
		n := len(hist)
		for k := 0; k < p; k++ {
			next += m.Coef[k] * hist[n-k-1]
		}
		hist = append(hist, next)

		level := next
		for k := len(lasts) - 1; k >= 0; k-- {
			lasts[k] += level
			level = lasts[k]
		}
		if math.IsNaN(level) || math.IsInf(level, 0) {
			return nil, fmt.Errorf("%w: projection diverged at step %d", ErrModelFit, i+1)
		}
		out[i] = level
	}
	return out, nil
}

// difference applies d rounds of first differencing and records the last
// value seen at every level so projections can be integrated back.
func difference(values []float64, d int) ([]float64, []float64) {
	cur := make([]float64, len(values))
	copy(cur, values)
	lasts := make([]float64, d)
	for k := 0; k < d; k++ {
		lasts[k] = cur[len(cur)-1]
		next := make([]float64, len(cur)-1)
		for i := 1; i < len(cur); i++ {
			next[i-1] = cur[i] - cur[i-1]
		}
		cur = next
	}
	return cur, lasts
}
