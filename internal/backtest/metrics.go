package backtest

import (
	"math"

	"github.com/seenimoa/energybot/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Accuracy Metrics
// ════════════════════════════════════════════════════════════════════

// ComputeMetrics fills the aggregate error and hit-rate fields of r from its
// folds in place. Errors are pooled over every projected week.
func ComputeMetrics(r *Result) {
	if r == nil || len(r.Folds) == 0 {
		return
	}

	var absSum, sqSum, pctSum float64
	var n, pctN, hits int
	for _, f := range r.Folds {
		if f.Hit() {
			hits++
		}
		for i := 0; i < len(f.Forecast) && i < len(f.Actual); i++ {
			e := f.Forecast[i].Value - f.Actual[i].Value
			absSum += math.Abs(e)
			sqSum += e * e
			n++
			if a := f.Actual[i].Value; a != 0 {
				pctSum += math.Abs(e / a)
				pctN++
			}
		}
	}

	r.HitRate = float64(hits) / float64(len(r.Folds)) * 100
	if n > 0 {
		r.MAE = absSum / float64(n)
		r.RMSE = math.Sqrt(sqSum / float64(n))
	}
	if pctN > 0 {
		r.MAPE = pctSum / float64(pctN) * 100
	}
}

// ────────────────────────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────────────────────────

func mae(pred, actual []models.TimePoint) float64 {
	n := min(len(pred), len(actual))
	if n == 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += math.Abs(pred[i].Value - actual[i].Value)
	}
	return sum / float64(n)
}
