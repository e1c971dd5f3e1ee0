// Package advisory turns a price forecast into a hedge/speculate recommendation.
package advisory

import "github.com/seenimoa/energybot/pkg/models"

// Evaluate returns Speculate when the last projected price is strictly above
// the first, otherwise Hedge. A single-point or empty forecast is Hedge.
func Evaluate(f models.Forecast) models.Verdict {
	first, ok := f.First()
	if !ok {
		return models.Hedge
	}
	last, _ := f.Last()
	if last.Value > first.Value {
		return models.Speculate
	}
	return models.Hedge
}
