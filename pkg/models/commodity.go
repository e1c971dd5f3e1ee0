// Package models defines the core data structures used throughout energybot.
package models

import (
	"strings"
	"time"
)

// Commodity is the canonical name of a tracked energy product, e.g. "Diesel", "LNG".
type Commodity string

// String returns the canonical commodity name.
func (c Commodity) String() string { return string(c) }

// NormalizeName folds a commodity name into its lookup key: lower case with
// all whitespace removed, so "Natural Gas" and "naturalgas" match.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), ""))
}

// Default commodity set served when no configuration overrides it.
const (
	Diesel     Commodity = "Diesel"
	Petroleum  Commodity = "Petroleum"
	LNG        Commodity = "LNG"
	NaturalGas Commodity = "Natural Gas"
)

// DefaultCommodities lists the commodities tracked out of the box.
var DefaultCommodities = []Commodity{Diesel, Petroleum, LNG, NaturalGas}

// TimePoint is a single weekly observation.
type TimePoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Series is the ordered weekly price history of one commodity.
// Timestamps are strictly increasing and spaced exactly one week apart.
type Series struct {
	Commodity Commodity   `json:"commodity"`
	Points    []TimePoint `json:"points"`
}

// Len returns the number of points in the series.
func (s Series) Len() int { return len(s.Points) }

// Values returns the raw price values in time order.
func (s Series) Values() []float64 {
	vals := make([]float64, len(s.Points))
	for i, p := range s.Points {
		vals[i] = p.Value
	}
	return vals
}

// Last returns the final point and false when the series is empty.
func (s Series) Last() (TimePoint, bool) {
	if len(s.Points) == 0 {
		return TimePoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// Clone returns a deep copy so callers can never mutate shared history.
func (s Series) Clone() Series {
	pts := make([]TimePoint, len(s.Points))
	copy(pts, s.Points)
	return Series{Commodity: s.Commodity, Points: pts}
}

// Forecast holds projected prices for the weeks following a series.
// It is derived per query and never merged back into the source series.
type Forecast struct {
	Commodity Commodity   `json:"commodity"`
	Horizon   int         `json:"horizon"`
	Points    []TimePoint `json:"points"`
}

// First returns the first projected point.
func (f Forecast) First() (TimePoint, bool) {
	if len(f.Points) == 0 {
		return TimePoint{}, false
	}
	return f.Points[0], true
}

// Last returns the final projected point.
func (f Forecast) Last() (TimePoint, bool) {
	if len(f.Points) == 0 {
		return TimePoint{}, false
	}
	return f.Points[len(f.Points)-1], true
}

// Verdict is the hedge/speculate recommendation derived from a forecast trend.
type Verdict string

const (
	Speculate Verdict = "speculate"
	Hedge     Verdict = "hedge"
)

// Advice renders the verdict as a sentence for the user.
func (v Verdict) Advice() string {
	return "Based on the predicted prices, it is advisable to " + string(v) + "."
}
