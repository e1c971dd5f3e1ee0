// Package store holds the weekly price series for every tracked commodity.
//
// A Store is built once per session, aligned on a shared weekly axis and never
// modified afterwards, so it is safe to share between concurrent sessions.
package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/seenimoa/energybot/pkg/models"
	"github.com/seenimoa/energybot/pkg/utils"
)

var (
	ErrUnknownCommodity = errors.New("store: unknown commodity")
	ErrEmptySeries      = errors.New("store: empty series")
	ErrDuplicate        = errors.New("store: duplicate commodity")
	ErrNotIncreasing    = errors.New("store: timestamps not strictly increasing")
	ErrNotWeekly        = errors.New("store: axis is not a gap-free weekly cadence")
)

// Store is an immutable set of index-aligned commodity series.
type Store struct {
	order  []models.Commodity
	series map[models.Commodity][]models.TimePoint
	lookup map[string]models.Commodity
	axis   []time.Time
}

// New builds a store from the given series. All series are inner-joined on
// timestamp so that index i refers to the same week for every commodity.
func New(series ...models.Series) (*Store, error) {
	s := &Store{
		series: make(map[models.Commodity][]models.TimePoint, len(series)),
		lookup: make(map[string]models.Commodity, len(series)),
	}

	for _, in := range series {
		key := models.NormalizeName(string(in.Commodity))
		if key == "" {
			return nil, fmt.Errorf("%w: empty name", ErrUnknownCommodity)
		}
		if _, dup := s.lookup[key]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicate, in.Commodity)
		}
		for i := 1; i < len(in.Points); i++ {
			if !in.Points[i].Time.After(in.Points[i-1].Time) {
				return nil, fmt.Errorf("%w: %s at index %d", ErrNotIncreasing, in.Commodity, i)
			}
		}
		if !utils.IsWeekly(times(in.Points)) {
			return nil, fmt.Errorf("%w: %s", ErrNotWeekly, in.Commodity)
		}
		s.lookup[key] = in.Commodity
		s.order = append(s.order, in.Commodity)
	}

	s.axis = joinAxis(series)
	if !utils.IsWeekly(s.axis) {
		return nil, fmt.Errorf("%w: joined axis skips a week", ErrNotWeekly)
	}
	for _, in := range series {
		s.series[in.Commodity] = project(in.Points, s.axis)
	}
	return s, nil
}

// joinAxis returns the timestamps present in every series, in order.
func joinAxis(series []models.Series) []time.Time {
	if len(series) == 0 {
		return nil
	}
	counts := make(map[int64]int)
	for _, in := range series {
		for _, p := range in.Points {
			counts[p.Time.UnixNano()]++
		}
	}
	var axis []time.Time
	for _, p := range series[0].Points {
		if counts[p.Time.UnixNano()] == len(series) {
			axis = append(axis, p.Time)
		}
	}
	return axis
}

func times(points []models.TimePoint) []time.Time {
	out := make([]time.Time, len(points))
	for i, p := range points {
		out[i] = p.Time
	}
	return out
}

// project keeps only the points whose timestamps are on the axis.
func project(points []models.TimePoint, axis []time.Time) []models.TimePoint {
	out := make([]models.TimePoint, 0, len(axis))
	j := 0
	for _, t := range axis {
		for j < len(points) && points[j].Time.Before(t) {
			j++
		}
		if j < len(points) && points[j].Time.Equal(t) {
			out = append(out, points[j])
			j++
		}
	}
	return out
}

// Commodities returns the tracked commodities in registration order.
func (s *Store) Commodities() []models.Commodity {
	out := make([]models.Commodity, len(s.order))
	copy(out, s.order)
	return out
}

// Axis returns a copy of the shared weekly timestamp axis.
func (s *Store) Axis() []time.Time {
	out := make([]time.Time, len(s.axis))
	copy(out, s.axis)
	return out
}

// Lookup resolves a case-insensitive name to its canonical commodity.
func (s *Store) Lookup(name string) (models.Commodity, bool) {
	c, ok := s.lookup[models.NormalizeName(name)]
	return c, ok
}

// Series returns a copy of the full history for c.
func (s *Store) Series(c models.Commodity) (models.Series, error) {
	pts, ok := s.series[c]
	if !ok {
		return models.Series{}, fmt.Errorf("%w: %s", ErrUnknownCommodity, c)
	}
	return models.Series{Commodity: c, Points: pts}.Clone(), nil
}

// Latest returns the most recent observation for c.
func (s *Store) Latest(c models.Commodity) (models.TimePoint, error) {
	pts, ok := s.series[c]
	if !ok {
		return models.TimePoint{}, fmt.Errorf("%w: %s", ErrUnknownCommodity, c)
	}
	if len(pts) == 0 {
		return models.TimePoint{}, fmt.Errorf("%w: %s", ErrEmptySeries, c)
	}
	return pts[len(pts)-1], nil
}

// Tail returns the last n points of c in original order. n is clamped to
// the series length; n <= 0 yields an empty series.
func (s *Store) Tail(c models.Commodity, n int) (models.Series, error) {
	pts, ok := s.series[c]
	if !ok {
		return models.Series{}, fmt.Errorf("%w: %s", ErrUnknownCommodity, c)
	}
	if n < 0 {
		n = 0
	}
	if n > len(pts) {
		n = len(pts)
	}
	return models.Series{Commodity: c, Points: pts[len(pts)-n:]}.Clone(), nil
}
