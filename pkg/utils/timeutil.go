// Package utils provides common utility functions for energybot.
package utils

import (
	"fmt"
	"time"
)

// Week is the fixed cadence of every price series.
const Week = 7 * 24 * time.Hour

// DateLayout is the calendar date format used in prompts and replies.
const DateLayout = "2006-01-02"

// DefaultEpoch is the start date used when none (or an invalid one) is supplied.
var DefaultEpoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// AlignToWeek returns the first Sunday on or after t, at midnight UTC.
// Weekly series are anchored on Sundays.
func AlignToWeek(t time.Time) time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (7 - int(d.Weekday())) % 7
	return d.AddDate(0, 0, offset)
}

// WeeksAfter returns n timestamps spaced one week apart, starting one week after from.
func WeeksAfter(from time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	out := make([]time.Time, n)
	for i := range out {
		out[i] = from.AddDate(0, 0, 7*(i+1))
	}
	return out
}

// IsWeekly reports whether ts is strictly increasing with a one-week step.
func IsWeekly(ts []time.Time) bool {
	for i := 1; i < len(ts); i++ {
		if !ts[i].Equal(ts[i-1].AddDate(0, 0, 7)) {
			return false
		}
	}
	return true
}

// ParseDate parses a YYYY-MM-DD date in UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
