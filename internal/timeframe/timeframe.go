// Package timeframe provides the calendar-day arithmetic used for cohorts and
// the optional analysis window that restricts which events are analyzed.
package timeframe

import (
	"fmt"
	"time"
)

// DateKeyFormat is the cohort date format (UTC calendar day).
const DateKeyFormat = "2006-01-02"

// DayStart truncates t to midnight UTC of its calendar day.
func DayStart(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}

// DateKey returns the UTC calendar day of t as YYYY-MM-DD.
func DateKey(t time.Time) string {
	return t.UTC().Format(DateKeyFormat)
}

// ParseDateKey parses a YYYY-MM-DD key as midnight UTC.
func ParseDateKey(key string) (time.Time, error) {
	t, err := time.ParseInLocation(DateKeyFormat, key, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date key %q: %w", key, err)
	}
	return t, nil
}

// AddDays shifts a day start by n calendar days.
func AddDays(day time.Time, n int) time.Time {
	return day.AddDate(0, 0, n)
}

// DaysBetween returns the number of calendar days from a's day to b's day.
func DaysBetween(a, b time.Time) int {
	return int(DayStart(b).Sub(DayStart(a)).Hours() / 24)
}

// TimeFrame is an inclusive analysis window. A zero From or To leaves that side open.
type TimeFrame struct {
	From time.Time
	To   time.Time
	Tz   *time.Location
}

// NewTimeFrame validates and builds a window.
func NewTimeFrame(from, to time.Time, tz *time.Location) (*TimeFrame, error) {
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return nil, fmt.Errorf("fromTime must be before toTime")
	}
	if tz == nil {
		tz = time.UTC
	}
	return &TimeFrame{From: from, To: to, Tz: tz}, nil
}

// Contains reports whether t falls inside the window. A nil window contains everything.
func (tf *TimeFrame) Contains(t time.Time) bool {
	if tf == nil {
		return true
	}
	if !tf.From.IsZero() && t.Before(tf.From) {
		return false
	}
	if !tf.To.IsZero() && t.After(tf.To) {
		return false
	}
	return true
}

// IsOpen reports whether the window places no bound on either side.
func (tf *TimeFrame) IsOpen() bool {
	return tf == nil || (tf.From.IsZero() && tf.To.IsZero())
}

// Duration returns the window length, or zero when either side is open.
func (tf *TimeFrame) Duration() time.Duration {
	if tf == nil || tf.From.IsZero() || tf.To.IsZero() {
		return 0
	}
	return tf.To.Sub(tf.From)
}

func (tf *TimeFrame) String() string {
	if tf.IsOpen() {
		return "all time"
	}
	from, to := "…", "…"
	if !tf.From.IsZero() {
		from = tf.From.In(tf.Tz).Format(DateKeyFormat)
	}
	if !tf.To.IsZero() {
		to = tf.To.In(tf.Tz).Format(DateKeyFormat)
	}
	return from + " to " + to
}
