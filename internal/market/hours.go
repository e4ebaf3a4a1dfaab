// Package market decides whether a check cycle may run at a given time.
package market

import (
	"time"

	"github.com/pkg/errors"
)

// ErrMarketClosed is returned when a cycle is skipped by the hours gate.
var ErrMarketClosed = errors.New("market is closed")

// ClosedError is a skipped cycle with the time the window opens again.
// It matches ErrMarketClosed under errors.Is.
type ClosedError struct {
	NextOpen time.Time
}

func (e *ClosedError) Error() string {
	return ErrMarketClosed.Error() + ", opens " + e.NextOpen.Format("2006-01-02 15:04 MST")
}

func (e *ClosedError) Is(target error) bool {
	return target == ErrMarketClosed
}

// Closed reports whether t is outside the window, and if so the error
// describing when it opens next.
func (h Hours) Closed(t time.Time) error {
	if h.IsOpen(t) {
		return nil
	}
	return &ClosedError{NextOpen: h.NextOpen(t)}
}

// Hours is a daily open/close window. A time is inside the window when
// Open <= hour < Close in Location.
type Hours struct {
	Open         int
	Close        int
	Location     *time.Location
	SkipWeekends bool
}

// NewHours validates the window bounds.
func NewHours(open, close int, loc *time.Location, skipWeekends bool) (Hours, error) {
	if open < 0 || open > 23 || close < 1 || close > 24 || open >= close {
		return Hours{}, errors.Errorf("invalid market hours %d-%d", open, close)
	}
	if loc == nil {
		loc = time.Local
	}
	return Hours{Open: open, Close: close, Location: loc, SkipWeekends: skipWeekends}, nil
}

// IsOpen reports whether t falls inside the window.
func (h Hours) IsOpen(t time.Time) bool {
	if h.Location != nil {
		t = t.In(h.Location)
	}

	if h.SkipWeekends && (t.Weekday() == time.Saturday || t.Weekday() == time.Sunday) {
		return false
	}

	hour := t.Hour()
	return hour >= h.Open && hour < h.Close
}

// NextOpen returns the next time the window opens after t.
func (h Hours) NextOpen(t time.Time) time.Time {
	loc := h.Location
	if loc == nil {
		loc = t.Location()
	}
	t = t.In(loc)

	next := time.Date(t.Year(), t.Month(), t.Day(), h.Open, 0, 0, 0, loc)
	if !next.After(t) {
		next = next.AddDate(0, 0, 1)
	}
	for h.SkipWeekends && (next.Weekday() == time.Saturday || next.Weekday() == time.Sunday) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
