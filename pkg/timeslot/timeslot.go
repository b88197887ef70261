// Package timeslot holds the interval arithmetic shared by slot generation
// and conflict detection. Every interval is half-open: [start, end).
package timeslot

import (
	"errors"
	"fmt"
	"time"
)

const MinutesPerDay = 24 * 60

var ErrInvalidTimeFormat = errors.New("invalid time format, use HH:MM")

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Back-to-back intervals (aEnd == bStart) do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// OverlapsMinutes is Overlaps on minutes since midnight.
func OverlapsMinutes(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}

// ParseTimeOfDay converts "HH:MM" (24h, zero padded) to minutes since midnight.
func ParseTimeOfDay(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, ErrInvalidTimeFormat
	}
	h, ok := twoDigits(s[0], s[1])
	if !ok || h > 23 {
		return 0, ErrInvalidTimeFormat
	}
	m, ok := twoDigits(s[3], s[4])
	if !ok || m > 59 {
		return 0, ErrInvalidTimeFormat
	}
	return h*60 + m, nil
}

// FormatTimeOfDay is the inverse of ParseTimeOfDay.
func FormatTimeOfDay(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// MinuteOfDay returns the minutes elapsed since local midnight of t.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// StartOfDay returns local midnight of t in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// At returns the instant minutes after midnight of day's calendar date.
func At(day time.Time, minutes int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), minutes/60, minutes%60, 0, 0, day.Location())
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}

// Window is a time-of-day range in minutes since midnight.
type Window struct {
	Start int
	End   int
}

// Contains reports whether [start, end) lies entirely inside w.
func (w Window) Contains(start, end int) bool {
	return start >= w.Start && end <= w.End
}

// Overlaps reports whether [start, end) intersects w.
func (w Window) Overlaps(start, end int) bool {
	return OverlapsMinutes(w.Start, w.End, start, end)
}
