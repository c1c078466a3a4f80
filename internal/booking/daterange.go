package booking

import (
	"strings"
	"time"
)

// DateLayout is the calendar-date form accepted from clients.
const DateLayout = "2006-01-02"

const day = 24 * time.Hour

// DateRange is an inclusive range of calendar days. Both ends sit at UTC midnight.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ParseDate accepts "2006-01-02" or an RFC 3339 timestamp and returns its UTC calendar day.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, &InvalidDateError{Reason: "date is required"}
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, &InvalidDateError{Value: s, Reason: "expected YYYY-MM-DD or RFC 3339"}
	}
	return truncateDay(t), nil
}

// NewDateRange builds a range from two instants, truncated to their UTC days.
// An end day before the start day is rejected, never clamped.
func NewDateRange(start, end time.Time) (DateRange, error) {
	if start.IsZero() || end.IsZero() {
		return DateRange{}, &InvalidDateError{Reason: "start and end dates are required"}
	}
	r := DateRange{Start: truncateDay(start), End: truncateDay(end)}
	if r.End.Before(r.Start) {
		return DateRange{}, &InvalidDateError{Value: r.End.Format(DateLayout), Reason: "end date is before start date " + r.Start.Format(DateLayout)}
	}
	return r, nil
}

// ParseRange parses both ends with ParseDate and builds the range.
func ParseRange(start, end string) (DateRange, error) {
	s, err := ParseDate(start)
	if err != nil {
		return DateRange{}, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return DateRange{}, err
	}
	return NewDateRange(s, e)
}

// Days is the inclusive day count of the range.
func (r DateRange) Days() int {
	return DayCount(r.Start, r.End)
}

// Contains reports whether t falls on a day inside the range.
func (r DateRange) Contains(t time.Time) bool {
	d := truncateDay(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

func (r DateRange) String() string {
	return r.Start.Format(DateLayout) + ".." + r.End.Format(DateLayout)
}

// DayCount returns the number of calendar days from start to end counting both ends.
// The result is never below 1.
func DayCount(start, end time.Time) int {
	n := int(truncateDay(end).Sub(truncateDay(start))/day) + 1
	if n < 1 {
		return 1
	}
	return n
}

// Overlaps reports whether two inclusive ranges share at least one day.
// Ranges that touch on an endpoint overlap.
func Overlaps(a, b DateRange) bool {
	return !a.Start.After(b.End) && !b.Start.After(a.End)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
