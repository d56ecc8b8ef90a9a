// Package calendar computes working-day baselines for a date range.
//
// All dates are day-granular and normalized to midnight UTC; time of day and
// location are discarded once a date has been produced.
package calendar

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/okian/overtime/internal/domain/model"
)

// DateLayout is the wire and config format for dates.
const DateLayout = "2006-01-02"

// DefaultDailyHours is the expected working time per qualifying day.
const DefaultDailyHours = 8.0

// Day truncates t to its calendar date in t's own location and returns it
// as midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: %v", ErrInvalidDate, s, err)
	}
	return t, nil
}

// DateSet is a set of calendar dates keyed by their YYYY-MM-DD form.
type DateSet map[string]struct{}

// NewDateSet builds a set from dates.
func NewDateSet(dates ...time.Time) DateSet {
	set := make(DateSet, len(dates))
	for _, d := range dates {
		set[Day(d).Format(DateLayout)] = struct{}{}
	}
	return set
}

// ParseDateSet builds a set from YYYY-MM-DD strings. Blank entries are skipped.
func ParseDateSet(values []string) (DateSet, error) {
	set := make(DateSet, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		d, err := ParseDate(v)
		if err != nil {
			return nil, err
		}
		set[d.Format(DateLayout)] = struct{}{}
	}
	return set, nil
}

// Contains reports whether day is in the set. A nil set contains nothing.
func (s DateSet) Contains(day time.Time) bool {
	_, ok := s[Day(day).Format(DateLayout)]
	return ok
}

// Sorted returns the members in ascending order.
func (s DateSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// IsWorkday reports whether day qualifies: a weekday that is not a holiday,
// or any day listed in extra. The extra override wins over both weekends and
// holidays.
func IsWorkday(day time.Time, holidays, extra DateSet) bool {
	if extra.Contains(day) {
		return true
	}
	if isWeekend(day.Weekday()) {
		return false
	}
	return !holidays.Contains(day)
}

// CountWorkdays counts qualifying days in the inclusive range [start, end].
// Whole weeks are counted arithmetically; only the date sets and the
// trailing partial week are visited one day at a time.
func CountWorkdays(start, end time.Time, holidays, extra DateSet) (int, error) {
	start, end = Day(start), Day(end)
	if start.After(end) {
		return 0, &InvalidRangeError{Start: start, End: end, Reason: "start is after end"}
	}

	days := daysBetween(start, end) + 1
	n := days / 7 * 5
	wd := start.Weekday()
	for i := 0; i < days%7; i++ {
		if !isWeekend((wd + time.Weekday(i)) % 7) {
			n++
		}
	}

	for key := range holidays {
		d, err := time.Parse(DateLayout, key)
		if err != nil || d.Before(start) || d.After(end) || isWeekend(d.Weekday()) || extra.Contains(d) {
			continue
		}
		n--
	}
	for key := range extra {
		d, err := time.Parse(DateLayout, key)
		if err != nil || d.Before(start) || d.After(end) || !isWeekend(d.Weekday()) {
			continue
		}
		n++
	}
	return n, nil
}

func isWeekend(d time.Weekday) bool {
	return d == time.Saturday || d == time.Sunday
}

// daysBetween counts midnights from start to end. Both must be UTC midnights;
// Unix seconds keep the span exact for any year range.
func daysBetween(start, end time.Time) int {
	return int((end.Unix() - start.Unix()) / secondsPerDay)
}

const secondsPerDay = 24 * 60 * 60

// ComputeRequiredHours returns the required-hours baseline for the inclusive
// range. It is a pure function of its inputs.
func ComputeRequiredHours(start, end time.Time, expectedDailyHours float64, holidays, extra DateSet) (model.RequiredHoursBaseline, error) {
	if expectedDailyHours <= 0 {
		return model.RequiredHoursBaseline{}, fmt.Errorf("%w: got %v", ErrInvalidDailyHours, expectedDailyHours)
	}
	days, err := CountWorkdays(start, end, holidays, extra)
	if err != nil {
		return model.RequiredHoursBaseline{}, err
	}
	return model.RequiredHoursBaseline{
		Start:              Day(start),
		End:                Day(end),
		ExpectedDailyHours: expectedDailyHours,
		WorkingDays:        days,
		RequiredHours:      float64(days) * expectedDailyHours,
	}, nil
}
