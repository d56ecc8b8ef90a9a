package calendar

import (
	"fmt"
	"time"
)

// WindowKind selects how a Window resolves to a date range.
type WindowKind int

const (
	// WindowExplicit uses fixed start and end dates.
	WindowExplicit WindowKind = iota
	// WindowTrailing covers the last N calendar days ending today.
	WindowTrailing
	// WindowYearToDate covers January 1st of the current year through today.
	WindowYearToDate
)

func (k WindowKind) String() string {
	switch k {
	case WindowExplicit:
		return "range"
	case WindowTrailing:
		return "trailing"
	case WindowYearToDate:
		return "ytd"
	default:
		return fmt.Sprintf("WindowKind(%d)", int(k))
	}
}

// Window describes a query window before "now" is bound.
type Window struct {
	Kind  WindowKind
	Start time.Time
	End   time.Time
	Days  int

	// bounded is set by Explicit so the zero Window is not mistaken for
	// a range starting at 0001-01-01.
	bounded bool
}

// Range is a resolved inclusive date range.
type Range struct {
	Start time.Time
	End   time.Time
}

// Explicit returns a fixed window.
func Explicit(start, end time.Time) Window {
	return Window{Kind: WindowExplicit, Start: start, End: end, bounded: true}
}

// Trailing returns a window covering the last days calendar days, today included.
func Trailing(days int) Window {
	return Window{Kind: WindowTrailing, Days: days}
}

// YearToDate returns a window from January 1st through today.
func YearToDate() Window {
	return Window{Kind: WindowYearToDate}
}

// Resolve binds the window to now, interpreted in loc. A nil loc means UTC.
func (w Window) Resolve(now time.Time, loc *time.Location) (Range, error) {
	return w.ResolveWithin(now, loc, 0)
}

// ResolveWithin is Resolve with an upper bound on the number of calendar
// days covered. maxDays <= 0 disables the bound.
func (w Window) ResolveWithin(now time.Time, loc *time.Location, maxDays int) (Range, error) {
	if loc == nil {
		loc = time.UTC
	}
	today := Day(now.In(loc))

	var r Range
	switch w.Kind {
	case WindowExplicit:
		if !w.bounded {
			return Range{}, &InvalidRangeError{Reason: "start and end are required"}
		}
		r = Range{Start: Day(w.Start), End: Day(w.End)}
		if r.Start.After(r.End) {
			return Range{}, &InvalidRangeError{Start: r.Start, End: r.End, Reason: "start is after end"}
		}
	case WindowTrailing:
		if w.Days <= 0 {
			return Range{}, &InvalidRangeError{Reason: fmt.Sprintf("trailing days must be positive, got %d", w.Days)}
		}
		if maxDays > 0 && w.Days > maxDays {
			return Range{}, &InvalidRangeError{Reason: fmt.Sprintf("trailing window of %d days exceeds the %d day limit", w.Days, maxDays)}
		}
		r = Range{Start: today.AddDate(0, 0, -(w.Days - 1)), End: today}
	case WindowYearToDate:
		r = Range{Start: time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, time.UTC), End: today}
	default:
		return Range{}, &InvalidRangeError{Reason: "unknown window kind " + w.Kind.String()}
	}

	if maxDays > 0 && r.End.After(r.Start.AddDate(0, 0, maxDays-1)) {
		return Range{}, &InvalidRangeError{Start: r.Start, End: r.End, Reason: fmt.Sprintf("window exceeds the %d day limit", maxDays)}
	}
	return r, nil
}

// Days returns the number of calendar days in the inclusive range.
func (r Range) Days() int {
	return daysBetween(r.Start, r.End) + 1
}
