package calendar

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInvalidRange      = errors.New("invalid date range")
	ErrInvalidDailyHours = errors.New("expected daily hours must be positive")
	ErrInvalidDate       = errors.New("invalid date")
)

// InvalidRangeError describes a malformed or inverted date window.
type InvalidRangeError struct {
	Start  time.Time
	End    time.Time
	Reason string
}

func (e *InvalidRangeError) Error() string {
	if e.Start.IsZero() && e.End.IsZero() {
		return fmt.Sprintf("%s: %s", ErrInvalidRange, e.Reason)
	}
	return fmt.Sprintf("%s: %s (%s..%s)", ErrInvalidRange, e.Reason,
		e.Start.Format(DateLayout), e.End.Format(DateLayout))
}

// Is lets errors.Is(err, ErrInvalidRange) match.
func (e *InvalidRangeError) Is(target error) bool {
	return target == ErrInvalidRange
}
