package worklog

import "errors"

// Sentinel error kinds for this package.
var (
	ErrUnavailable = errors.New("worklog source unavailable")
	ErrCircuitOpen = errors.New("worklog source circuit open")
)
