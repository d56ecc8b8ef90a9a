package overtime

import "errors"

// Sentinel error kinds for this package.
var (
	ErrUnknownMode = errors.New("unknown aggregation mode")
)

// Fallback reasons reported in Result.FallbackReason and metrics.
const (
	ReasonRosterUnavailable  = "roster_unavailable"
	ReasonRosterEmpty        = "roster_empty"
	ReasonSourcesUnavailable = "all_sources_unavailable"
	ReasonCancelled          = "cancelled"
)
