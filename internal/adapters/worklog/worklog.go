// Package worklog defines the contract for fetching logged time per person
// from external time-tracking systems.
//
// A Source never fails loudly: transport and HTTP errors are reported as an
// Unavailable result. An available result with no totals means the backend
// answered and nobody matched.
package worklog

import (
	"context"
	"time"

	"github.com/okian/overtime/internal/domain/model"
)

// Query selects the window and, optionally, a single person.
type Query struct {
	// PersonID restricts the query to one person. Empty means everyone.
	PersonID string
	// Start and End are inclusive calendar dates.
	Start time.Time
	End   time.Time
}

// Result is the outcome of one fetch.
type Result struct {
	Totals      []model.WorklogTotals
	Unavailable bool
	// Err carries the cause when Unavailable is set.
	Err error
}

// Available wraps totals in a reachable result.
func Available(totals []model.WorklogTotals) Result {
	if totals == nil {
		totals = []model.WorklogTotals{}
	}
	return Result{Totals: totals}
}

// Unavailable reports that the source could not answer.
func Unavailable(err error) Result {
	if err == nil {
		err = ErrUnavailable
	}
	return Result{Unavailable: true, Err: err}
}

// Lookup sums the totals reported for personID and tells whether there were
// any.
func (r Result) Lookup(personID string) (model.WorklogTotals, bool) {
	out := model.WorklogTotals{PersonID: personID}
	found := false
	for _, t := range r.Totals {
		if t.PersonID == personID {
			out.Add(t)
			found = true
		}
	}
	return out, found
}

// Source fetches aggregated logged seconds per person for a date range.
type Source interface {
	// Name identifies the source in logs and metrics.
	Name() string
	// FetchTotals honors ctx for cancellation and never panics on backend
	// failure.
	FetchTotals(ctx context.Context, q Query) Result
}

// Aggregate folds per-entry totals into one entry per person, keeping the
// order in which people were first seen.
func Aggregate(entries []model.WorklogTotals) []model.WorklogTotals {
	index := make(map[string]int, len(entries))
	out := make([]model.WorklogTotals, 0, len(entries))
	for _, e := range entries {
		if i, ok := index[e.PersonID]; ok {
			out[i].Add(e)
			continue
		}
		index[e.PersonID] = len(out)
		out = append(out, e)
	}
	return out
}

// InRange reports whether day falls within the query window.
func (q Query) InRange(day time.Time) bool {
	return !day.Before(q.Start) && !day.After(q.End)
}
