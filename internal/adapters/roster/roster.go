// Package roster lists the people an overtime report is computed for.
package roster

import (
	"context"
	"errors"

	"github.com/okian/overtime/internal/domain/model"
)

// ErrUnavailable is carried in a Result when the provider cannot answer.
var ErrUnavailable = errors.New("roster provider unavailable")

// Result is the outcome of one roster lookup. People keeps provider order.
type Result struct {
	People      []model.Person
	Unavailable bool
	Err         error
}

// Available wraps people in a reachable result.
func Available(people []model.Person) Result {
	if people == nil {
		people = []model.Person{}
	}
	return Result{People: people}
}

// Unavailable reports that the provider could not answer.
func Unavailable(err error) Result {
	if err == nil {
		err = ErrUnavailable
	}
	return Result{Unavailable: true, Err: err}
}

// Provider supplies the roster.
type Provider interface {
	Name() string
	ListPeople(ctx context.Context) Result
}

// Names indexes display names by person id.
func (r Result) Names() map[string]string {
	out := make(map[string]string, len(r.People))
	for _, p := range r.People {
		out[p.ID] = p.DisplayName
	}
	return out
}

// Static serves a fixed list, typically from configuration.
type Static struct {
	people []model.Person
}

// NewStatic copies people so later edits by the caller are not visible.
func NewStatic(people []model.Person) *Static {
	cp := make([]model.Person, len(people))
	copy(cp, people)
	return &Static{people: cp}
}

// Name implements Provider.
func (s *Static) Name() string { return "static" }

// ListPeople implements Provider.
func (s *Static) ListPeople(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unavailable(err)
	}
	out := make([]model.Person, len(s.people))
	copy(out, s.people)
	return Available(out)
}
