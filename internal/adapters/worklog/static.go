package worklog

import (
	"context"

	"github.com/okian/overtime/internal/domain/model"
)

// Static serves a fixed set of totals regardless of the window. It backs
// demo setups and tests.
type Static struct {
	name   string
	totals []model.WorklogTotals
	down   bool
}

// StaticOption configures a Static source.
type StaticOption func(*Static)

// WithStaticName overrides the default name "static".
func WithStaticName(name string) StaticOption {
	return func(s *Static) {
		if name != "" {
			s.name = name
		}
	}
}

// WithStaticDown makes every fetch report Unavailable.
func WithStaticDown() StaticOption {
	return func(s *Static) {
		s.down = true
	}
}

// NewStatic creates a Static source. The slice is copied.
func NewStatic(totals []model.WorklogTotals, opts ...StaticOption) *Static {
	s := &Static{
		name:   "static",
		totals: append([]model.WorklogTotals(nil), totals...),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements Source.
func (s *Static) Name() string { return s.name }

// FetchTotals implements Source.
func (s *Static) FetchTotals(ctx context.Context, q Query) Result {
	if err := ctx.Err(); err != nil {
		return Unavailable(err)
	}
	if s.down {
		return Unavailable(ErrUnavailable)
	}
	if q.PersonID == "" {
		return Available(append([]model.WorklogTotals(nil), s.totals...))
	}
	out := []model.WorklogTotals{}
	for _, t := range s.totals {
		if t.PersonID == q.PersonID {
			out = append(out, t)
		}
	}
	return Available(out)
}
