// Package overtime merges roster and worklog data into per-person overtime
// records.
package overtime

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/overtime/internal/adapters/roster"
	"github.com/okian/overtime/internal/adapters/worklog"
	"github.com/okian/overtime/internal/domain/calendar"
	"github.com/okian/overtime/internal/domain/model"
	"github.com/okian/overtime/pkg/logger"
	"github.com/okian/overtime/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// Default engine configuration constants.
const (
	DefaultKeepAllThreshold = 5
	DefaultConcurrency      = 8
	// DefaultMaxWindowDays covers two years including a leap day.
	DefaultMaxWindowDays = 731
)

// Result is the outcome of one computation. Records are sorted by
// OvertimeHours, highest first. UsedFallback is set when Records come from
// the placeholder dataset.
type Result struct {
	Records        []model.OvertimeRecord      `json:"records"`
	Baseline       model.RequiredHoursBaseline `json:"baseline"`
	UsedFallback   bool                        `json:"used_fallback"`
	FallbackReason string                      `json:"fallback_reason,omitempty"`
}

// Engine computes overtime records. It holds configuration only; every call
// is independent.
type Engine struct {
	roster           roster.Provider
	sources          []worklog.Source
	dailyHours       float64
	holidays         calendar.DateSet
	extraWorkdays    calendar.DateSet
	location         *time.Location
	now              func() time.Time
	keepAllThreshold int
	concurrency      int
	maxWindowDays    int
	logger           logger.Logger
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithRoster sets the roster provider.
func WithRoster(p roster.Provider) Option {
	return func(e *Engine) {
		e.roster = p
	}
}

// WithSources sets the worklog sources in priority order.
func WithSources(sources ...worklog.Source) Option {
	return func(e *Engine) {
		e.sources = append([]worklog.Source(nil), sources...)
	}
}

// WithDailyHours sets the expected hours per qualifying workday.
func WithDailyHours(h float64) Option {
	return func(e *Engine) {
		if h > 0 {
			e.dailyHours = h
		}
	}
}

// WithHolidays sets the dates that do not count as workdays.
func WithHolidays(days calendar.DateSet) Option {
	return func(e *Engine) {
		e.holidays = days
	}
}

// WithExtraWorkdays sets dates that always count as workdays.
func WithExtraWorkdays(days calendar.DateSet) Option {
	return func(e *Engine) {
		e.extraWorkdays = days
	}
}

// WithLocation sets the time zone used to decide what "today" is.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.location = loc
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithKeepAllThreshold sets the candidate count at or below which
// source-driven results keep people with zero activity.
func WithKeepAllThreshold(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.keepAllThreshold = n
		}
	}
}

// WithConcurrency bounds parallel fetches within one call.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithMaxWindowDays caps the calendar days a window may cover. Zero or
// less removes the cap.
func WithMaxWindowDays(n int) Option {
	return func(e *Engine) {
		e.maxWindowDays = n
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New constructs an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		dailyHours:       calendar.DefaultDailyHours,
		holidays:         calendar.DateSet{},
		extraWorkdays:    calendar.DateSet{},
		location:         time.UTC,
		now:              time.Now,
		keepAllThreshold: DefaultKeepAllThreshold,
		concurrency:      DefaultConcurrency,
		maxWindowDays:    DefaultMaxWindowDays,
		logger:           logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Sources returns the configured source names in priority order.
func (e *Engine) Sources() []string {
	names := make([]string, len(e.sources))
	for i, s := range e.sources {
		names[i] = s.Name()
	}
	return names
}

// Baseline resolves window and returns its required hours.
func (e *Engine) Baseline(window calendar.Window) (model.RequiredHoursBaseline, error) {
	rng, err := window.ResolveWithin(e.now(), e.location, e.maxWindowDays)
	if err != nil {
		return model.RequiredHoursBaseline{}, err
	}
	return calendar.ComputeRequiredHours(rng.Start, rng.End, e.dailyHours, e.holidays, e.extraWorkdays)
}

type candidate struct {
	person model.Person
	totals model.WorklogTotals
}

// ComputeOvertimeRecords resolves window once, fetches worklogs for the
// mode's person set and returns sorted records. Only an invalid window or
// mode is an error; unavailable collaborators yield the fallback dataset.
func (e *Engine) ComputeOvertimeRecords(ctx context.Context, mode Mode, window calendar.Window) (Result, error) {
	started := time.Now()
	if mode != ModeRosterDriven && mode != ModeSourceDriven {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownMode, mode)
	}

	rng, err := window.ResolveWithin(e.now(), e.location, e.maxWindowDays)
	if err != nil {
		return Result{}, err
	}
	baseline, err := calendar.ComputeRequiredHours(rng.Start, rng.End, e.dailyHours, e.holidays, e.extraWorkdays)
	if err != nil {
		return Result{}, err
	}

	q := worklog.Query{Start: rng.Start, End: rng.End}
	var (
		people []candidate
		reason string
	)
	if mode == ModeRosterDriven {
		people, reason = e.rosterDriven(ctx, q)
	} else {
		people, reason = e.sourceDriven(ctx, q)
	}
	if reason == "" && ctx.Err() != nil {
		reason = ReasonCancelled
	}

	var res Result
	if reason != "" {
		e.logger.Warn(ctx, "serving fallback dataset",
			logger.String("mode", mode.String()),
			logger.String("reason", reason))
		metrics.RecordFallback(reason)
		res = FallbackResult(rng.Start, rng.End, reason)
	} else {
		records := make([]model.OvertimeRecord, 0, len(people))
		for _, c := range people {
			records = append(records, BuildRecord(c.person, c.totals, baseline.RequiredHours))
		}
		SortRecords(records)
		res = Result{Records: records, Baseline: baseline}
	}

	metrics.RecordComputation(mode.String(), res.UsedFallback)
	metrics.RecordComputationLatency(mode.String(), float64(time.Since(started).Microseconds())/1000)
	metrics.UpdateRecordsEmitted(len(res.Records))
	e.logger.Debug(ctx, "overtime computed",
		logger.String("mode", mode.String()),
		logger.String("start", rng.Start.Format(calendar.DateLayout)),
		logger.String("end", rng.End.Format(calendar.DateLayout)),
		logger.Int("records", len(res.Records)),
		logger.Bool("fallback", res.UsedFallback))
	return res, nil
}

// rosterDriven emits one candidate per roster person, in roster order.
func (e *Engine) rosterDriven(ctx context.Context, q worklog.Query) ([]candidate, string) {
	if e.roster == nil {
		return nil, ReasonRosterUnavailable
	}
	rr := e.listPeople(ctx)
	if ctx.Err() != nil {
		return nil, ReasonCancelled
	}
	if rr.Unavailable {
		return nil, ReasonRosterUnavailable
	}
	if len(rr.People) == 0 {
		return nil, ReasonRosterEmpty
	}

	out := make([]candidate, len(rr.People))
	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, p := range rr.People {
		g.Go(func() error {
			pq := q
			pq.PersonID = p.ID
			out[i] = candidate{person: p, totals: e.firstAvailable(ctx, pq)}
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		return nil, ReasonCancelled
	}
	return out, ""
}

// firstAvailable tries sources in priority order. The first one that
// answers wins, even with zero seconds.
func (e *Engine) firstAvailable(ctx context.Context, q worklog.Query) model.WorklogTotals {
	for _, src := range e.sources {
		res := e.fetch(ctx, src, q)
		if res.Unavailable {
			continue
		}
		t, _ := res.Lookup(q.PersonID)
		return t
	}
	e.logger.Debug(ctx, "no source answered, using zero totals", logger.String("person", q.PersonID))
	return model.WorklogTotals{PersonID: q.PersonID}
}

// sourceDriven queries every source once for everyone. The person set is
// the union over available sources in priority order.
func (e *Engine) sourceDriven(ctx context.Context, q worklog.Query) ([]candidate, string) {
	results := make([]worklog.Result, len(e.sources))
	var names map[string]string

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, src := range e.sources {
		g.Go(func() error {
			results[i] = e.fetch(ctx, src, q)
			return nil
		})
	}
	if e.roster != nil {
		g.Go(func() error {
			if rr := e.listPeople(ctx); !rr.Unavailable {
				names = rr.Names()
			}
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		return nil, ReasonCancelled
	}

	// The highest-priority available source answers for every person, as in
	// roster-driven mode; lower sources only contribute ids.
	var (
		order  []string
		seen   = make(map[string]bool)
		winner map[string]model.WorklogTotals
	)
	for _, res := range results {
		if res.Unavailable {
			continue
		}
		totals := worklog.Aggregate(res.Totals)
		if winner == nil {
			winner = make(map[string]model.WorklogTotals, len(totals))
			for _, t := range totals {
				winner[t.PersonID] = t
			}
		}
		for _, t := range totals {
			if t.PersonID == "" || seen[t.PersonID] {
				continue
			}
			seen[t.PersonID] = true
			order = append(order, t.PersonID)
		}
	}
	if winner == nil {
		return nil, ReasonSourcesUnavailable
	}

	keepAll := len(order) <= e.keepAllThreshold
	out := make([]candidate, 0, len(order))
	for _, id := range order {
		t, ok := winner[id]
		if !ok {
			t = model.WorklogTotals{PersonID: id}
		}
		if !keepAll && t.TotalSeconds <= 0 {
			continue
		}
		name := names[id]
		if name == "" {
			name = id
		}
		out = append(out, candidate{person: model.Person{ID: id, DisplayName: name}, totals: t})
	}
	return out, ""
}

func (e *Engine) fetch(ctx context.Context, src worklog.Source, q worklog.Query) worklog.Result {
	start := time.Now()
	res := src.FetchTotals(ctx, q)
	metrics.RecordSourceFetch(src.Name(), !res.Unavailable, float64(time.Since(start).Microseconds())/1000)
	if res.Unavailable {
		e.logger.Debug(ctx, "worklog source unavailable",
			logger.String("source", src.Name()),
			logger.String("person", q.PersonID),
			logger.Error(res.Err))
	}
	return res
}

func (e *Engine) listPeople(ctx context.Context) roster.Result {
	rr := e.roster.ListPeople(ctx)
	metrics.RecordRosterFetch(e.roster.Name(), !rr.Unavailable, len(rr.People))
	if rr.Unavailable {
		e.logger.Warn(ctx, "roster unavailable",
			logger.String("provider", e.roster.Name()),
			logger.Error(rr.Err))
	}
	return rr
}
