// Package service builds the overtime engine and its collaborators from
// configuration and exposes it to the HTTP API and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/okian/overtime/internal/adapters/atlassian"
	"github.com/okian/overtime/internal/adapters/roster"
	rosterjira "github.com/okian/overtime/internal/adapters/roster/jira"
	"github.com/okian/overtime/internal/adapters/roster/sqlstore"
	"github.com/okian/overtime/internal/adapters/worklog"
	worklogjira "github.com/okian/overtime/internal/adapters/worklog/jira"
	"github.com/okian/overtime/internal/adapters/worklog/redisstore"
	"github.com/okian/overtime/internal/adapters/worklog/tempo"
	"github.com/okian/overtime/internal/config"
	"github.com/okian/overtime/internal/domain/calendar"
	"github.com/okian/overtime/internal/domain/model"
	"github.com/okian/overtime/internal/domain/overtime"
	"github.com/okian/overtime/pkg/logger"
	"github.com/okian/overtime/pkg/metrics"
	"github.com/sony/gobreaker"
)

// ErrNotStarted is returned by computations before Start.
var ErrNotStarted = errors.New("service not started")

// Service owns the engine and the connections its collaborators hold.
type Service struct {
	mu sync.RWMutex

	cfg *config.Config

	// Overrides set through options; built from cfg otherwise.
	sources []worklog.Source
	roster  roster.Provider
	now     func() time.Time

	engine      *overtime.Engine
	defaultMode overtime.Mode
	closers     []io.Closer

	// State
	started      bool
	computations int64
	fallbacks    int64
	lastRun      time.Time
	lastFallback string

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig sets the configuration. Defaults apply otherwise.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithSources replaces the configured worklog sources.
func WithSources(sources ...worklog.Source) Option {
	return func(s *Service) {
		s.sources = sources
	}
}

// WithRoster replaces the configured roster provider.
func WithRoster(p roster.Provider) Option {
	return func(s *Service) {
		s.roster = p
	}
}

// WithClock replaces time.Now for window resolution.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		cfg:    config.New(context.Background()),
		logger: nil, // Will be replaced when service starts
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start builds sources, roster and engine and opens their connections.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting overtime service...")

	mode, err := overtime.ParseMode(s.cfg.DefaultMode)
	if err != nil {
		return fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	loc, err := s.cfg.Location()
	if err != nil {
		return fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	holidays, err := calendar.ParseDateSet(s.cfg.Holidays)
	if err != nil {
		return fmt.Errorf("%w: holidays: %w", config.ErrInvalidConfig, err)
	}
	extra, err := calendar.ParseDateSet(s.cfg.ExtraWorkdays)
	if err != nil {
		return fmt.Errorf("%w: extra_workdays: %w", config.ErrInvalidConfig, err)
	}

	sources := s.sources
	if sources == nil {
		if sources, err = s.buildSources(ctx); err != nil {
			s.closeAll()
			return err
		}
	}
	provider := s.roster
	if provider == nil {
		if provider, err = s.buildRoster(ctx); err != nil {
			s.closeAll()
			return err
		}
	}

	opts := []overtime.Option{
		overtime.WithSources(sources...),
		overtime.WithDailyHours(s.cfg.ExpectedDailyHours),
		overtime.WithHolidays(holidays),
		overtime.WithExtraWorkdays(extra),
		overtime.WithLocation(loc),
		overtime.WithKeepAllThreshold(s.cfg.KeepAllThreshold),
		overtime.WithMaxWindowDays(s.cfg.MaxWindowDays),
		overtime.WithConcurrency(s.cfg.FetchConcurrency),
		overtime.WithLogger(s.logger.Named("engine")),
		overtime.WithClock(s.now),
	}
	if provider != nil {
		opts = append(opts, overtime.WithRoster(provider))
	}
	s.engine = overtime.New(opts...)
	s.defaultMode = mode

	s.started = true
	s.logger.Info(ctx, "overtime service started",
		logger.Any("sources", s.engine.Sources()),
		logger.String("defaultMode", mode.String()),
		logger.String("timezone", loc.String()),
	)

	return nil
}

// Stop closes connections held by sources and roster.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping overtime service...")
	s.closeAll()
	s.engine = nil
	s.started = false
	s.logger.Info(context.Background(), "overtime service stopped")
}

func (s *Service) closeAll() {
	for _, c := range s.closers {
		if err := c.Close(); err != nil && s.logger != nil {
			s.logger.Warn(context.Background(), "close failed", logger.Error(err))
		}
	}
	s.closers = nil
}

func (s *Service) atlassianClient(baseURL, bearer, email, apiToken string) *atlassian.Client {
	return atlassian.NewClient(atlassian.Config{
		BaseURL:  baseURL,
		Token:    bearer,
		Email:    email,
		APIToken: apiToken,
		Timeout:  time.Duration(s.cfg.HTTP.TimeoutMS) * time.Millisecond,
		RetryMax: s.cfg.HTTP.RetryMax,
	}, s.logger.Named("atlassian"))
}

func (s *Service) jiraClient() *atlassian.Client {
	j := s.cfg.Jira
	return s.atlassianClient(j.BaseURL, j.PAT, j.Email, j.APIToken)
}

// buildSources creates the configured sources in priority order. Remote
// sources sit behind a circuit breaker.
func (s *Service) buildSources(ctx context.Context) ([]worklog.Source, error) {
	breaker := worklog.BreakerSettings{
		MaxFailures: s.cfg.Breaker.MaxFailures,
		OpenTimeout: time.Duration(s.cfg.Breaker.OpenTimeoutMS) * time.Millisecond,
		OnStateChange: func(source string, from, to gobreaker.State) {
			metrics.UpdateSourceBreakerState(source, int(to))
			s.logger.Warn(context.Background(), "worklog source breaker state changed",
				logger.String("source", source),
				logger.String("from", from.String()),
				logger.String("to", to.String()))
		},
	}

	var out []worklog.Source
	for _, name := range s.cfg.Sources {
		switch name {
		case config.SourceTempo:
			client := s.atlassianClient(s.cfg.Tempo.BaseURL, s.cfg.Tempo.Token, "", "")
			src := tempo.New(client,
				tempo.WithPageSize(s.cfg.Tempo.PageSize),
				tempo.WithLogger(s.logger.Named("tempo")))
			out = append(out, worklog.WithBreaker(src, breaker))
		case config.SourceJira:
			src := worklogjira.New(s.jiraClient(),
				worklogjira.WithAPIVersion(s.cfg.Jira.APIVersion),
				worklogjira.WithJQL(s.cfg.Jira.JQL),
				worklogjira.WithConcurrency(s.cfg.FetchConcurrency),
				worklogjira.WithLogger(s.logger.Named("jira")))
			out = append(out, worklog.WithBreaker(src, breaker))
		case config.SourceRedis:
			src := redisstore.Dial(ctx, redisstore.Config{
				Addr:      s.cfg.Redis.Addr,
				Password:  s.cfg.Redis.Password,
				DB:        s.cfg.Redis.DB,
				KeyPrefix: s.cfg.Redis.KeyPrefix,
			}, s.logger.Named("redis"))
			s.closers = append(s.closers, src)
			out = append(out, worklog.WithBreaker(src, breaker))
		case config.SourceStatic:
			out = append(out, worklog.NewStatic(staticTotals(s.cfg.Static.Worklogs)))
		default:
			return nil, fmt.Errorf("%w: unknown source %q", config.ErrInvalidConfig, name)
		}
	}
	return out, nil
}

func staticTotals(entries []config.StaticWorklog) []model.WorklogTotals {
	out := make([]model.WorklogTotals, 0, len(entries))
	for _, e := range entries {
		billable := min(max(e.BillableSeconds, 0), e.TotalSeconds)
		out = append(out, model.WorklogTotals{
			PersonID:           e.PersonID,
			TotalSeconds:       e.TotalSeconds,
			BillableSeconds:    billable,
			NonBillableSeconds: e.TotalSeconds - billable,
		})
	}
	return out
}

func (s *Service) buildRoster(ctx context.Context) (roster.Provider, error) {
	switch s.cfg.Roster.Kind {
	case config.RosterStatic, "":
		people := make([]model.Person, 0, len(s.cfg.Roster.People))
		for _, p := range s.cfg.Roster.People {
			name := p.DisplayName
			if name == "" {
				name = p.ID
			}
			people = append(people, model.Person{ID: p.ID, DisplayName: name})
		}
		return roster.NewStatic(people), nil
	case config.RosterJira:
		return rosterjira.New(s.jiraClient(), s.cfg.Roster.JiraGroup, s.logger.Named("roster")), nil
	case config.RosterSQL:
		store, err := sqlstore.Open(ctx, s.cfg.Roster.DSN, s.logger.Named("roster"))
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, store)
		return store, nil
	case config.RosterNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: unknown roster kind %q", config.ErrInvalidConfig, s.cfg.Roster.Kind)
	}
}

// DefaultMode returns the configured aggregation mode.
func (s *Service) DefaultMode() overtime.Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaultMode
}

// DefaultWindow is the trailing window used when a request names none.
func (s *Service) DefaultWindow() calendar.Window {
	return calendar.Trailing(s.cfg.DefaultTrailingDays)
}

// MaxRecordsLimit caps record list sizes served to clients.
func (s *Service) MaxRecordsLimit() int {
	return s.cfg.MaxRecordsLimit
}

// ComputeOvertime runs one bounded computation.
func (s *Service) ComputeOvertime(ctx context.Context, mode overtime.Mode, window calendar.Window) (overtime.Result, error) {
	s.mu.RLock()
	engine := s.engine
	s.mu.RUnlock()
	if engine == nil {
		return overtime.Result{}, ErrNotStarted
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout())
	defer cancel()

	res, err := engine.ComputeOvertimeRecords(ctx, mode, window)
	if err != nil {
		metrics.RecordErrorByComponent("engine", "invalid_request")
		return overtime.Result{}, err
	}

	summary := overtime.ComputeSummary(res.Records)
	metrics.UpdateSummary(summary.EmployeesWithOvertime, summary.EmployeesWithUndertime)

	s.mu.Lock()
	s.computations++
	s.lastRun = time.Now()
	if res.UsedFallback {
		s.fallbacks++
		s.lastFallback = res.FallbackReason
	}
	s.mu.Unlock()

	return res, nil
}

// Baseline returns the required hours for window without fetching.
func (s *Service) Baseline(window calendar.Window) (model.RequiredHoursBaseline, error) {
	s.mu.RLock()
	engine := s.engine
	s.mu.RUnlock()
	if engine == nil {
		return model.RequiredHoursBaseline{}, ErrNotStarted
	}
	return engine.Baseline(window)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":          s.started,
		"defaultMode":      s.cfg.DefaultMode,
		"timezone":         s.cfg.Timezone,
		"expectedDaily":    s.cfg.ExpectedDailyHours,
		"keepAllThreshold": s.cfg.KeepAllThreshold,
		"computations":     s.computations,
		"fallbacks":        s.fallbacks,
	}

	if s.started {
		stats["sources"] = s.engine.Sources()
	}
	if !s.lastRun.IsZero() {
		stats["lastRun"] = s.lastRun.UTC().Format(time.RFC3339)
	}
	if s.lastFallback != "" {
		stats["lastFallbackReason"] = s.lastFallback
	}

	return stats
}
