package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/okian/overtime/internal/domain/calendar"
	"github.com/okian/overtime/internal/domain/overtime"
)

// Source names accepted in Config.Sources.
const (
	SourceTempo  = "tempo"
	SourceJira   = "jira"
	SourceRedis  = "redis"
	SourceStatic = "static"
)

// Roster kinds accepted in RosterConfig.Kind.
const (
	RosterStatic = "static"
	RosterJira   = "jira"
	RosterSQL    = "sql"
	RosterNone   = "none"
)

// maxWindowDaysCeiling bounds max_window_days to roughly a century.
const maxWindowDaysCeiling = 36_600

var (
	knownSources = []string{SourceTempo, SourceJira, SourceRedis, SourceStatic}
	knownRosters = []string{RosterStatic, RosterJira, RosterSQL, RosterNone}
)

// normalize lowercases names and splits comma-joined lists, which is what
// list values look like when they arrive through env vars.
func (c *Config) normalize() {
	c.Sources = splitList(c.Sources, true)
	c.Holidays = splitList(c.Holidays, false)
	c.ExtraWorkdays = splitList(c.ExtraWorkdays, false)
	c.Roster.Kind = strings.ToLower(strings.TrimSpace(c.Roster.Kind))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
}

func splitList(values []string, lower bool) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if lower {
				part = strings.ToLower(part)
			}
			out = append(out, part)
		}
	}
	return out
}

// Validate reports every problem at once, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Addr == "" {
		add("addr must not be empty")
	}
	if c.ExpectedDailyHours <= 0 {
		add("expected_daily_hours must be positive, got %v", c.ExpectedDailyHours)
	}
	if _, err := c.Location(); err != nil {
		add("timezone %q: %v", c.Timezone, err)
	}
	if _, err := calendar.ParseDateSet(c.Holidays); err != nil {
		add("holidays: %v", err)
	}
	if _, err := calendar.ParseDateSet(c.ExtraWorkdays); err != nil {
		add("extra_workdays: %v", err)
	}
	if _, err := overtime.ParseMode(c.DefaultMode); err != nil {
		add("default_mode: %v", err)
	}
	if c.DefaultTrailingDays <= 0 {
		add("default_trailing_days must be positive, got %d", c.DefaultTrailingDays)
	}
	if c.MaxWindowDays <= 0 || c.MaxWindowDays > maxWindowDaysCeiling {
		add("max_window_days must be between 1 and %d, got %d", maxWindowDaysCeiling, c.MaxWindowDays)
	} else if c.DefaultTrailingDays > c.MaxWindowDays {
		add("default_trailing_days %d exceeds max_window_days %d", c.DefaultTrailingDays, c.MaxWindowDays)
	}
	if c.KeepAllThreshold < 0 {
		add("keep_all_threshold must not be negative, got %d", c.KeepAllThreshold)
	}
	if c.FetchConcurrency <= 0 {
		add("fetch_concurrency must be positive, got %d", c.FetchConcurrency)
	}
	if c.FetchTimeoutMS <= 0 {
		add("fetch_timeout_ms must be positive, got %d", c.FetchTimeoutMS)
	}
	if c.MaxRecordsLimit <= 0 {
		add("max_records_limit must be positive, got %d", c.MaxRecordsLimit)
	}
	if c.Metrics.RefreshIntervalMS <= 0 {
		add("metrics.refresh_interval_ms must be positive, got %d", c.Metrics.RefreshIntervalMS)
	}
	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		add("log_format must be text or json, got %q", c.LogFormat)
	}

	if len(c.Sources) == 0 {
		add("sources must name at least one worklog source")
	}
	seen := make(map[string]bool, len(c.Sources))
	for _, s := range c.Sources {
		if !slices.Contains(knownSources, s) {
			add("unknown source %q", s)
		}
		if seen[s] {
			add("source %q listed twice", s)
		}
		seen[s] = true
	}
	if seen[SourceTempo] && c.Tempo.Token == "" {
		add("tempo.token is required when the tempo source is enabled")
	}
	if (seen[SourceJira] || c.Roster.Kind == RosterJira) && c.Jira.BaseURL == "" {
		add("jira.base_url is required when jira is used")
	}

	if !slices.Contains(knownRosters, c.Roster.Kind) {
		add("unknown roster kind %q", c.Roster.Kind)
	}
	if c.Roster.Kind == RosterJira && c.Roster.JiraGroup == "" {
		add("roster.jira_group is required for the jira roster")
	}
	if c.Roster.Kind == RosterSQL && c.Roster.DSN == "" {
		add("roster.dsn is required for the sql roster")
	}
	for i, p := range c.Roster.People {
		if p.ID == "" {
			add("roster.people[%d].id must not be empty", i)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
