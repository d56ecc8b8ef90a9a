// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Nested sections map to koanf keys joined by "."; env vars use "__".
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"context"
	"time"
	_ "time/tzdata" // Location() must work in minimal containers
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Timezone decides which calendar day "today" is, e.g. "Europe/Berlin".
	Timezone string `koanf:"timezone"`

	// ExpectedDailyHours is the required time per qualifying workday.
	ExpectedDailyHours float64 `koanf:"expected_daily_hours"`

	// Holidays and ExtraWorkdays are YYYY-MM-DD dates. An extra workday
	// counts even when it is also a holiday or a weekend.
	Holidays      []string `koanf:"holidays"`
	ExtraWorkdays []string `koanf:"extra_workdays"`

	// DefaultMode is "roster" or "source".
	DefaultMode string `koanf:"default_mode"`

	// DefaultTrailingDays is the window used when a request names none.
	DefaultTrailingDays int `koanf:"default_trailing_days"`

	// MaxWindowDays is the longest window a request may ask for, inclusive.
	MaxWindowDays int `koanf:"max_window_days"`

	// KeepAllThreshold keeps zero-activity people in source mode when the
	// candidate count is at or below it.
	KeepAllThreshold int `koanf:"keep_all_threshold"`

	// FetchConcurrency bounds parallel fetches per computation.
	FetchConcurrency int `koanf:"fetch_concurrency"`

	// FetchTimeoutMS bounds one computation end to end.
	FetchTimeoutMS int `koanf:"fetch_timeout_ms"`

	// MaxRecordsLimit caps GET /overtime?limit.
	MaxRecordsLimit int `koanf:"max_records_limit"`

	// Sources lists worklog sources in priority order: tempo, jira, redis, static.
	Sources []string `koanf:"sources"`

	Tempo   TempoConfig   `koanf:"tempo"`
	Jira    JiraConfig    `koanf:"jira"`
	Redis   RedisConfig   `koanf:"redis"`
	Static  StaticConfig  `koanf:"static"`
	Roster  RosterConfig  `koanf:"roster"`
	Breaker BreakerConfig `koanf:"breaker"`
	HTTP    HTTPConfig    `koanf:"http"`
	Metrics MetricsConfig `koanf:"metrics"`
}

// TempoConfig configures the Tempo worklog source.
type TempoConfig struct {
	BaseURL  string `koanf:"base_url"`
	Token    string `koanf:"token"`
	PageSize int    `koanf:"page_size"`
}

// JiraConfig configures the Jira worklog source and roster. PAT takes
// precedence over Email/APIToken.
type JiraConfig struct {
	BaseURL    string `koanf:"base_url"`
	Email      string `koanf:"email"`
	APIToken   string `koanf:"api_token"`
	PAT        string `koanf:"pat"`
	APIVersion string `koanf:"api_version"`
	JQL        string `koanf:"jql"`
}

// RedisConfig configures the pre-aggregated Redis source.
type RedisConfig struct {
	Addr      string `koanf:"addr"`
	Password  string `koanf:"password"`
	DB        int    `koanf:"db"`
	KeyPrefix string `koanf:"key_prefix"`
}

// StaticConfig holds fixed worklog totals for demos.
type StaticConfig struct {
	Worklogs []StaticWorklog `koanf:"worklogs"`
}

// StaticWorklog is one fixed totals entry.
type StaticWorklog struct {
	PersonID        string `koanf:"person_id"`
	TotalSeconds    int64  `koanf:"total_seconds"`
	BillableSeconds int64  `koanf:"billable_seconds"`
}

// RosterConfig selects the roster provider.
type RosterConfig struct {
	// Kind is static, jira, sql or none.
	Kind      string         `koanf:"kind"`
	JiraGroup string         `koanf:"jira_group"`
	DSN       string         `koanf:"dsn"`
	People    []PersonConfig `koanf:"people"`
}

// PersonConfig is a static roster entry.
type PersonConfig struct {
	ID          string `koanf:"id"`
	DisplayName string `koanf:"display_name"`
}

// BreakerConfig configures the per-source circuit breaker.
type BreakerConfig struct {
	MaxFailures   uint32 `koanf:"max_failures"`
	OpenTimeoutMS int    `koanf:"open_timeout_ms"`
}

// HTTPConfig configures outbound Atlassian requests.
type HTTPConfig struct {
	TimeoutMS int `koanf:"timeout_ms"`
	RetryMax  int `koanf:"retry_max"`
}

// MetricsConfig configures Prometheus recording.
type MetricsConfig struct {
	Enabled bool `koanf:"enabled"`

	// RefreshIntervalMS is how often runtime gauges are sampled.
	RefreshIntervalMS int `koanf:"refresh_interval_ms"`
}

// RefreshInterval returns RefreshIntervalMS as a duration.
func (m MetricsConfig) RefreshInterval() time.Duration {
	return time.Duration(m.RefreshIntervalMS) * time.Millisecond
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		Timezone:            "UTC",
		ExpectedDailyHours:  8,
		DefaultMode:         "roster",
		DefaultTrailingDays: 30,
		MaxWindowDays:       731,
		KeepAllThreshold:    5,
		FetchConcurrency:    8,
		FetchTimeoutMS:      30_000,
		MaxRecordsLimit:     500,
		Sources:             []string{SourceStatic},
		Tempo: TempoConfig{
			BaseURL:  "https://api.tempo.io",
			PageSize: 1000,
		},
		Jira: JiraConfig{
			APIVersion: "3",
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			KeyPrefix: "overtime",
		},
		Roster: RosterConfig{
			Kind: RosterStatic,
		},
		Breaker: BreakerConfig{
			MaxFailures:   3,
			OpenTimeoutMS: 30_000,
		},
		HTTP: HTTPConfig{
			TimeoutMS: 15_000,
			RetryMax:  2,
		},
		Metrics: MetricsConfig{
			Enabled:           true,
			RefreshIntervalMS: 10_000,
		},
	}
}

// FetchTimeout returns FetchTimeoutMS as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutMS) * time.Millisecond
}

// Location loads Timezone. An empty name means UTC.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}
