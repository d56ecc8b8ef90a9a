// Package redisstore reads pre-aggregated daily worklog totals from Redis.
//
// Layout, with the default prefix "overtime":
//
//	overtime:worklog:people                  set of person ids
//	overtime:worklog:<person>:<YYYY-MM-DD>   hash {total_seconds, billable_seconds}
//
// An exporter owned by the time-tracking side keeps these keys current.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/okian/overtime/internal/adapters/worklog"
	"github.com/okian/overtime/internal/domain/calendar"
	"github.com/okian/overtime/internal/domain/model"
	"github.com/okian/overtime/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// Default store configuration constants.
const (
	defaultKeyPrefix   = "overtime"
	defaultDialTimeout = 5 * time.Second
	pingTimeout        = 5 * time.Second
	sourceName         = "redis"
)

// Config holds connection settings.
type Config struct {
	Addr        string
	Password    string
	DB          int
	KeyPrefix   string
	DialTimeout time.Duration
}

// Source implements worklog.Source over Redis.
type Source struct {
	client *redis.Client
	prefix string
	logger logger.Logger
}

// Open connects to Redis and verifies the connection.
func Open(ctx context.Context, cfg Config, log logger.Logger) (*Source, error) {
	client := newClient(cfg)
	if err := ping(ctx, client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return New(client, cfg.KeyPrefix, log), nil
}

// Dial builds a Source even when Redis is unreachable. The failed ping is
// logged and fetches report unavailable until the server answers.
func Dial(ctx context.Context, cfg Config, log logger.Logger) *Source {
	src := New(newClient(cfg), cfg.KeyPrefix, log)
	if err := ping(ctx, src.client); err != nil {
		src.logger.Warn(ctx, "redis unreachable at startup", logger.String("addr", cfg.Addr), logger.Error(err))
	}
	return src
}

func newClient(cfg Config) *redis.Client {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	return redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})
}

func ping(ctx context.Context, client *redis.Client) error {
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return client.Ping(pctx).Err()
}

// New wraps an existing client.
func New(client *redis.Client, prefix string, log logger.Logger) *Source {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Source{client: client, prefix: prefix, logger: log}
}

// Close closes the Redis connection.
func (s *Source) Close() error {
	return s.client.Close()
}

// Name implements worklog.Source.
func (s *Source) Name() string { return sourceName }

func (s *Source) peopleKey() string {
	return s.prefix + ":worklog:people"
}

func (s *Source) dayKey(personID string, day time.Time) string {
	return fmt.Sprintf("%s:worklog:%s:%s", s.prefix, personID, day.Format(calendar.DateLayout))
}

// FetchTotals implements worklog.Source.
func (s *Source) FetchTotals(ctx context.Context, q worklog.Query) worklog.Result {
	people := []string{q.PersonID}
	if q.PersonID == "" {
		members, err := s.client.SMembers(ctx, s.peopleKey()).Result()
		if err != nil {
			s.logger.Warn(ctx, "redis people lookup failed", logger.Error(err))
			return worklog.Unavailable(err)
		}
		sort.Strings(members)
		people = members
	}
	if len(people) == 0 {
		return worklog.Available(nil)
	}

	// Use pipeline for efficient batch retrieval
	pipe := s.client.Pipeline()
	type dayCmd struct {
		person string
		cmd    *redis.MapStringStringCmd
	}
	var cmds []dayCmd
	for _, p := range people {
		for d := q.Start; !d.After(q.End); d = d.AddDate(0, 0, 1) {
			cmds = append(cmds, dayCmd{person: p, cmd: pipe.HGetAll(ctx, s.dayKey(p, d))})
		}
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		s.logger.Warn(ctx, "redis worklog pipeline failed", logger.Error(err))
		return worklog.Unavailable(err)
	}

	byPerson := make(map[string]*model.WorklogTotals, len(people))
	for _, c := range cmds {
		data, err := c.cmd.Result()
		if err != nil || len(data) == 0 {
			continue
		}
		day, err := parseDailyTotals(c.person, data)
		if err != nil {
			s.logger.Warn(ctx, "skipping malformed worklog hash", logger.String("person", c.person), logger.Error(err))
			continue
		}
		if t, ok := byPerson[c.person]; ok {
			t.Add(day)
		} else {
			byPerson[c.person] = &day
		}
	}

	out := make([]model.WorklogTotals, 0, len(byPerson))
	for _, p := range people {
		if t, ok := byPerson[p]; ok {
			out = append(out, *t)
		}
	}
	return worklog.Available(out)
}

// Record adds seconds to a person's day. Exporters and tests use it to
// populate the store.
func (s *Source) Record(ctx context.Context, personID string, day time.Time, totalSeconds, billableSeconds int64) error {
	key := s.dayKey(personID, calendar.Day(day))
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, s.peopleKey(), personID)
	pipe.HIncrBy(ctx, key, "total_seconds", totalSeconds)
	pipe.HIncrBy(ctx, key, "billable_seconds", billableSeconds)
	_, err := pipe.Exec(ctx)
	return err
}

// parseDailyTotals converts a Redis hash to WorklogTotals.
func parseDailyTotals(personID string, data map[string]string) (model.WorklogTotals, error) {
	total, err := strconv.ParseInt(data["total_seconds"], 10, 64)
	if err != nil {
		return model.WorklogTotals{}, fmt.Errorf("failed to parse total_seconds: %w", err)
	}
	var billable int64
	if v, ok := data["billable_seconds"]; ok {
		billable, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return model.WorklogTotals{}, fmt.Errorf("failed to parse billable_seconds: %w", err)
		}
	}
	total = max(total, 0)
	billable = min(max(billable, 0), total)
	return model.WorklogTotals{
		PersonID:           personID,
		TotalSeconds:       total,
		BillableSeconds:    billable,
		NonBillableSeconds: total - billable,
	}, nil
}
