// Package tempo reads worklogs from the Tempo REST API (v4).
package tempo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/okian/overtime/internal/adapters/atlassian"
	"github.com/okian/overtime/internal/adapters/worklog"
	"github.com/okian/overtime/internal/domain/calendar"
	"github.com/okian/overtime/internal/domain/model"
	"github.com/okian/overtime/pkg/logger"
)

// Default source configuration constants.
const (
	defaultPageSize = 1000
	maxPages        = 500
	sourceName      = "tempo"
)

// Option applies a configuration option to the Source.
type Option func(*Source)

// WithPageSize sets the page size requested from the API.
func WithPageSize(n int) Option {
	return func(s *Source) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Source) {
		if l != nil {
			s.logger = l
		}
	}
}

// Source implements worklog.Source against Tempo.
type Source struct {
	client   *atlassian.Client
	pageSize int
	logger   logger.Logger
}

// New creates a Tempo source on top of an authenticated client.
func New(client *atlassian.Client, opts ...Option) *Source {
	s := &Source{
		client:   client,
		pageSize: defaultPageSize,
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements worklog.Source.
func (s *Source) Name() string { return sourceName }

type worklogPage struct {
	Metadata struct {
		Count  int    `json:"count"`
		Offset int    `json:"offset"`
		Limit  int    `json:"limit"`
		Next   string `json:"next"`
	} `json:"metadata"`
	Results []worklogEntry `json:"results"`
}

type worklogEntry struct {
	TempoWorklogID   int64  `json:"tempoWorklogId"`
	StartDate        string `json:"startDate"`
	TimeSpentSeconds int64  `json:"timeSpentSeconds"`
	BillableSeconds  int64  `json:"billableSeconds"`
	Author           struct {
		AccountID string `json:"accountId"`
	} `json:"author"`
}

// FetchTotals implements worklog.Source.
func (s *Source) FetchTotals(ctx context.Context, q worklog.Query) worklog.Result {
	path := "/4/worklogs"
	if q.PersonID != "" {
		path = "/4/worklogs/user/" + url.PathEscape(q.PersonID)
	}
	params := url.Values{}
	params.Set("from", q.Start.Format(calendar.DateLayout))
	params.Set("to", q.End.Format(calendar.DateLayout))
	params.Set("offset", "0")
	params.Set("limit", strconv.Itoa(s.pageSize))

	var entries []model.WorklogTotals
	next := s.client.URL(path, params)
	for page := 0; next != ""; page++ {
		if page >= maxPages {
			return worklog.Unavailable(fmt.Errorf("tempo: more than %d pages", maxPages))
		}
		var body worklogPage
		if err := s.client.Do(ctx, http.MethodGet, next, nil, &body); err != nil {
			s.logger.Warn(ctx, "tempo fetch failed", logger.String("person", q.PersonID), logger.Error(err))
			return worklog.Unavailable(err)
		}
		for _, e := range body.Results {
			if e.Author.AccountID == "" || !inRange(q, e.StartDate) {
				continue
			}
			entries = append(entries, normalize(e))
		}
		next = body.Metadata.Next
	}
	return worklog.Available(worklog.Aggregate(entries))
}

func normalize(e worklogEntry) model.WorklogTotals {
	spent := max(e.TimeSpentSeconds, 0)
	billable := min(max(e.BillableSeconds, 0), spent)
	return model.WorklogTotals{
		PersonID:           e.Author.AccountID,
		TotalSeconds:       spent,
		BillableSeconds:    billable,
		NonBillableSeconds: spent - billable,
	}
}

// inRange drops entries the API returned outside the window. Entries with an
// unparseable date are kept; the API already filtered them by from/to.
func inRange(q worklog.Query, startDate string) bool {
	d, err := time.Parse(calendar.DateLayout, startDate)
	if err != nil {
		return true
	}
	return q.InRange(d)
}
