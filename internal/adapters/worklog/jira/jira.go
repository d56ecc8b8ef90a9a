// Package jira reads worklogs from Jira issues. Jira has no billable flag, so
// every logged second is reported as non-billable.
package jira

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okian/overtime/internal/adapters/atlassian"
	"github.com/okian/overtime/internal/adapters/worklog"
	"github.com/okian/overtime/internal/domain/calendar"
	"github.com/okian/overtime/internal/domain/model"
	"github.com/okian/overtime/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Default source configuration constants.
const (
	defaultAPIVersion  = "3"
	defaultPageSize    = 100
	defaultConcurrency = 4
	maxIssues          = 5000
	sourceName         = "jira"
)

// Option applies a configuration option to the Source.
type Option func(*Source)

// WithAPIVersion selects the REST API version ("2" or "3").
func WithAPIVersion(v string) Option {
	return func(s *Source) {
		if v == "2" || v == "3" {
			s.apiVersion = v
		}
	}
}

// WithJQL narrows the issue search, e.g. `project in (OPS, WEB)`.
func WithJQL(jql string) Option {
	return func(s *Source) {
		s.jql = strings.TrimSpace(jql)
	}
}

// WithConcurrency bounds parallel per-issue worklog requests.
func WithConcurrency(n int) Option {
	return func(s *Source) {
		if n > 0 {
			s.concurrency = n
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

// Source implements worklog.Source against Jira.
type Source struct {
	client      *atlassian.Client
	apiVersion  string
	jql         string
	concurrency int
	logger      logger.Logger
}

// New creates a Jira source on top of an authenticated client.
func New(client *atlassian.Client, opts ...Option) *Source {
	s := &Source{
		client:      client,
		apiVersion:  defaultAPIVersion,
		concurrency: defaultConcurrency,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements worklog.Source.
func (s *Source) Name() string { return sourceName }

type searchRequest struct {
	JQL        string   `json:"jql"`
	StartAt    int      `json:"startAt"`
	MaxResults int      `json:"maxResults"`
	Fields     []string `json:"fields"`
}

type searchResponse struct {
	StartAt    int `json:"startAt"`
	MaxResults int `json:"maxResults"`
	Total      int `json:"total"`
	Issues     []struct {
		ID  string `json:"id"`
		Key string `json:"key"`
	} `json:"issues"`
}

type worklogResponse struct {
	StartAt    int `json:"startAt"`
	MaxResults int `json:"maxResults"`
	Total      int `json:"total"`
	Worklogs   []struct {
		Started          string `json:"started"`
		TimeSpentSeconds int64  `json:"timeSpentSeconds"`
		Author           struct {
			AccountID string `json:"accountId"`
			// Name is the user key on Jira Server/Data Center.
			Name string `json:"name"`
		} `json:"author"`
	} `json:"worklogs"`
}

// FetchTotals implements worklog.Source.
func (s *Source) FetchTotals(ctx context.Context, q worklog.Query) worklog.Result {
	keys, err := s.searchIssues(ctx, q)
	if err != nil {
		s.logger.Warn(ctx, "jira issue search failed", logger.String("person", q.PersonID), logger.Error(err))
		return worklog.Unavailable(err)
	}

	perIssue := make([][]model.WorklogTotals, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, key := range keys {
		g.Go(func() error {
			entries, err := s.issueWorklogs(gctx, key, q)
			if err != nil {
				return fmt.Errorf("issue %s: %w", key, err)
			}
			perIssue[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Warn(ctx, "jira worklog fetch failed", logger.String("person", q.PersonID), logger.Error(err))
		return worklog.Unavailable(err)
	}

	var all []model.WorklogTotals
	for _, entries := range perIssue {
		all = append(all, entries...)
	}
	return worklog.Available(worklog.Aggregate(all))
}

// jqlEscaper escapes a value for a double-quoted JQL string literal.
var jqlEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// BuildJQL returns the issue filter for q, combined with the configured JQL.
func (s *Source) BuildJQL(q worklog.Query) string {
	clauses := []string{
		fmt.Sprintf(`worklogDate >= "%s"`, q.Start.Format(calendar.DateLayout)),
		fmt.Sprintf(`worklogDate <= "%s"`, q.End.Format(calendar.DateLayout)),
	}
	if q.PersonID != "" {
		clauses = append(clauses, `worklogAuthor = "`+jqlEscaper.Replace(q.PersonID)+`"`)
	}
	jql := strings.Join(clauses, " AND ")
	if s.jql != "" {
		jql = "(" + s.jql + ") AND " + jql
	}
	return jql + " ORDER BY key ASC"
}

func (s *Source) searchIssues(ctx context.Context, q worklog.Query) ([]string, error) {
	path := "/rest/api/" + s.apiVersion + "/search"
	jql := s.BuildJQL(q)

	var keys []string
	for startAt := 0; ; {
		var resp searchResponse
		req := searchRequest{JQL: jql, StartAt: startAt, MaxResults: defaultPageSize, Fields: []string{"key"}}
		if err := s.client.PostJSON(ctx, path, req, &resp); err != nil {
			return nil, err
		}
		for _, is := range resp.Issues {
			keys = append(keys, is.Key)
		}
		startAt += len(resp.Issues)
		if len(resp.Issues) == 0 || startAt >= resp.Total {
			return keys, nil
		}
		if startAt >= maxIssues {
			return nil, fmt.Errorf("jira: more than %d issues match %q", maxIssues, jql)
		}
	}
}

func (s *Source) issueWorklogs(ctx context.Context, key string, q worklog.Query) ([]model.WorklogTotals, error) {
	path := "/rest/api/" + s.apiVersion + "/issue/" + url.PathEscape(key) + "/worklog"
	params := url.Values{}
	params.Set("startedAfter", strconv.FormatInt(q.Start.UnixMilli(), 10))
	// End is inclusive; include the whole last day.
	params.Set("startedBefore", strconv.FormatInt(q.End.AddDate(0, 0, 1).UnixMilli(), 10))
	params.Set("maxResults", strconv.Itoa(defaultPageSize))

	var out []model.WorklogTotals
	for startAt := 0; ; {
		params.Set("startAt", strconv.Itoa(startAt))
		var resp worklogResponse
		if err := s.client.GetJSON(ctx, path, params, &resp); err != nil {
			return nil, err
		}
		for _, wl := range resp.Worklogs {
			author := wl.Author.AccountID
			if author == "" {
				author = wl.Author.Name
			}
			if author == "" || (q.PersonID != "" && author != q.PersonID) {
				continue
			}
			if day, ok := startedDay(wl.Started); ok && !q.InRange(day) {
				continue
			}
			spent := max(wl.TimeSpentSeconds, 0)
			out = append(out, model.WorklogTotals{PersonID: author, TotalSeconds: spent, NonBillableSeconds: spent})
		}
		startAt += len(resp.Worklogs)
		if len(resp.Worklogs) == 0 || startAt >= resp.Total {
			return out, nil
		}
	}
}

// startedDay extracts the calendar date from a Jira timestamp such as
// "2024-01-02T09:00:00.000+0000". Attribution is by the date as written.
func startedDay(started string) (time.Time, bool) {
	if len(started) < len(calendar.DateLayout) {
		return time.Time{}, false
	}
	d, err := time.Parse(calendar.DateLayout, started[:len(calendar.DateLayout)])
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}
