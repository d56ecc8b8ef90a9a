// Package report fetches overtime data from a running service and renders it
// as a terminal table.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/okian/overtime/internal/domain/model"
)

// Client defaults.
const (
	DefaultBaseURL    = "http://localhost:9080"
	DefaultTimeout    = 30 * time.Second
	defaultRetryMax   = 2
	maxErrorBodyBytes = 512
)

// ErrStatus is wrapped by errors for non-2xx API responses.
var ErrStatus = errors.New("report: unexpected status")

// Query selects the aggregation to fetch. Zero values are left to the
// service defaults.
type Query struct {
	Mode   string
	Window string
	Days   int
	From   string
	To     string
	Limit  int
}

// Values encodes q as URL query parameters.
func (q Query) Values() url.Values {
	v := url.Values{}
	set := func(k, val string) {
		if val != "" {
			v.Set(k, val)
		}
	}
	set("mode", q.Mode)
	set("window", q.Window)
	set("from", q.From)
	set("to", q.To)
	if q.Days > 0 {
		v.Set("days", strconv.Itoa(q.Days))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

// Overtime mirrors the GET /overtime response.
type Overtime struct {
	Mode           string                      `json:"mode"`
	Baseline       model.RequiredHoursBaseline `json:"baseline"`
	Records        []model.OvertimeRecord      `json:"records"`
	UsedFallback   bool                        `json:"used_fallback"`
	FallbackReason string                      `json:"fallback_reason"`
}

// Summary mirrors the GET /overtime/summary response.
type Summary struct {
	Mode           string                      `json:"mode"`
	Baseline       model.RequiredHoursBaseline `json:"baseline"`
	Summary        model.OvertimeSummary       `json:"summary"`
	UsedFallback   bool                        `json:"used_fallback"`
	FallbackReason string                      `json:"fallback_reason"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Client talks to the overtime HTTP API.
type Client struct {
	base string
	http *retryablehttp.Client
}

// NewClient creates a client for baseURL. Empty values fall back to defaults.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	rc := retryablehttp.NewClient()
	rc.RetryMax = defaultRetryMax
	rc.HTTPClient.Timeout = timeout
	rc.Logger = nil
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return &Client{base: strings.TrimRight(baseURL, "/"), http: rc}
}

// Overtime fetches the record list.
func (c *Client) Overtime(ctx context.Context, q Query) (Overtime, error) {
	var out Overtime
	err := c.get(ctx, "/overtime", q.Values(), &out)
	return out, err
}

// Summary fetches the aggregate statistics. Limit is ignored by the service.
func (c *Client) Summary(ctx context.Context, q Query) (Summary, error) {
	var out Summary
	q.Limit = 0
	err := c.get(ctx, "/overtime/summary", q.Values(), &out)
	return out, err
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("report: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("report: GET %s: %w", u, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		var e apiError
		if json.Unmarshal(b, &e) == nil && e.Message != "" {
			return fmt.Errorf("%w %d: %s (%s)", ErrStatus, resp.StatusCode, e.Message, e.Code)
		}
		return fmt.Errorf("%w %d: %s", ErrStatus, resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("report: decode %s: %w", path, err)
	}
	return nil
}
