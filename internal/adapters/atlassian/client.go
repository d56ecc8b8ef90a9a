// Package atlassian is a small JSON client for Jira and Tempo REST APIs.
// Requests are retried on 429 and 5xx responses.
package atlassian

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/okian/overtime/pkg/logger"
)

// Default client configuration constants.
const (
	defaultTimeout      = 15 * time.Second
	defaultRetryMax     = 2
	defaultRetryWaitMin = 300 * time.Millisecond
	defaultRetryWaitMax = 3 * time.Second
	maxErrorBodyBytes   = 512
)

// Sentinel error kinds for this package.
var (
	ErrNoBaseURL = errors.New("atlassian: empty base url")
	ErrDecode    = errors.New("atlassian: decode response")
	// ErrForeignHost rejects a request URL outside the base URL's origin.
	ErrForeignHost = errors.New("atlassian: url host differs from base url")
)

// StatusError is returned for non-2xx responses that are not retried away.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("atlassian api status=%d body=%s", e.Status, e.Body)
}

// Config holds connection and credential settings. Token takes precedence
// over Email/APIToken basic auth.
type Config struct {
	BaseURL  string
	Token    string
	Email    string
	APIToken string
	Timeout  time.Duration
	RetryMax int
}

// Client issues authenticated JSON requests.
type Client struct {
	base   string
	cfg    Config
	http   *retryablehttp.Client
	logger logger.Logger
}

// NewClient builds a client. A nil log discards retry logs.
func NewClient(cfg Config, log logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	} else if cfg.RetryMax == 0 {
		cfg.RetryMax = defaultRetryMax
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.RetryMax
	rc.RetryWaitMin = defaultRetryWaitMin
	rc.RetryWaitMax = defaultRetryWaitMax
	rc.HTTPClient.Timeout = cfg.Timeout
	rc.Logger = leveledLogger{log: log}
	// Surface the last response instead of a generic "giving up" error.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		base:   strings.TrimRight(cfg.BaseURL, "/"),
		cfg:    cfg,
		http:   rc,
		logger: log,
	}
}

// URL joins path and query onto the base URL.
func (c *Client) URL(path string, q url.Values) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// GetJSON issues GET path?q and decodes the response into out.
func (c *Client) GetJSON(ctx context.Context, path string, q url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, c.URL(path, q), nil, out)
}

// PostJSON issues POST path with a JSON body and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, c.URL(path, nil), body, out)
}

// Do issues a request against rawURL, typically a pagination link returned
// by the API. Relative links resolve against the base URL. Links to another
// scheme or host fail with ErrForeignHost and no credentials are sent.
func (c *Client) Do(ctx context.Context, method, rawURL string, body, out any) error {
	if c.base == "" {
		return ErrNoBaseURL
	}
	rawURL, err := c.resolve(rawURL)
	if err != nil {
		return err
	}

	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("atlassian: encode request: %w", err)
		}
		payload = b
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, rawURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("atlassian: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req.Request)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("atlassian: %s %s: %w", method, rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}

func (c *Client) resolve(rawURL string) (string, error) {
	base, err := url.Parse(c.base)
	if err != nil {
		return "", fmt.Errorf("atlassian: parse base url: %w", err)
	}
	ref, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("atlassian: parse url: %w", err)
	}
	u := base.ResolveReference(ref)
	if !strings.EqualFold(u.Scheme, base.Scheme) || !strings.EqualFold(u.Host, base.Host) {
		return "", fmt.Errorf("%w: %s", ErrForeignHost, u.Host)
	}
	return u.String(), nil
}

func (c *Client) authorize(req *http.Request) {
	switch {
	case c.cfg.Token != "":
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	case c.cfg.Email != "" && c.cfg.APIToken != "":
		req.SetBasicAuth(c.cfg.Email, c.cfg.APIToken)
	}
}
