// Package gfnapi is the HTTP client for the Global Footprint Network API
// (https://api.footprintnetwork.org/v1), including record type discovery.
//
// Auth per the API docs is HTTP Basic with an arbitrary username and the
// API key as password. 429 responses carry a Retry-After header that is
// honored verbatim; 5xx and network errors retry with exponential
// backoff; any other 4xx fails immediately.
package gfnapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/FilipeTheAnalyst/global-footprint-network-use-case/internal/ratelimit"
	"github.com/FilipeTheAnalyst/global-footprint-network-use-case/internal/resilience"
)

// API is the subset of the upstream API the pipeline consumes. The mock
// implementation in this package satisfies it for credential-less runs.
type API interface {
	Countries(ctx context.Context) ([]RawCountry, error)
	Types(ctx context.Context) ([]RawType, error)
	YearData(ctx context.Context, year int) ([]RawFact, error)
}

// Options configures the HTTP client.
type Options struct {
	BaseURL     string
	Username    string
	APIKey      string
	UserAgent   string
	MetaTimeout time.Duration // per-call timeout for /countries and /types
	BulkTimeout time.Duration // per-call timeout for /data/all/{year}
	Limiter     *ratelimit.Bucket
}

// Client implements API against the live upstream service.
type Client struct {
	httpClient *http.Client
	opts       Options
	limiter    *ratelimit.Bucket
	bulkRetry  resilience.RetryConfig
	metaRetry  resilience.RetryConfig
}

// NewClient creates a Client with the given options, filling in defaults.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.footprintnetwork.org/v1"
	}
	if opts.Username == "" {
		opts.Username = "any-user-name"
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "gfn-etl/1.0 (+https://api.footprintnetwork.org)"
	}
	if opts.MetaTimeout == 0 {
		opts.MetaTimeout = 15 * time.Second
	}
	if opts.BulkTimeout == 0 {
		opts.BulkTimeout = 60 * time.Second
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = ratelimit.NewBucket(5, 8)
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{
		httpClient: &http.Client{Transport: transport},
		opts:       opts,
		limiter:    limiter,
		bulkRetry:  resilience.BulkRetryConfig(),
		metaRetry:  resilience.MetaRetryConfig(),
	}
}

// Countries fetches the country reference list.
func (c *Client) Countries(ctx context.Context) ([]RawCountry, error) {
	var out []RawCountry
	if err := c.getJSON(ctx, "/countries", &out, c.metaRetry, c.opts.MetaTimeout); err != nil {
		return nil, eris.Wrap(err, "gfnapi: countries")
	}
	return out, nil
}

// Types fetches the record type metadata. The endpoint is optional
// upstream; callers fall back to probing when it is unavailable.
func (c *Client) Types(ctx context.Context) ([]RawType, error) {
	var out []RawType
	if err := c.getJSON(ctx, "/types", &out, c.metaRetry, c.opts.MetaTimeout); err != nil {
		return nil, eris.Wrap(err, "gfnapi: types")
	}
	return out, nil
}

// YearData fetches the bulk payload for one year: all countries, all
// record types, one response.
func (c *Client) YearData(ctx context.Context, year int) ([]RawFact, error) {
	var out []RawFact
	path := fmt.Sprintf("/data/all/%d", year)
	if err := c.getJSON(ctx, path, &out, c.bulkRetry, c.opts.BulkTimeout); err != nil {
		return nil, eris.Wrapf(err, "gfnapi: year %d", year)
	}
	return out, nil
}

// getJSON performs one rate-limited, retried, authenticated GET and
// decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, path string, out any, retry resilience.RetryConfig, timeout time.Duration) error {
	url := c.opts.BaseURL + path
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("gfn", path)
	}

	body, err := resilience.DoVal(ctx, retry, func(ctx context.Context) ([]byte, error) {
		if err := c.limiter.Acquire(ctx); err != nil {
			return nil, eris.Wrap(err, "rate limiter wait")
		}
		return c.doOnce(ctx, url, timeout)
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrapf(err, "decode %s", path)
	}
	return nil
}

func (c *Client) doOnce(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.SetBasicAuth(c.opts.Username, c.opts.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err // transport errors classify as transient downstream
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		_, _ = io.Copy(io.Discard, resp.Body)
		hint := parseRetryAfter(resp.Header.Get("Retry-After"))
		zap.L().Warn("rate limited (429), honoring Retry-After",
			zap.String("url", url),
			zap.Duration("retry_after", hint),
		)
		return nil, resilience.NewRateLimitedError(eris.Errorf("http 429 from %s", url), hint)

	case resp.StatusCode >= 500:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, resilience.NewTransientError(eris.Errorf("http %d from %s", resp.StatusCode, url), resp.StatusCode)

	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		// Permanent client error: the request itself is bad, retrying wastes budget.
		return nil, eris.Errorf("http %d from %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "read body")
	}
	return body, nil
}

// parseRetryAfter reads a Retry-After value in seconds. A missing or
// unparseable header falls back to 3s, matching the upstream's observed
// minimum throttle window.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 3 * time.Second
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 3 * time.Second
	}
	return time.Duration(secs) * time.Second
}
