package gfnapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FilipeTheAnalyst/global-footprint-network-use-case/internal/ratelimit"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Options{
		BaseURL:  srv.URL,
		Username: "any-user-name",
		APIKey:   "test-key",
		Limiter:  ratelimit.NewBucket(1000, 1000),
	})
}

func TestClientSendsBasicAuth(t *testing.T) {
	var gotUser, gotPass string
	var gotOK bool
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, gotOK = r.BasicAuth()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"countryCode": 1, "countryName": "France", "isoa2": "FR"}]`))
	}))

	countries, err := c.Countries(context.Background())
	require.NoError(t, err)

	assert.True(t, gotOK)
	assert.Equal(t, "any-user-name", gotUser)
	assert.Equal(t, "test-key", gotPass)
	require.Len(t, countries, 1)
	assert.Equal(t, 1, countries[0].CountryCode.Int)
	assert.Equal(t, "France", countries[0].CountryName)
}

func TestClientRetriesAfter429(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`[{"countryCode": 2, "countryName": "Germany", "year": 2020, "record": "EFCtot"}]`))
	}))
	c.bulkRetry.InitialBackoff = time.Millisecond
	c.bulkRetry.MaxBackoff = 5 * time.Millisecond

	facts, err := c.YearData(context.Background(), 2020)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	require.Len(t, facts, 1)
	assert.Equal(t, "EFCtot", facts[0].Record)
}

func TestClientRetries5xx(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	// Shrink the backoff so the test runs in milliseconds.
	c.bulkRetry.InitialBackoff = time.Millisecond
	c.bulkRetry.MaxBackoff = 5 * time.Millisecond

	_, err := c.YearData(context.Background(), 2020)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientFailsFastOn404(t *testing.T) {
	var calls atomic.Int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := c.Types(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "client errors must not be retried")
	assert.Contains(t, err.Error(), "404")
}

func TestClientRequestsCorrectPaths(t *testing.T) {
	var paths []string
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_, _ = w.Write([]byte(`[]`))
	}))

	ctx := context.Background()
	_, err := c.Countries(ctx)
	require.NoError(t, err)
	_, err = c.Types(ctx)
	require.NoError(t, err)
	_, err = c.YearData(ctx, 2023)
	require.NoError(t, err)

	assert.Equal(t, []string{"/countries", "/types", "/data/all/2023"}, paths)
}

func TestClientRejectsBadJSON(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))

	_, err := c.Countries(context.Background())
	assert.Error(t, err)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 3*time.Second, parseRetryAfter(""))
	assert.Equal(t, 3*time.Second, parseRetryAfter("soon"))
	assert.Equal(t, 3*time.Second, parseRetryAfter("-5"))
	assert.Equal(t, 10*time.Second, parseRetryAfter("10"))
	assert.Equal(t, time.Duration(0), parseRetryAfter("0"))
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(Options{})
	assert.Equal(t, "https://api.footprintnetwork.org/v1", c.opts.BaseURL)
	assert.Equal(t, "any-user-name", c.opts.Username)
	assert.Equal(t, 15*time.Second, c.opts.MetaTimeout)
	assert.Equal(t, 60*time.Second, c.opts.BulkTimeout)
	assert.NotNil(t, c.limiter)
}
