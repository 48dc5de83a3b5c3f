package resilience

import (
	"fmt"
	"syscall"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transient error", NewTransientError(eris.New("http 503"), 503), true},
		{"wrapped transient", eris.Wrap(NewTransientError(eris.New("http 502"), 502), "fetch"), true},
		{"rate limited", NewRateLimitedError(eris.New("http 429"), time.Second), true},
		{"plain error", eris.New("http 404"), false},
		{"connection refused", syscall.ECONNREFUSED, true},
		{"connection reset", syscall.ECONNRESET, true},
		{"reset by message", fmt.Errorf("read tcp: connection reset by peer"), true},
		{"dns failure by message", fmt.Errorf("dial tcp: no such host"), true},
		{"io timeout by message", fmt.Errorf("net/http: i/o timeout"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "status %d", code)
	}
	for _, code := range []int{200, 301, 400, 401, 403, 404, 418} {
		assert.False(t, IsTransientHTTPStatus(code), "status %d", code)
	}
}

func TestRetryAfterHint(t *testing.T) {
	assert.Zero(t, RetryAfterHint(eris.New("plain")))
	assert.Zero(t, RetryAfterHint(NewTransientError(eris.New("http 500"), 500)))

	err := eris.Wrap(NewRateLimitedError(eris.New("http 429"), 7*time.Second), "fetch")
	assert.Equal(t, 7*time.Second, RetryAfterHint(err))
}
