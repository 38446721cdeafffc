package harvest

import (
	"context"
	"errors"
	"net"
	"net/url"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeNetError struct {
	timeout bool
}

func (e *fakeNetError) Error() string   { return "fake net error" }
func (e *fakeNetError) Timeout() bool   { return e.timeout }
func (e *fakeNetError) Temporary() bool { return e.timeout }

var _ net.Error = (*fakeNetError)(nil)

func TestExponentialRetryPolicy_ShouldRetry(t *testing.T) {
	p := NewExponentialRetryPolicy(3, 10*time.Millisecond)

	t.Run("nil error", func(t *testing.T) {
		require.False(t, p.ShouldRetry(nil, 1))
	})

	t.Run("generic error under budget", func(t *testing.T) {
		require.True(t, p.ShouldRetry(errors.New("boom"), 1))
		require.True(t, p.ShouldRetry(errors.New("boom"), 2))
	})

	t.Run("attempt budget exhausted", func(t *testing.T) {
		require.False(t, p.ShouldRetry(errors.New("boom"), 3))
	})

	t.Run("context cancellation is terminal", func(t *testing.T) {
		require.False(t, p.ShouldRetry(context.Canceled, 1))
		require.False(t, p.ShouldRetry(context.DeadlineExceeded, 1))
	})

	t.Run("renderer disabled is terminal", func(t *testing.T) {
		require.False(t, p.ShouldRetry(ErrRendererDisabled, 1))
	})

	t.Run("network errors retry", func(t *testing.T) {
		require.True(t, p.ShouldRetry(&fakeNetError{timeout: true}, 1))
		require.True(t, p.ShouldRetry(&fakeNetError{timeout: false}, 1))

		reset := &net.OpError{Op: "read", Net: "tcp", Err: os.NewSyscallError("read", syscall.ECONNRESET)}
		require.True(t, p.ShouldRetry(reset, 1))

		refused := &url.Error{
			Op:  "Get",
			URL: "https://example.gov.in",
			Err: &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)},
		}
		require.True(t, p.ShouldRetry(refused, 1))
	})

	t.Run("unknown host is terminal", func(t *testing.T) {
		dnsErr := &net.DNSError{Err: "no such host", Name: "absent.gov.in", IsNotFound: true}
		require.False(t, p.ShouldRetry(dnsErr, 1))
	})
}

func TestExponentialRetryPolicy_Backoff(t *testing.T) {
	p := NewExponentialRetryPolicy(5, 100*time.Millisecond)

	for attempt := 0; attempt < 5; attempt++ {
		base := 100 * time.Millisecond * (1 << attempt)
		if base > 30*time.Second {
			base = 30 * time.Second
		}
		got := p.Backoff(attempt)
		require.GreaterOrEqual(t, got, base/2, "attempt %d", attempt)
		require.Less(t, got, base, "attempt %d", attempt)
	}
}

func TestExponentialRetryPolicy_BackoffCapped(t *testing.T) {
	p := NewExponentialRetryPolicy(50, time.Second)
	require.LessOrEqual(t, p.Backoff(40), 30*time.Second)
}

func TestNewExponentialRetryPolicy_Defaults(t *testing.T) {
	p := NewExponentialRetryPolicy(0, 0)
	require.Equal(t, 3, p.MaxAttempts())
	require.Positive(t, p.Backoff(0))
}
