package harvest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRobotsEnforcer_DisabledAllowsEverything(t *testing.T) {
	policy := NewRobotsEnforcer(false, "test-agent", zap.NewNop())
	require.True(t, policy.Allowed(context.Background(), "https://example.gov.in/private"))
}

func TestRobotsEnforcer_HonorsDisallow(t *testing.T) {
	var robotsFetches int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			atomic.AddInt32(&robotsFetches, 1)
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	policy := NewRobotsEnforcer(true, "test-agent", zap.NewNop())

	require.False(t, policy.Allowed(context.Background(), server.URL+"/private/schemes"))
	require.True(t, policy.Allowed(context.Background(), server.URL+"/schemes"))
	// The robots file is fetched once per host, then served from cache.
	require.Equal(t, int32(1), atomic.LoadInt32(&robotsFetches))
}

func TestRobotsEnforcer_MissingRobotsAllows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	policy := NewRobotsEnforcer(true, "test-agent", zap.NewNop())
	require.True(t, policy.Allowed(context.Background(), server.URL+"/anything"))
}

func TestRobotsEnforcer_UnreachableHostFailsOpen(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	url := server.URL
	server.Close()

	policy := NewRobotsEnforcer(true, "test-agent", zap.NewNop())
	require.True(t, policy.Allowed(context.Background(), url+"/schemes"))
}

func TestRobotsEnforcer_BadURL(t *testing.T) {
	policy := NewRobotsEnforcer(true, "test-agent", zap.NewNop())
	require.False(t, policy.Allowed(context.Background(), "://not-a-url"))
}
