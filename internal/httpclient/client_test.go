package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aleister1102/hostbackoff/internal/backoff"
	"github.com/aleister1102/hostbackoff/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loopbackRules maps the httptest loopback host to the given policy.
func loopbackRules(t *testing.T, policy string) *backoff.Rules {
	t.Helper()
	cfg := config.NewDefaultBackoffConfig()
	cfg.Hosts = map[string]string{"127.0.0.1": policy}
	rules, err := backoff.NewRules(cfg)
	require.NoError(t, err)
	return rules
}

type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits = append(s.waits, d)
	return ctx.Err()
}

func (s *sleepRecorder) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.waits...)
}

func TestHTTPClient_Do(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-value", r.Header.Get("X-Test-Header"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	logger := zerolog.Nop()
	client, err := NewHTTPClientBuilder(logger).WithUserAgent("test-agent").Build()
	require.NoError(t, err)

	req, err := client.NewRequest(context.Background(), http.MethodGet, server.URL, nil, map[string]string{
		"X-Test-Header": "test-value",
	})
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"status":"ok"}`, string(body))
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestHTTPClient_CustomHeadersDoNotOverrideRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "from-config", r.Header.Get("X-Default"))
		assert.Equal(t, "from-request", r.Header.Get("X-Override"))
		assert.Equal(t, "request-agent", r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client, err := NewHTTPClientBuilder(zerolog.Nop()).
		WithUserAgent("config-agent").
		WithCustomHeader("X-Default", "from-config").
		WithCustomHeader("X-Override", "from-config").
		Build()
	require.NoError(t, err)

	req, err := client.NewRequest(context.Background(), http.MethodGet, server.URL, nil, map[string]string{
		"X-Override": "from-request",
		"User-Agent": "request-agent",
	})
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestHTTPClient_Do_Post(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, `{"key":"value"}`, string(body))

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"received":true}`))
	}))
	defer server.Close()

	logger := zerolog.Nop()
	client, err := NewHTTPClientBuilder(logger).Build()
	require.NoError(t, err)

	req, err := client.NewRequest(context.Background(), http.MethodPost, server.URL, []byte(`{"key":"value"}`), map[string]string{
		"Content-Type": "application/json",
	})
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"received":true}`, string(body))
}

func TestHTTPClient_Redirects(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/redirect" {
			http.Redirect(w, r, "/final", http.StatusFound)
		} else if r.URL.Path == "/final" {
			fmt.Fprint(w, "ok")
		}
	}))
	defer ts.Close()

	logger := zerolog.Nop()

	clientFollow, err := NewHTTPClientBuilder(logger).WithFollowRedirects(true).Build()
	require.NoError(t, err)
	req, err := clientFollow.NewRequest(context.Background(), http.MethodGet, ts.URL+"/redirect", nil, nil)
	require.NoError(t, err)
	resp, err := clientFollow.Do(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	clientNoFollow, err := NewHTTPClientBuilder(logger).WithFollowRedirects(false).Build()
	require.NoError(t, err)
	req, err = clientNoFollow.NewRequest(context.Background(), http.MethodGet, ts.URL+"/redirect", nil, nil)
	require.NoError(t, err)
	resp, err = clientNoFollow.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestHTTPClient_InvalidProxy(t *testing.T) {
	_, err := NewHTTPClientBuilder(zerolog.Nop()).WithProxy("://bad proxy").Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse proxy URL")
}

func TestHTTPClient_ExecuteWithBackoff_TwitchReset(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.Header().Set("Ratelimit-Reset", strconv.FormatInt(now.Unix()+4, 10))
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("done"))
	}))
	defer server.Close()

	sleeper := &sleepRecorder{}
	client, err := NewHTTPClientBuilder(zerolog.Nop()).
		WithRules(loopbackRules(t, "twitch")).
		WithExecutorOptions(
			backoff.WithSleeper(sleeper.sleep),
			backoff.WithClock(func() time.Time { return now }),
		).
		Build()
	require.NoError(t, err)

	req, err := client.NewRequest(context.Background(), http.MethodGet, server.URL, nil, nil)
	require.NoError(t, err)

	resp, err := client.ExecuteWithBackoff(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "done", string(body))
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, []time.Duration{4 * time.Second}, sleeper.recorded())
}

func TestHTTPClient_ExecuteWithBackoff_ReplaysPostBody(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, "payload", string(body))
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	sleeper := &sleepRecorder{}
	client, err := NewHTTPClientBuilder(zerolog.Nop()).
		WithRules(loopbackRules(t, "youtube")).
		WithExecutorOptions(backoff.WithSleeper(sleeper.sleep)).
		Build()
	require.NoError(t, err)

	req, err := client.NewRequest(context.Background(), http.MethodPost, server.URL+"/upload", []byte("payload"), nil)
	require.NoError(t, err)

	resp, err := client.ExecuteWithBackoff(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, sleeper.recorded())
}

func TestHTTPClient_ExecuteWithBackoff_ObserverSeesOutcome(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	var got backoff.Outcome
	client, err := NewHTTPClientBuilder(zerolog.Nop()).
		WithObserver(backoff.ObserverFunc(func(_ context.Context, o backoff.Outcome) { got = o })).
		Build()
	require.NoError(t, err)

	req, err := client.NewRequest(context.Background(), http.MethodGet, server.URL+"/?token=secret", nil, nil)
	require.NoError(t, err)

	resp, err := client.ExecuteWithBackoff(req)
	require.NoError(t, err)
	resp.Body.Close()

	// Loopback hosts are not known providers, so a 429 passes through.
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, backoff.PolicyOther, got.Policy)
	assert.Equal(t, 1, got.Attempts)
	assert.NotContains(t, got.URL, "secret")
	assert.NotEmpty(t, got.RequestID)
}

func TestHTTPClient_FetchContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/cached":
			if r.Header.Get("If-None-Match") == `"v1"` {
				w.WriteHeader(http.StatusNotModified)
				return
			}
			w.Header().Set("ETag", `"v1"`)
			_, _ = w.Write([]byte("fresh"))
		case "/missing":
			http.Error(w, "nope", http.StatusNotFound)
		case "/large":
			_, _ = w.Write([]byte(strings.Repeat("x", 64)))
		}
	}))
	defer server.Close()

	client, err := NewHTTPClientBuilder(zerolog.Nop()).WithMaxContentSize(16).Build()
	require.NoError(t, err)

	result, err := client.FetchContent(FetchContentInput{URL: server.URL + "/cached"})
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(result.Content))
	assert.Equal(t, `"v1"`, result.ETag)

	result, err = client.FetchContent(FetchContentInput{URL: server.URL + "/cached", PreviousETag: `"v1"`})
	assert.ErrorIs(t, err, ErrNotModified)
	assert.Equal(t, http.StatusNotModified, result.HTTPStatusCode)

	result, err = client.FetchContent(FetchContentInput{URL: server.URL + "/cached", PreviousETag: `"v1"`, BypassCache: true})
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(result.Content))

	result, err = client.FetchContent(FetchContentInput{URL: server.URL + "/missing"})
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assert.Equal(t, http.StatusNotFound, result.HTTPStatusCode)

	result, err = client.FetchContent(FetchContentInput{URL: server.URL + "/large"})
	require.NoError(t, err)
	assert.Len(t, result.Content, 16)
}

func TestHTTPClient_FetchContent_BackoffExceeded(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	cfg := config.NewDefaultBackoffConfig()
	cfg.Hosts = map[string]string{"127.0.0.1": "google"}
	cfg.MaxAttempts = map[string]int{"google": 3}
	rules, err := backoff.NewRules(cfg)
	require.NoError(t, err)

	sleeper := &sleepRecorder{}
	client, err := NewHTTPClientBuilder(zerolog.Nop()).
		WithRules(rules).
		WithExecutorOptions(backoff.WithSleeper(sleeper.sleep)).
		Build()
	require.NoError(t, err)

	_, err = client.FetchContent(FetchContentInput{URL: server.URL})
	var exceeded *backoff.BackoffExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, 4, exceeded.Attempts)
	assert.Equal(t, int32(4), hits.Load())
	assert.Len(t, sleeper.recorded(), 3)
}

func TestHTTPClient_Rules(t *testing.T) {
	client, err := NewHTTPClientBuilder(zerolog.Nop()).Build()
	require.NoError(t, err)

	assert.NotNil(t, client.Client())
	assert.NotNil(t, client.Executor())
	assert.Equal(t, backoff.PolicyTwitch, client.Rules().ClassifyHost("twitch.tv"))
}
