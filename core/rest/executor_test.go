package rest_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/botkit/core/rest"
)

func newTestExecutor(t *testing.T, baseURL string) *rest.Executor {
	t.Helper()

	exec, err := rest.NewExecutor(rest.Config{
		Token:             "test-token",
		BaseURL:           baseURL,
		RequestTimeout:    5 * time.Second,
		MaxConcurrency:    10,
		RetryAttempts:     3,
		RetryBackoff:      5 * time.Millisecond,
		RateLimitFallback: 50 * time.Millisecond,
	})
	require.NoError(t, err)
	return exec
}

func TestNewExecutor_Validation(t *testing.T) {
	t.Parallel()

	t.Run("requires token", func(t *testing.T) {
		t.Parallel()

		_, err := rest.NewExecutor(rest.Config{BaseURL: "http://localhost"})
		assert.ErrorIs(t, err, rest.ErrEmptyToken)
	})

	t.Run("requires base URL", func(t *testing.T) {
		t.Parallel()

		_, err := rest.NewExecutor(rest.Config{Token: "t"})
		assert.ErrorIs(t, err, rest.ErrInvalidConfig)
	})
}

func TestExecutor_Do_Success(t *testing.T) {
	t.Parallel()

	var gotAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		w.Header().Set("X-RateLimit-Limit", "5")
		w.Header().Set("X-RateLimit-Remaining", "4")
		w.Header().Set("X-RateLimit-Reset-After", "1.5")
		w.Header().Set("X-RateLimit-Bucket", "abc123")
		_, _ = w.Write([]byte(`{"id":"42"}`))
	}))
	defer srv.Close()

	exec := newTestExecutor(t, srv.URL)

	resp, err := exec.Do(context.Background(), "GET:/channels", rest.Request{
		Method: http.MethodGet,
		Path:   "/channels/42",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "Bot test-token", gotAuth.Load())

	var decoded struct {
		ID string `json:"id"`
	}
	require.NoError(t, resp.Decode(&decoded))
	assert.Equal(t, "42", decoded.ID)

	stats := exec.Stats()
	assert.EqualValues(t, 1, stats.RequestsCompleted)
	assert.Equal(t, 1, stats.ActiveBuckets)
}

func TestExecutor_Do_TransportExhaustion(t *testing.T) {
	t.Parallel()

	// A server that is already closed produces pure transport failures.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	exec := newTestExecutor(t, srv.URL)

	_, err := exec.Do(context.Background(), "GET:/gone", rest.Request{
		Method: http.MethodGet,
		Path:   "/gone",
	})

	var reqErr *rest.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Len(t, reqErr.Causes, 4, "budget 3 means 4 attempts, each recorded")

	var transportErr *rest.TransportError
	assert.ErrorAs(t, reqErr.Causes[0], &transportErr)
}

func TestExecutor_Do_ServerErrorsRetryThenSucceed(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"id":"1"}`))
	}))
	defer srv.Close()

	exec := newTestExecutor(t, srv.URL)

	resp, err := exec.Do(context.Background(), "GET:/flaky", rest.Request{
		Method: http.MethodGet,
		Path:   "/flaky",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.EqualValues(t, 3, calls.Load())
}

func TestExecutor_Do_SemanticRejectionFailsFast(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"code":50013,"message":"Missing Permissions","errors":""}`))
	}))
	defer srv.Close()

	exec := newTestExecutor(t, srv.URL)

	_, err := exec.Do(context.Background(), "POST:/messages", rest.Request{
		Method: http.MethodPost,
		Path:   "/messages",
		Body:   map[string]string{"content": "hi"},
	})

	var apiErr *rest.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 50013, apiErr.Code)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.EqualValues(t, 1, calls.Load(), "semantic rejections are never retried")
}

func TestExecutor_Do_UnparseableErrorFailsFast(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<html>nope</html>`))
	}))
	defer srv.Close()

	exec := newTestExecutor(t, srv.URL)

	_, err := exec.Do(context.Background(), "GET:/bad", rest.Request{
		Method: http.MethodGet,
		Path:   "/bad",
	})

	var srvErr *rest.ServerError
	require.ErrorAs(t, err, &srvErr)
	assert.Equal(t, http.StatusBadRequest, srvErr.Status)
	assert.EqualValues(t, 1, calls.Load())
}

func TestExecutor_Do_NotFoundRetries(t *testing.T) {
	t.Parallel()

	t.Run("default fails immediately", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"code":10008,"message":"Unknown Message","errors":""}`))
		}))
		defer srv.Close()

		exec := newTestExecutor(t, srv.URL)

		_, err := exec.Do(context.Background(), "GET:/msg", rest.Request{
			Method: http.MethodGet,
			Path:   "/msg",
		})

		var apiErr *rest.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, 10008, apiErr.Code)
		assert.EqualValues(t, 1, calls.Load())
	})

	t.Run("caller-specified retries resolve races", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) <= 2 {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"code":10008,"message":"Unknown Message","errors":""}`))
				return
			}
			_, _ = w.Write([]byte(`{"id":"7"}`))
		}))
		defer srv.Close()

		exec := newTestExecutor(t, srv.URL)

		resp, err := exec.Do(context.Background(), "GET:/msg", rest.Request{
			Method: http.MethodGet,
			Path:   "/msg",
		}, rest.WithNotFoundRetries(2))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.Status)
		assert.EqualValues(t, 3, calls.Load())
	})
}

func TestExecutor_Do_RateLimited(t *testing.T) {
	t.Parallel()

	const resetAfter = 500 * time.Millisecond

	var calls atomic.Int32
	var firstCall, secondCall atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			firstCall.Store(time.Now())
			w.Header().Set("X-RateLimit-Reset-After", "0.5")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"code":0,"message":"You are being rate limited.","errors":""}`))
		default:
			secondCall.Store(time.Now())
			w.Header().Set("X-RateLimit-Limit", "5")
			w.Header().Set("X-RateLimit-Remaining", "4")
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	defer srv.Close()

	exec := newTestExecutor(t, srv.URL)

	resp, err := exec.Do(context.Background(), "POST:/limited", rest.Request{
		Method: http.MethodPost,
		Path:   "/limited",
		Body:   map[string]string{},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)

	delay := secondCall.Load().(time.Time).Sub(firstCall.Load().(time.Time))
	assert.GreaterOrEqual(t, delay, resetAfter, "retry must wait the vendor-supplied reset")
}

func TestExecutor_Do_WaitsForBucketReset(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var times []time.Time
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		times = append(times, time.Now())
		mu.Unlock()
		w.Header().Set("X-RateLimit-Limit", "1")
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset-After", "0.3")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	exec := newTestExecutor(t, srv.URL)

	// First call drains the bucket; the second must wait for the reset.
	for range 2 {
		_, err := exec.Do(context.Background(), "GET:/drip", rest.Request{
			Method: http.MethodGet,
			Path:   "/drip",
		})
		require.NoError(t, err)
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, times, 2)
	assert.GreaterOrEqual(t, times[1].Sub(times[0]), 300*time.Millisecond)
}

func TestExecutor_Do_ContextCancellation(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Reset-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"code":0,"message":"You are being rate limited.","errors":""}`))
	}))
	defer srv.Close()

	exec := newTestExecutor(t, srv.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := exec.Do(ctx, "GET:/slow", rest.Request{
		Method: http.MethodGet,
		Path:   "/slow",
	})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
