package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu          sync.Mutex
	rateLimited []string
	waits       []time.Duration
	deprecated  []string
}

func (n *recordingNotifier) RateLimited(api string, wait time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rateLimited = append(n.rateLimited, api)
	n.waits = append(n.waits, wait)
}

func (n *recordingNotifier) Deprecated(api string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deprecated = append(n.deprecated, api)
}

func (n *recordingNotifier) Notice(string) {}

func TestKindForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{0, KindTransient},
		{404, KindNotFound},
		{429, KindRateLimited},
		{410, KindDeprecated},
		{500, KindTransient},
		{503, KindTransient},
		{400, KindUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KindForStatus(tt.status), "status %d", tt.status)
	}
}

func TestRetryableClassification(t *testing.T) {
	assert.True(t, IsRetryableError(NewError("x", 429, "slow down")))
	assert.True(t, IsRetryableError(NewError("x", 502, "bad gateway")))
	assert.True(t, IsRetryableError(NewError("x", 0, "connection reset")))
	assert.False(t, IsRetryableError(NewError("x", 404, "missing")))
	assert.False(t, IsRetryableError(errors.New("plain")))
	assert.True(t, IsRateLimitError(fmt.Errorf("wrapped: %w", NewError("x", 429, ""))))
}

func TestRetryWithBackoffCountsAttempts(t *testing.T) {
	var calls int
	_, err := RetryWithBackoff(context.Background(), 3, time.Millisecond, func(context.Context) (int, error) {
		calls++
		return 0, NewError("x", 503, "unavailable")
	})
	require.Error(t, err)
	assert.Equal(t, 4, calls)
	assert.True(t, IsKind(err, KindTransient))
}

func TestRetryWithBackoffStopsOnNonRetryable(t *testing.T) {
	var calls int
	_, err := RetryWithBackoff(context.Background(), 3, time.Millisecond, func(context.Context) (int, error) {
		calls++
		return 0, NotFound("x", "missing")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryWithBackoffEventuallySucceeds(t *testing.T) {
	var calls int
	got, err := RetryWithBackoff(context.Background(), 3, time.Millisecond, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", NewError("x", 0, "timeout")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestRateLimiterServerHeaders(t *testing.T) {
	rl := NewRateLimiter(FallbackLimit{Limit: 300, Window: time.Minute})
	defer rl.Stop()

	h := http.Header{}
	h.Set("X-Ratelimit-Limit", "300")
	h.Set("X-Ratelimit-Remaining", "42")
	h.Set("X-Ratelimit-Reset", "30")
	rl.Track(h)

	info := rl.Info()
	require.NotNil(t, info)
	assert.False(t, info.Estimated)
	assert.Equal(t, 300, info.Limit)
	assert.Equal(t, 42, info.Remaining)
	assert.InDelta(t, 30, rl.SecondsUntilReset(), 1)
}

func TestRateLimiterUnixReset(t *testing.T) {
	rl := NewRateLimiter(FallbackLimit{})
	defer rl.Stop()

	resetAt := time.Now().Add(90 * time.Second).Unix()
	h := http.Header{}
	h.Set("X-Ratelimit-Limit", "60")
	h.Set("X-Ratelimit-Remaining", "0")
	h.Set("X-Ratelimit-Reset", strconv.FormatInt(resetAt, 10))
	rl.Track(h)

	assert.InDelta(t, 90, rl.SecondsUntilReset(), 2)
}

func TestRateLimiterEstimates(t *testing.T) {
	rl := NewRateLimiter(FallbackLimit{Limit: 3, Window: time.Minute})
	defer rl.Stop()

	rl.Track(http.Header{})
	rl.Track(http.Header{})
	info := rl.Info()
	require.NotNil(t, info)
	assert.True(t, info.Estimated)
	assert.Equal(t, 1, info.Remaining)

	rl.Track(http.Header{})
	rl.Track(http.Header{})
	assert.Equal(t, 0, rl.Info().Remaining)
}

func TestRateLimiterClearsAtReset(t *testing.T) {
	rl := NewRateLimiter(FallbackLimit{Limit: 5, Window: 20 * time.Millisecond})
	defer rl.Stop()

	rl.Track(nil)
	require.NotNil(t, rl.Info())
	assert.Eventually(t, func() bool { return rl.Info() == nil }, time.Second, 5*time.Millisecond)
}

func TestBaseDoDecodesAndTracks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		w.Header().Set("X-Ratelimit-Limit", "10")
		w.Header().Set("X-Ratelimit-Remaining", "9")
		w.Header().Set("X-Ratelimit-Reset", "60")
		_, _ = w.Write([]byte(`{"name":"sodium"}`))
	}))
	defer srv.Close()

	b := NewBase(Options{
		Name:      "test",
		BaseURL:   srv.URL,
		UserAgent: "test-agent",
		Headers:   map[string]string{"x-api-key": "secret"},
	})
	defer b.Limiter.Stop()

	var out struct {
		Name string `json:"name"`
	}
	require.NoError(t, b.Do(context.Background(), http.MethodGet, "/thing", nil, nil, &out))
	assert.Equal(t, "sodium", out.Name)
	assert.Equal(t, 9, b.Limiter.Info().Remaining)
}

func TestBaseDoRetriesTransient(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	b := NewBase(Options{Name: "test", BaseURL: srv.URL, RetryDelay: time.Millisecond})
	defer b.Limiter.Stop()

	require.NoError(t, b.Do(context.Background(), http.MethodGet, "/", nil, nil, nil))
	assert.Equal(t, int32(3), calls.Load())
}

func TestBaseDoNotFoundIsTagged(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	b := NewBase(Options{Name: "test", BaseURL: srv.URL, RetryDelay: time.Millisecond})
	defer b.Limiter.Stop()

	err := b.Do(context.Background(), http.MethodGet, "/missing", nil, nil, nil)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindNotFound, apiErr.Kind)
	assert.Equal(t, 404, apiErr.Status)
}

func TestBaseDoRateLimitNotifies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "12")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	notifier := &recordingNotifier{}
	b := NewBase(Options{Name: "test", BaseURL: srv.URL, MaxRetries: -1, Notifier: notifier})
	defer b.Limiter.Stop()

	err := b.Do(context.Background(), http.MethodGet, "/", nil, nil, nil)
	assert.True(t, IsRateLimitError(err))
	assert.Equal(t, []string{"test"}, notifier.rateLimited)
	assert.Equal(t, []time.Duration{12 * time.Second}, notifier.waits)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 12*time.Second, apiErr.RetryAfter)
}

func TestHandleRateLimitExceededUsesRetryAfter(t *testing.T) {
	notifier := &recordingNotifier{}
	b := NewBase(Options{Name: "test", BaseURL: "http://localhost", Notifier: notifier})
	defer b.Limiter.Stop()

	err := &Error{Kind: KindRateLimited, Status: 429, Message: "too many requests", API: "test", RetryAfter: 7 * time.Second}
	got := b.HandleRateLimitExceeded(err)
	assert.Same(t, err, got)
	assert.Equal(t, []time.Duration{7 * time.Second}, notifier.waits)
}

func TestBaseDoCustomRateLimitPredicate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Ratelimit-Remaining", "0")
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	b := NewBase(Options{
		Name:       "github",
		BaseURL:    srv.URL,
		MaxRetries: -1,
		RateLimited: func(resp *http.Response) bool {
			return resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-Ratelimit-Remaining") == "0"
		},
	})
	defer b.Limiter.Stop()

	err := b.Do(context.Background(), http.MethodGet, "/", nil, nil, nil)
	assert.True(t, IsRateLimitError(err))
}

func TestBaseDoDeprecatedNotifies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	notifier := &recordingNotifier{}
	b := NewBase(Options{Name: "test", BaseURL: srv.URL, Notifier: notifier})
	defer b.Limiter.Stop()

	err := b.Do(context.Background(), http.MethodGet, "/", nil, nil, nil)
	assert.True(t, IsKind(err, KindDeprecated))
	assert.Equal(t, []string{"test"}, notifier.deprecated)
}

func TestBaseDoMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	b := NewBase(Options{Name: "test", BaseURL: srv.URL})
	defer b.Limiter.Stop()

	var out map[string]any
	err := b.Do(context.Background(), http.MethodGet, "/", nil, nil, &out)
	assert.True(t, IsKind(err, KindMalformed))
}

func TestBatcherResolvesEveryWaiter(t *testing.T) {
	var bulkCalls atomic.Int32
	b := NewBatcher[string, int]("test", 20*time.Millisecond, 0, func(_ context.Context, keys []string) (map[string]int, error) {
		bulkCalls.Add(1)
		out := make(map[string]int)
		for _, k := range keys {
			if k != "missing-1" && k != "missing-2" {
				out[k] = len(k)
			}
		}
		return out, nil
	})

	keys := []string{"a", "bb", "missing-1", "ccc", "missing-2", "a"}
	results := make([]int, len(keys))
	errs := make([]error, len(keys))
	var wg sync.WaitGroup
	for i, k := range keys {
		wg.Add(1)
		go func(i int, k string) {
			defer wg.Done()
			results[i], errs[i] = b.Get(context.Background(), k)
		}(i, k)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("batched lookups did not all resolve")
	}

	assert.Equal(t, int32(1), bulkCalls.Load())
	for i, k := range keys {
		if k == "missing-1" || k == "missing-2" {
			assert.True(t, IsNotFound(errs[i]), "key %s", k)
			continue
		}
		require.NoError(t, errs[i])
		assert.Equal(t, len(k), results[i])
	}
}

func TestBatcherPropagatesBulkError(t *testing.T) {
	b := NewBatcher[int, string]("test", 5*time.Millisecond, 0, func(context.Context, []int) (map[int]string, error) {
		return nil, NewError("test", 503, "down")
	})

	_, err := b.Get(context.Background(), 1)
	assert.True(t, IsKind(err, KindTransient))
}

func TestBatcherFlushesAtMaxBatch(t *testing.T) {
	var sizes []int
	var mu sync.Mutex
	b := NewBatcher[int, int]("test", time.Hour, 2, func(_ context.Context, keys []int) (map[int]int, error) {
		mu.Lock()
		sizes = append(sizes, len(keys))
		mu.Unlock()
		out := make(map[int]int)
		for _, k := range keys {
			out[k] = k * 2
		}
		return out, nil
	})

	var wg sync.WaitGroup
	for i := 1; i <= 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := b.Get(context.Background(), i)
			assert.NoError(t, err)
			assert.Equal(t, i*2, v)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, []int{2}, sizes)
}

func TestBatcherRecoversPanic(t *testing.T) {
	b := NewBatcher[int, int]("test", time.Millisecond, 0, func(context.Context, []int) (map[int]int, error) {
		panic("boom")
	})
	_, err := b.Get(context.Background(), 7)
	assert.Error(t, err)
}
