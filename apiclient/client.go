package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"mod-updater/logger"
)

const DefaultTimeout = 10 * time.Second

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mod_updater_registry_requests_total",
			Help: "Registry HTTP requests by API and status code.",
		},
		[]string{"api", "status"},
	)
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mod_updater_registry_request_duration_seconds",
			Help:    "Registry HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"api"},
	)
)

// Options configures a Base client.
type Options struct {
	Name       string
	BaseURL    string
	UserAgent  string
	Headers    map[string]string
	Timeout    time.Duration
	Fallback   FallbackLimit
	MaxRetries int
	RetryDelay time.Duration
	HTTPClient *http.Client
	Notifier   Notifier
	Logger     *zap.SugaredLogger
	// RateLimited flags extra rate-limit responses beyond 429.
	RateLimited func(resp *http.Response) bool
	// DefaultRetryAfter is the cool-down assumed for a 429 without a
	// Retry-After header.
	DefaultRetryAfter time.Duration
}

// Base is the shared request path for every registry client: headers,
// per-request timeout, rate-limit tracking, status classification and retry.
type Base struct {
	name        string
	baseURL     string
	userAgent   string
	headers     map[string]string
	timeout     time.Duration
	maxRetries  int
	retryDelay  time.Duration
	httpClient  *http.Client
	notifier    Notifier
	log         *zap.SugaredLogger
	rateLimited func(resp *http.Response) bool
	retryAfter  time.Duration

	Limiter *RateLimiter
}

// NewBase fills in defaults for anything opts leaves unset.
func NewBase(opts Options) *Base {
	b := &Base{
		name:        opts.Name,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		userAgent:   opts.UserAgent,
		headers:     opts.Headers,
		timeout:     opts.Timeout,
		maxRetries:  opts.MaxRetries,
		retryDelay:  opts.RetryDelay,
		httpClient:  opts.HTTPClient,
		notifier:    opts.Notifier,
		log:         opts.Logger,
		rateLimited: opts.RateLimited,
		retryAfter:  opts.DefaultRetryAfter,
		Limiter:     NewRateLimiter(opts.Fallback),
	}
	if b.timeout <= 0 {
		b.timeout = DefaultTimeout
	}
	if b.maxRetries < 0 {
		b.maxRetries = 0
	} else if b.maxRetries == 0 {
		b.maxRetries = DefaultMaxRetries
	}
	if b.retryDelay <= 0 {
		b.retryDelay = DefaultRetryDelay
	}
	if b.httpClient == nil {
		b.httpClient = &http.Client{}
	}
	if b.notifier == nil {
		b.notifier = NopNotifier{}
	}
	if b.log == nil {
		b.log = logger.Log
	}
	b.log = b.log.With(zap.String("api", b.name))
	return b
}

// Name is the API label used in errors and metrics.
func (b *Base) Name() string { return b.name }

// Notifier returns the client's notifier.
func (b *Base) Notifier() Notifier { return b.notifier }

// Do issues a JSON request and decodes the response into target. path may be
// relative to the base URL or absolute. body, when non-nil, is JSON-encoded.
func (b *Base) Do(ctx context.Context, method, path string, query url.Values, body, target any) error {
	_, err := RetryWithBackoff(ctx, b.maxRetries, b.retryDelay, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, b.once(ctx, method, path, query, body, target)
	})
	if err == nil {
		return nil
	}
	apiErr := AsError(b.name, err)
	if apiErr.API == "" {
		apiErr.API = b.name
	}
	if apiErr.Kind == KindRateLimited {
		return b.HandleRateLimitExceeded(apiErr)
	}
	return apiErr
}

func (b *Base) once(ctx context.Context, method, path string, query url.Values, body, target any) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.resolve(path), reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if query != nil {
		req.URL.RawQuery = query.Encode()
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	b.applyHeaders(req)

	start := time.Now()
	resp, err := b.httpClient.Do(req)
	requestDuration.WithLabelValues(b.name).Observe(time.Since(start).Seconds())
	if err != nil {
		requestsTotal.WithLabelValues(b.name, "0").Inc()
		b.Limiter.Track(nil)
		b.log.Debugw("Request failed", zap.String("url", req.URL.String()), zap.Error(err))
		return &Error{Kind: KindTransient, Message: err.Error(), API: b.name}
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(b.name, strconv.Itoa(resp.StatusCode)).Inc()
	b.Limiter.Track(resp.Header)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return b.statusError(resp)
	}

	if target == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return Malformed(b.name, fmt.Sprintf("failed to decode json response: %v", err))
	}
	return nil
}

// Open performs an authenticated GET and returns the live response for
// streaming. Only the connection phase is bounded by the client timeout.
func (b *Base) Open(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.resolve(rawURL), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/octet-stream")
	b.applyHeaders(req)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindTransient, Message: err.Error(), API: b.name}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, b.statusError(resp)
	}
	return resp, nil
}

func (b *Base) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return b.baseURL + "/" + strings.TrimLeft(path, "/")
}

func (b *Base) applyHeaders(req *http.Request) {
	if b.userAgent != "" {
		req.Header.Set("User-Agent", b.userAgent)
	}
	for k, v := range b.headers {
		req.Header.Set(k, v)
	}
}

func (b *Base) statusError(resp *http.Response) *Error {
	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	message := strings.TrimSpace(string(bodyBytes))
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	apiErr := NewError(b.name, resp.StatusCode, message)

	if b.rateLimited != nil && b.rateLimited(resp) {
		apiErr.Kind = KindRateLimited
	}
	if apiErr.Kind == KindRateLimited {
		wait, ok := retryAfter(resp.Header)
		if !ok {
			wait = b.retryAfter
		}
		if wait > 0 {
			apiErr.RetryAfter = wait
			apiErr.Message = fmt.Sprintf("rate limited, retry after %ds", int(wait.Seconds()))
		}
	}
	if apiErr.Kind == KindDeprecated {
		b.log.Errorw("API endpoint is deprecated", zap.String("url", resp.Request.URL.String()))
		b.notifier.Deprecated(b.name)
	}
	return apiErr
}

// HandleRateLimitExceeded notifies the user with a countdown and returns the
// tagged error. It never panics.
func (b *Base) HandleRateLimitExceeded(err error) *Error {
	apiErr := AsError(b.name, err)
	wait := apiErr.RetryAfter
	if wait == 0 {
		wait = time.Duration(b.Limiter.SecondsUntilReset()) * time.Second
	}
	b.log.Warnw("Rate limit exceeded", zap.Duration("wait", wait))
	b.notifier.RateLimited(b.name, wait)
	return apiErr
}

// retryAfter reads Retry-After seconds, defaulting to 30s when the header is
// present but unparsable.
func retryAfter(h http.Header) (time.Duration, bool) {
	raw := h.Get("Retry-After")
	if raw == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(raw)
	if err != nil {
		return 30 * time.Second, true
	}
	return time.Duration(secs) * time.Second, true
}
