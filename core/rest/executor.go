package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/dmitrymomot/botkit/core/logger"
)

// Config maps executor settings to environment variables.
type Config struct {
	Token             string        `env:"BOT_TOKEN,required"`
	BaseURL           string        `env:"API_BASE_URL" envDefault:"https://discord.com/api/v10"`
	RequestTimeout    time.Duration `env:"API_REQUEST_TIMEOUT" envDefault:"30s"`
	MaxConcurrency    int64         `env:"API_MAX_CONCURRENT_REQUESTS" envDefault:"100"`
	RetryAttempts     int           `env:"API_RETRY_ATTEMPTS" envDefault:"3"`
	RetryBackoff      time.Duration `env:"API_RETRY_BACKOFF" envDefault:"250ms"`
	RateLimitFallback time.Duration `env:"API_RATELIMIT_FALLBACK" envDefault:"5s"`
}

// Request describes a single outbound REST call. A non-nil Body is encoded
// as JSON.
type Request struct {
	Method string
	Path   string
	Body   any
}

// Response is a completed 2xx call.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return nil
	}
	return json.Unmarshal(r.Body, v)
}

// Executor runs REST calls with per-bucket accounting, retry classification
// and a global concurrency bound.
type Executor struct {
	httpClient *http.Client
	token      string
	baseURL    string
	userAgent  string
	logger     *slog.Logger

	buckets *bucketCache
	sem     *semaphore.Weighted

	retryAttempts     int
	retryBackoff      time.Duration
	rateLimitFallback time.Duration

	requestsCompleted atomic.Int64
	requestsFailed    atomic.Int64
	retriesPerformed  atomic.Int64
}

// ExecutorStats provides observability metrics for monitoring and debugging.
type ExecutorStats struct {
	RequestsCompleted int64
	RequestsFailed    int64
	RetriesPerformed  int64
	ActiveBuckets     int
}

// Option configures an Executor.
type Option func(*Executor)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Executor) {
		if client != nil {
			e.httpClient = client
		}
	}
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(e *Executor) {
		if ua != "" {
			e.userAgent = ua
		}
	}
}

// NewExecutor creates an Executor from configuration.
// Additional options override config-derived values.
func NewExecutor(cfg Config, opts ...Option) (*Executor, error) {
	if cfg.Token == "" {
		return nil, ErrEmptyToken
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL is required", ErrInvalidConfig)
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 100
	}
	if cfg.RetryAttempts < 0 {
		return nil, fmt.Errorf("%w: retry attempts must not be negative", ErrInvalidConfig)
	}
	if cfg.RateLimitFallback <= 0 {
		cfg.RateLimitFallback = 5 * time.Second
	}

	e := &Executor{
		httpClient:        &http.Client{Timeout: cfg.RequestTimeout},
		token:             cfg.Token,
		baseURL:           cfg.BaseURL,
		userAgent:         "botkit (github.com/dmitrymomot/botkit)",
		logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
		buckets:           newBucketCache(),
		sem:               semaphore.NewWeighted(cfg.MaxConcurrency),
		retryAttempts:     cfg.RetryAttempts,
		retryBackoff:      cfg.RetryBackoff,
		rateLimitFallback: cfg.RateLimitFallback,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// callOptions carries per-call retry overrides.
type callOptions struct {
	retries         int
	notFoundRetries int
}

// CallOption overrides retry behavior for a single call.
type CallOption func(*callOptions)

// WithRetries overrides the generic retry budget for this call.
func WithRetries(n int) CallOption {
	return func(co *callOptions) {
		if n >= 0 {
			co.retries = n
		}
	}
}

// WithNotFoundRetries retries 404 vendor rejections up to n times, covering
// read-after-write races on freshly created resources.
func WithNotFoundRetries(n int) CallOption {
	return func(co *callOptions) {
		if n >= 0 {
			co.notFoundRetries = n
		}
	}
}

// Do executes one REST call against the named bucket. Calls sharing a bucket
// key serialize on the bucket mutex for the full duration of the call,
// including retries, so token accounting never races.
func (e *Executor) Do(ctx context.Context, bucketKey string, req Request, opts ...CallOption) (*Response, error) {
	co := callOptions{retries: e.retryAttempts}
	for _, opt := range opts {
		opt(&co)
	}

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer e.sem.Release(1)

	b := e.buckets.get(bucketKey)
	b.mu.Lock()
	defer b.mu.Unlock()

	requestID := uuid.NewString()
	log := e.logger.With(
		logger.Bucket(bucketKey),
		logger.Method(req.Method),
		logger.Path(req.Path),
		slog.String("request_id", requestID),
	)

	var causes []error
	genericFailures := 0
	notFoundRetries := 0

	for {
		if wait := b.waitDuration(time.Now()); wait > 0 {
			log.Debug("bucket exhausted, waiting for reset", logger.Duration(wait))
			if err := sleepContext(ctx, wait); err != nil {
				e.requestsFailed.Add(1)
				return nil, err
			}
		}

		resp, err := e.attempt(ctx, req)
		if err != nil {
			causes = append([]error{&TransportError{Err: err}}, causes...)
			genericFailures++
			if genericFailures > co.retries {
				e.requestsFailed.Add(1)
				return nil, &RequestError{Causes: causes}
			}
			e.retriesPerformed.Add(1)
			log.Debug("transport failure, retrying",
				logger.Error(err),
				logger.RetryCount(genericFailures))
			if err := sleepContext(ctx, e.retryBackoff); err != nil {
				return nil, err
			}
			continue
		}

		// Every response refreshes the bucket, including failures.
		b.update(resp.Header, e.logger)

		if resp.Status >= 200 && resp.Status < 300 {
			e.requestsCompleted.Add(1)
			return resp, nil
		}

		if resp.Status >= 500 {
			causes = append([]error{&ServerError{Status: resp.Status, Body: string(resp.Body)}}, causes...)
			genericFailures++
			if genericFailures > co.retries {
				e.requestsFailed.Add(1)
				return nil, &RequestError{Causes: causes}
			}
			e.retriesPerformed.Add(1)
			log.Debug("server failure, retrying",
				logger.StatusCode(resp.Status),
				logger.RetryCount(genericFailures))
			if err := sleepContext(ctx, e.retryBackoff); err != nil {
				return nil, err
			}
			continue
		}

		apiErr, ok := parseAPIError(resp)
		if !ok {
			// Non-5xx failure without a vendor body: nothing to retry on.
			e.requestsFailed.Add(1)
			return nil, &ServerError{Status: resp.Status, Body: string(resp.Body)}
		}

		switch resp.Status {
		case http.StatusTooManyRequests:
			wait := resetAfterDelay(resp.Header, e.rateLimitFallback)
			causes = append([]error{apiErr}, causes...)
			e.retriesPerformed.Add(1)
			log.Debug("rate limited, retrying after reset", logger.Duration(wait))
			if err := sleepContext(ctx, wait); err != nil {
				return nil, err
			}
			continue

		case http.StatusNotFound:
			// Read-after-write races resolve quickly; retries are bounded by
			// the caller and independent of the generic budget.
			if notFoundRetries < co.notFoundRetries {
				notFoundRetries++
				e.retriesPerformed.Add(1)
				log.Debug("resource not found yet, retrying",
					logger.RetryCount(notFoundRetries))
				if err := sleepContext(ctx, e.retryBackoff); err != nil {
					return nil, err
				}
				continue
			}
			e.requestsFailed.Add(1)
			return nil, apiErr

		default:
			e.requestsFailed.Add(1)
			return nil, apiErr
		}
	}
}

// attempt performs one HTTP round trip. Only transport-level failures return
// an error; every obtained response is returned for classification.
func (e *Executor) attempt(ctx context.Context, req Request) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, e.baseURL+req.Path, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bot "+e.token)
	httpReq.Header.Set("User-Agent", e.userAgent)
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{
		Status: httpResp.StatusCode,
		Header: httpResp.Header,
		Body:   respBody,
	}, nil
}

// Run returns an errgroup-compatible maintenance loop that evicts buckets
// roughly a minute after their reset has passed.
func (e *Executor) Run(ctx context.Context) func() error {
	return func() error {
		const evictAfter = time.Minute

		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if removed := e.buckets.removeExpired(time.Now(), evictAfter); removed > 0 {
					e.logger.Debug("evicted expired rate-limit buckets",
						slog.Int("removed", removed))
				}
			}
		}
	}
}

// Stats returns current executor metrics for observability and monitoring.
func (e *Executor) Stats() ExecutorStats {
	return ExecutorStats{
		RequestsCompleted: e.requestsCompleted.Load(),
		RequestsFailed:    e.requestsFailed.Load(),
		RetriesPerformed:  e.retriesPerformed.Load(),
		ActiveBuckets:     e.buckets.len(),
	}
}

// parseAPIError decodes the vendor error body. A body that does not decode
// into at least a code or message is not considered parseable.
func parseAPIError(resp *Response) (*APIError, bool) {
	var apiErr APIError
	if err := json.Unmarshal(resp.Body, &apiErr); err != nil {
		return nil, false
	}
	if apiErr.Code == 0 && apiErr.Message == "" {
		return nil, false
	}
	apiErr.Status = resp.Status
	return &apiErr, true
}

// resetAfterDelay extracts the vendor-supplied reset delay from a 429,
// falling back to Retry-After and then the configured default.
func resetAfterDelay(header http.Header, fallback time.Duration) time.Duration {
	if v := header.Get(headerResetAfter); v != "" {
		if seconds, err := strconv.ParseFloat(v, 64); err == nil && seconds > 0 {
			return time.Duration(seconds * float64(time.Second))
		}
	}
	if v := header.Get(headerRetryAfter); v != "" {
		if seconds, err := strconv.ParseFloat(v, 64); err == nil && seconds > 0 {
			return time.Duration(seconds * float64(time.Second))
		}
	}
	return fallback
}

// sleepContext waits for d or until ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
