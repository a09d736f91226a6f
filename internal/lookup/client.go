// Package lookup performs the outbound HTTP call to an institution's
// student-record API: credential injection, hard per-attempt timeout, retry
// with backoff on transient failures, and normalization of heterogeneous
// provider payloads into the canonical StudentRecord.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"enrollgate/internal/lookup/auth"
	"enrollgate/internal/provider/models"
	vmodels "enrollgate/internal/verification/models"
)

//go:generate mockgen -source=client.go -destination=mocks/mocks.go -package=mocks Client

// Client looks up one student record from a provider.
type Client interface {
	Lookup(ctx context.Context, cfg *models.ProviderConfig, regNumber string) (*vmodels.StudentRecord, error)
}

const (
	// DefaultTimeout bounds a single attempt when the config sets none. A
	// hung provider must never block the registration flow indefinitely.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries is the retry budget after the first attempt.
	DefaultMaxRetries = 2

	backoffBase       = 500 * time.Millisecond
	backoffMultiplier = 3
	backoffJitter     = 250 * time.Millisecond

	maxBodyBytes = 1 << 20
)

// HTTPClient is the production Client. It is stateless apart from the
// shared OAuth token cache inside the auth factory, so one instance serves
// unbounded concurrent verifications.
type HTTPClient struct {
	httpClient *http.Client
	strategies *auth.Factory
	logger     *slog.Logger
	tracer     trace.Tracer

	// sleep is swappable so retry tests don't wait on real backoff.
	sleep func(ctx context.Context, d time.Duration) error
}

// HTTPOption configures the HTTP client.
type HTTPOption func(*HTTPClient)

// WithLogger attaches a structured logger for retry diagnostics.
func WithLogger(logger *slog.Logger) HTTPOption {
	return func(c *HTTPClient) { c.logger = logger }
}

// WithSleep overrides the backoff sleeper. Test hook.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) HTTPOption {
	return func(c *HTTPClient) { c.sleep = sleep }
}

// NewHTTPClient constructs the production lookup client. Per-attempt
// deadlines come from provider configs, so the inner http.Client carries no
// global timeout of its own.
func NewHTTPClient(httpClient *http.Client, strategies *auth.Factory, opts ...HTTPOption) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	c := &HTTPClient{
		httpClient: httpClient,
		strategies: strategies,
		tracer:     otel.Tracer("enrollgate/lookup"),
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup fetches and normalizes the student record for regNumber. Transient
// failures (timeout, connection errors, 5xx) are retried with exponential
// backoff plus jitter up to the config's retry budget; 4xx-class failures
// are terminal for the attempt. Cancelling ctx stops in-flight requests and
// further retries immediately.
func (c *HTTPClient) Lookup(ctx context.Context, cfg *models.ProviderConfig, regNumber string) (*vmodels.StudentRecord, error) {
	ctx, span := c.tracer.Start(ctx, "lookup.Lookup", trace.WithAttributes(
		attribute.String("institution", cfg.Institution),
		attribute.String("auth_scheme", string(cfg.AuthScheme)),
	))
	defer span.End()

	strategy, err := c.strategies.For(cfg)
	if err != nil {
		return nil, newError(KindAuthRejected, cfg.Institution, "no usable auth strategy", err)
	}

	lookupURL, err := buildLookupURL(cfg, regNumber)
	if err != nil {
		return nil, newError(KindMalformedResponse, cfg.Institution, "cannot build lookup URL", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = DefaultMaxRetries
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		record, err := c.attempt(ctx, cfg, strategy, lookupURL, timeout, attempt)
		if err == nil {
			return record, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return nil, err
		}
		if attempt == retries {
			break
		}
		if c.logger != nil {
			c.logger.WarnContext(ctx, "provider lookup failed, retrying",
				"institution", cfg.Institution, "attempt", attempt+1, "kind", string(KindOf(err)))
		}
		if err := c.sleep(ctx, backoffDelay(attempt)); err != nil {
			// Caller abandoned the verification; stop retrying.
			return nil, lastErr
		}
	}
	return nil, lastErr
}

func (c *HTTPClient) attempt(ctx context.Context, cfg *models.ProviderConfig, strategy auth.Strategy, lookupURL string, timeout time.Duration, attempt int) (*vmodels.StudentRecord, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	attemptCtx, span := c.tracer.Start(attemptCtx, "lookup.attempt",
		trace.WithAttributes(attribute.Int("attempt", attempt)))
	defer span.End()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return nil, newError(KindMalformedResponse, cfg.Institution, "build lookup request", err)
	}
	req.Header.Set("Accept", "application/json")

	if err := strategy.Apply(attemptCtx, req); err != nil {
		return nil, newError(KindAuthRejected, cfg.Institution, "credential injection failed", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, newError(KindTimeout, cfg.Institution, fmt.Sprintf("no response within %s", timeout), err)
		}
		return nil, newError(KindNetworkError, cfg.Institution, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, newError(KindNetworkError, cfg.Institution, "read response body", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, newError(KindAuthRejected, cfg.Institution, fmt.Sprintf("provider returned status %d", resp.StatusCode), nil)
	case resp.StatusCode == http.StatusNotFound:
		return nil, newError(KindNotFound, cfg.Institution, "no record for registration number", nil)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, newError(KindNetworkError, cfg.Institution, fmt.Sprintf("provider returned status %d", resp.StatusCode), nil)
	case resp.StatusCode >= 400:
		return nil, newError(KindMalformedResponse, cfg.Institution, fmt.Sprintf("provider rejected request with status %d", resp.StatusCode), nil)
	}

	return normalize(body, cfg.FieldMapping, cfg.Institution)
}

func buildLookupURL(cfg *models.ProviderConfig, regNumber string) (string, error) {
	path := strings.ReplaceAll(cfg.LookupPath, models.RegNumberPlaceholder, url.PathEscape(regNumber))
	full := strings.TrimSuffix(cfg.BaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
	if _, err := url.Parse(full); err != nil {
		return "", err
	}
	return full, nil
}

// backoffDelay yields 500ms, 1500ms, 4500ms... plus up to 250ms of jitter.
func backoffDelay(attempt int) time.Duration {
	delay := backoffBase
	for i := 0; i < attempt; i++ {
		delay *= backoffMultiplier
	}
	return delay + rand.N(backoffJitter)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
