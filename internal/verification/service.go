// Package verification wires config resolution, caching, remote lookup,
// identity cross-checking, fallback policy, and audit logging into the
// single entry point the registration flow calls.
package verification

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"enrollgate/internal/audit"
	"enrollgate/internal/lookup"
	pmodels "enrollgate/internal/provider/models"
	"enrollgate/internal/verification/cache"
	"enrollgate/internal/verification/crosscheck"
	"enrollgate/internal/verification/metrics"
	"enrollgate/internal/verification/models"
	"enrollgate/internal/verification/policy"
	dErrors "enrollgate/pkg/domain-errors"
	"enrollgate/pkg/platform/sentinel"
	"enrollgate/pkg/requestcontext"
)

// ConfigStore is the read-only view of provider configuration the engine
// needs. Writes stay with the admin service.
type ConfigStore interface {
	FindActiveByInstitution(ctx context.Context, institution string) (*pmodels.ProviderConfig, error)
	FindByInstitution(ctx context.Context, institution string) (*pmodels.ProviderConfig, error)
}

// AuditPublisher records every attempt, whatever its outcome.
type AuditPublisher interface {
	Emit(ctx context.Context, attempt audit.Attempt) error
}

// DefaultCacheTTL bounds staleness risk from provider-side edits. Identity
// data changes rarely, but minutes, not hours.
const DefaultCacheTTL = 5 * time.Minute

const defaultCacheEntries = 4096

// Service is the verification orchestrator. Each Verify call is
// independent; shared state is limited to the internally synchronized
// cache and audit trail, so unbounded parallel invocation is safe.
type Service struct {
	configs ConfigStore
	client  lookup.Client
	auditor AuditPublisher
	cache   cache.Cache
	checker *crosscheck.Checker
	policy  *policy.Policy
	metrics *metrics.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
}

// Option configures optional service dependencies.
type Option func(*Service)

// WithCache replaces the default in-memory cache. The service wraps
// whatever is given in best-effort semantics.
func WithCache(c cache.Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithChecker replaces the default cross-checker.
func WithChecker(c *crosscheck.Checker) Option {
	return func(s *Service) { s.checker = c }
}

// WithPolicy replaces the default fallback policy.
func WithPolicy(p *policy.Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithMetrics attaches prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// New constructs the orchestrator. Stores and clients are injected so tests
// can substitute in-memory fakes deterministically.
func New(configs ConfigStore, client lookup.Client, auditor AuditPublisher, opts ...Option) (*Service, error) {
	if configs == nil {
		return nil, errors.New("config store is required")
	}
	if client == nil {
		return nil, errors.New("lookup client is required")
	}
	if auditor == nil {
		return nil, errors.New("audit publisher is required")
	}
	s := &Service{
		configs: configs,
		client:  client,
		auditor: auditor,
		checker: crosscheck.New(),
		policy:  policy.New(0),
		tracer:  otel.Tracer("enrollgate/verification"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = cache.NewInMemory(defaultCacheEntries, DefaultCacheTTL)
	}
	s.cache = cache.NewBestEffort(s.cache, s.logger)
	return s, nil
}

// Verify cross-checks a self-registering student against their
// institution's record system. Every modeled failure — missing config,
// provider outage, identity mismatch — terminates in a well-formed result
// with an audit entry; an error return means invalid input or an
// infrastructure fault in the config store, nothing provider-related.
func (s *Service) Verify(ctx context.Context, institution, regNumber string, submitted models.SubmittedFields) (*models.VerificationResult, error) {
	if institution == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "institution is required")
	}
	if regNumber == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "registration number is required")
	}

	ctx, span := s.tracer.Start(ctx, "verification.Verify", trace.WithAttributes(
		attribute.String("institution", institution),
	))
	defer span.End()

	start := time.Now()
	correlationID := requestcontext.RequestID(ctx)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	att := attempt{
		correlationID: correlationID,
		institution:   institution,
		regNumber:     regNumber,
		submitted:     submitted,
		start:         start,
	}

	cfg, err := s.configs.FindActiveByInstitution(ctx, institution)
	if errors.Is(err, sentinel.ErrNotFound) {
		if _, inactiveErr := s.configs.FindByInstitution(ctx, institution); inactiveErr == nil {
			return s.finish(ctx, att, s.policy.InactiveConfig(), nil)
		}
		return s.finish(ctx, att, s.policy.NoConfig(), nil)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "provider config lookup failed")
	}

	record, cacheHit := s.cachedRecord(ctx, institution, regNumber)
	att.cacheHit = cacheHit

	if record == nil {
		lookupStart := time.Now()
		record, err = s.client.Lookup(ctx, cfg, regNumber)
		s.metrics.ObserveLookupLatency(cfg.Institution, time.Since(lookupStart))
		if err != nil {
			s.warn(ctx, "provider lookup failed", "institution", institution, "kind", string(lookup.KindOf(err)), "error", err)
			return s.finish(ctx, att, s.policy.LookupFailed(lookup.KindOf(err)), nil)
		}
		// Best-effort: a cache outage never blocks the flow.
		_ = s.cache.Put(ctx, institution, regNumber, record)
	}

	check := s.checker.Score(record, regNumber, submitted, cfg)
	att.score = check.Score
	att.payloadHash = record.RawPayloadHash

	return s.finish(ctx, att, s.policy.Evaluate(check), record)
}

// attempt accumulates audit fields across the verify flow.
type attempt struct {
	correlationID string
	institution   string
	regNumber     string
	submitted     models.SubmittedFields
	start         time.Time
	cacheHit      bool
	score         int
	payloadHash   string
}

func (s *Service) cachedRecord(ctx context.Context, institution, regNumber string) (*models.StudentRecord, bool) {
	record, err := s.cache.Get(ctx, institution, regNumber)
	if err != nil || record == nil {
		return nil, false
	}
	return record, true
}

// finish builds the terminal result, appends the audit entry, and records
// metrics. The remote record is only exposed to the caller on a verified
// outcome; anything less keeps another student's data out of the response.
func (s *Service) finish(ctx context.Context, att attempt, decision policy.Decision, record *models.StudentRecord) (*models.VerificationResult, error) {
	latency := time.Since(att.start)

	result := &models.VerificationResult{
		Outcome:       decision.Outcome,
		Score:         att.score,
		Reason:        decision.Reason,
		CorrelationID: att.correlationID,
	}
	if decision.Outcome == models.OutcomeVerified {
		result.Record = record
	}

	err := s.auditor.Emit(ctx, audit.Attempt{
		CorrelationID: att.correlationID,
		Institution:   att.institution,
		RegNumber:     att.regNumber,
		Submitted:     att.submitted,
		Outcome:       decision.Outcome,
		Reason:        decision.Reason,
		Score:         att.score,
		CacheHit:      att.cacheHit,
		PayloadHash:   att.payloadHash,
		Latency:       latency,
		Timestamp:     requestcontext.Now(ctx),
	})
	if err != nil {
		// The attempt already has a terminal outcome; losing one audit row
		// is logged loudly rather than blocking the student.
		s.warn(ctx, "audit append failed", "institution", att.institution, "error", err)
	}

	s.metrics.IncrementOutcome(string(decision.Outcome), string(decision.Reason))
	s.metrics.ObserveVerifyLatency(latency)
	return result, nil
}

func (s *Service) warn(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, msg, args...)
	}
}
