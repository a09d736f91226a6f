// Package batch retroactively re-verifies students who were admitted via
// manual entry while their institution's provider was unavailable. The
// audit trail records why each attempt degraded, so the runner can pick out
// exactly the attempts worth retrying once the outage is over.
package batch

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"enrollgate/internal/audit"
	"enrollgate/internal/verification/models"
)

// Verifier runs a single verification attempt.
type Verifier interface {
	Verify(ctx context.Context, institution, regNumber string, submitted models.SubmittedFields) (*models.VerificationResult, error)
}

// Trail is the read surface over the audit log.
type Trail interface {
	List(ctx context.Context, query audit.Query) ([]audit.Attempt, error)
}

// Syncer stamps an institution's config after a successful round-trip.
type Syncer interface {
	MarkSynced(ctx context.Context, institution string) error
}

// transientReasons are outage-shaped failures worth retrying. Missing
// configs, unknown students, and identity mismatches do not heal on
// their own.
var transientReasons = map[models.Reason]struct{}{
	models.ReasonTimeout:      {},
	models.ReasonNetworkError: {},
	models.ReasonAuthRejected: {},
}

// Summary reports what a run did.
type Summary struct {
	Scanned    int // audit attempts inspected
	Candidates int // distinct students re-verified
	Verified   int // now auto-verified
	Review     int // now queued for manual review
	StillDown  int // provider still failing
}

// Runner drives re-verification with bounded concurrency across
// institutions and fixed pacing within each one.
type Runner struct {
	verifier Verifier
	trail    Trail
	syncer   Syncer
	logger   *slog.Logger

	concurrency int
	// providerInterval spaces consecutive lookups against one institution
	// so a backfill never floods a provider that just recovered.
	providerInterval time.Duration
}

// Option configures the runner.
type Option func(*Runner)

// WithConcurrency bounds how many institutions are processed in parallel.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithProviderInterval sets the pause between lookups per institution.
func WithProviderInterval(d time.Duration) Option {
	return func(r *Runner) {
		if d >= 0 {
			r.providerInterval = d
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// NewRunner constructs a batch runner. The syncer may be nil when config
// sync stamping is not wanted.
func NewRunner(verifier Verifier, trail Trail, syncer Syncer, opts ...Option) (*Runner, error) {
	if verifier == nil {
		return nil, errors.New("verifier is required")
	}
	if trail == nil {
		return nil, errors.New("audit trail is required")
	}
	r := &Runner{
		verifier:         verifier,
		trail:            trail,
		syncer:           syncer,
		concurrency:      4,
		providerInterval: time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// candidate is the latest degraded attempt for one student.
type candidate struct {
	institution string
	regNumber   string
	submitted   models.SubmittedFields
}

// Run re-verifies every student whose most recent attempt since the given
// time degraded for a transient reason. Institutions are processed in
// parallel up to the concurrency bound; students within an institution are
// processed serially with pacing.
func (r *Runner) Run(ctx context.Context, since time.Time) (*Summary, error) {
	attempts, err := r.trail.List(ctx, audit.Query{From: since})
	if err != nil {
		return nil, err
	}

	summary := &Summary{Scanned: len(attempts)}
	byInstitution := groupCandidates(attempts)
	if len(byInstitution) == 0 {
		return summary, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for institution, candidates := range byInstitution {
		g.Go(func() error {
			verified := 0
			for i, cand := range candidates {
				if i > 0 && r.providerInterval > 0 {
					select {
					case <-gctx.Done():
						return gctx.Err()
					case <-time.After(r.providerInterval):
					}
				}

				result, err := r.verifier.Verify(gctx, cand.institution, cand.regNumber, cand.submitted)
				if err != nil {
					return err
				}

				mu.Lock()
				summary.Candidates++
				switch {
				case result.Outcome == models.OutcomeVerified:
					summary.Verified++
					verified++
				case result.Outcome == models.OutcomeManualReview:
					summary.Review++
				default:
					summary.StillDown++
				}
				mu.Unlock()
			}

			if verified > 0 && r.syncer != nil {
				if err := r.syncer.MarkSynced(gctx, institution); err != nil && r.logger != nil {
					r.logger.WarnContext(gctx, "sync stamp failed", "institution", institution, "error", err)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return summary, err
	}

	if r.logger != nil {
		r.logger.InfoContext(ctx, "re-verification run finished",
			"scanned", summary.Scanned,
			"candidates", summary.Candidates,
			"verified", summary.Verified,
			"review", summary.Review,
			"still_down", summary.StillDown,
		)
	}
	return summary, nil
}

// groupCandidates reduces the trail to the latest attempt per student and
// keeps only those whose latest outcome is a transient degradation.
func groupCandidates(attempts []audit.Attempt) map[string][]candidate {
	type state struct {
		attempt audit.Attempt
		retry   bool
	}
	latest := make(map[string]state)
	for _, attempt := range attempts {
		key := attempt.Institution + "\x00" + attempt.RegNumber
		prev, seen := latest[key]
		if seen && prev.attempt.Sequence > attempt.Sequence {
			continue
		}
		_, transient := transientReasons[attempt.Reason]
		latest[key] = state{
			attempt: attempt,
			retry:   attempt.Outcome == models.OutcomeManualEntry && transient,
		}
	}

	grouped := make(map[string][]candidate)
	for _, st := range latest {
		if !st.retry {
			continue
		}
		grouped[st.attempt.Institution] = append(grouped[st.attempt.Institution], candidate{
			institution: st.attempt.Institution,
			regNumber:   st.attempt.RegNumber,
			submitted:   st.attempt.Submitted,
		})
	}
	for _, candidates := range grouped {
		sort.Slice(candidates, func(i, j int) bool {
			return candidates[i].regNumber < candidates[j].regNumber
		})
	}
	return grouped
}
