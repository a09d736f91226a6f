// Package policy decides the terminal outcome of a verification attempt.
// The rules are centralized here so they stay testable: every path through
// the engine ends in exactly one of three outcomes, and registration is
// never hard-blocked — at worst it degrades to manual data entry.
package policy

import (
	"enrollgate/internal/lookup"
	"enrollgate/internal/verification/crosscheck"
	"enrollgate/internal/verification/models"
)

// DefaultThreshold separates auto-verified from manual-review-required.
const DefaultThreshold = 70

// Decision is a terminal outcome plus the reason that led to it.
type Decision struct {
	Outcome models.Outcome
	Reason  models.Reason
}

// Policy evaluates cross-check results and failure modes.
type Policy struct {
	threshold int
}

// New creates a policy with the given auto-verify threshold. Non-positive
// values select the default.
func New(threshold int) *Policy {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Policy{threshold: threshold}
}

// Threshold returns the auto-verify cutoff in use.
func (p *Policy) Threshold() int { return p.threshold }

// NoConfig: the institution has no provider integration at all.
func (p *Policy) NoConfig() Decision {
	return Decision{Outcome: models.OutcomeManualEntry, Reason: models.ReasonConfigMissing}
}

// InactiveConfig: an integration exists but an administrator switched it off.
func (p *Policy) InactiveConfig() Decision {
	return Decision{Outcome: models.OutcomeManualEntry, Reason: models.ReasonConfigInactive}
}

// LookupFailed maps the lookup failure taxonomy onto a terminal decision.
// The recorded reason lets a later batch job retroactively re-verify
// students admitted during an outage.
func (p *Policy) LookupFailed(kind lookup.Kind) Decision {
	reason := models.ReasonNetworkError
	switch kind {
	case lookup.KindTimeout:
		reason = models.ReasonTimeout
	case lookup.KindAuthRejected:
		reason = models.ReasonAuthRejected
	case lookup.KindNotFound:
		reason = models.ReasonNotFound
	case lookup.KindMalformedResponse:
		reason = models.ReasonMalformedResponse
	case lookup.KindNetworkError:
		reason = models.ReasonNetworkError
	}
	return Decision{Outcome: models.OutcomeManualEntry, Reason: reason}
}

// Evaluate turns a cross-check result into a terminal decision. The
// National-ID hard gate is checked before the score: a mismatch queues the
// attempt for human review no matter how well the other fields match.
func (p *Policy) Evaluate(check crosscheck.Result) Decision {
	if check.NationalIDMismatch {
		return Decision{Outcome: models.OutcomeManualReview, Reason: models.ReasonIdentityMismatch}
	}
	if check.Score >= p.threshold {
		return Decision{Outcome: models.OutcomeVerified, Reason: models.ReasonNone}
	}
	return Decision{Outcome: models.OutcomeManualReview, Reason: models.ReasonScoreBelowThreshold}
}
