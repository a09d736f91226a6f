// Package audit keeps the immutable trail of verification attempts for
// fraud investigation. Records are appended, never updated.
package audit

import (
	"time"

	"enrollgate/internal/verification/models"
	id "enrollgate/pkg/domain"
)

// Attempt captures one verification attempt: its inputs, outcome, and
// score. Sensitive provider payloads are represented by their hash only.
type Attempt struct {
	ID            id.AttemptID           `json:"id"`
	CorrelationID string                 `json:"correlation_id"`
	Institution   string                 `json:"institution"`
	RegNumber     string                 `json:"registration_number"`
	Submitted     models.SubmittedFields `json:"submitted"`
	Outcome       models.Outcome         `json:"outcome"`
	Reason        models.Reason          `json:"reason,omitempty"`
	Score         int                    `json:"score"`
	CacheHit      bool                   `json:"cache_hit"`
	PayloadHash   string                 `json:"payload_hash,omitempty"`
	Latency       time.Duration          `json:"latency"`
	Timestamp     time.Time              `json:"timestamp"`

	// Sequence is assigned by the store on append and increases
	// monotonically, giving investigators a total order independent of
	// clock precision.
	Sequence uint64 `json:"sequence"`
}

// Query filters the audit trail for the compliance export surface.
// Zero-value fields match everything.
type Query struct {
	Institution string
	Outcome     models.Outcome
	From        time.Time
	To          time.Time
	Limit       int
}

// Matches reports whether the attempt satisfies the filter.
func (q Query) Matches(a Attempt) bool {
	if q.Institution != "" && !equalFold(q.Institution, a.Institution) {
		return false
	}
	if q.Outcome != "" && q.Outcome != a.Outcome {
		return false
	}
	if !q.From.IsZero() && a.Timestamp.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && a.Timestamp.After(q.To) {
		return false
	}
	return true
}
