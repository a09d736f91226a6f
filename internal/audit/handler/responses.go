package handler

import (
	"time"

	"enrollgate/internal/audit"
	"enrollgate/internal/verification/models"
)

// AttemptResponse is the export view of an audit record. IDs render in
// canonical UUID form and latency in milliseconds.
type AttemptResponse struct {
	ID            string                 `json:"id"`
	CorrelationID string                 `json:"correlation_id"`
	Institution   string                 `json:"institution"`
	RegNumber     string                 `json:"registration_number"`
	Submitted     models.SubmittedFields `json:"submitted"`
	Outcome       models.Outcome         `json:"outcome"`
	Reason        models.Reason          `json:"reason,omitempty"`
	Score         int                    `json:"score"`
	CacheHit      bool                   `json:"cache_hit"`
	PayloadHash   string                 `json:"payload_hash,omitempty"`
	LatencyMillis int64                  `json:"latency_ms"`
	Timestamp     time.Time              `json:"timestamp"`
	Sequence      uint64                 `json:"sequence"`
}

// FromAttempt converts a trail record into its export form.
func FromAttempt(a audit.Attempt) AttemptResponse {
	return AttemptResponse{
		ID:            a.ID.String(),
		CorrelationID: a.CorrelationID,
		Institution:   a.Institution,
		RegNumber:     a.RegNumber,
		Submitted:     a.Submitted,
		Outcome:       a.Outcome,
		Reason:        a.Reason,
		Score:         a.Score,
		CacheHit:      a.CacheHit,
		PayloadHash:   a.PayloadHash,
		LatencyMillis: a.Latency.Milliseconds(),
		Timestamp:     a.Timestamp,
		Sequence:      a.Sequence,
	}
}

// FromAttempts converts a list of trail records.
func FromAttempts(attempts []audit.Attempt) []AttemptResponse {
	out := make([]AttemptResponse, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, FromAttempt(a))
	}
	return out
}
