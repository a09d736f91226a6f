// Package models holds the canonical, provider-agnostic verification types.
package models

// StudentRecord is the normalized student identity returned by a provider.
// Providers vary in richness: every field except RegistrationNumber is
// optional.
type StudentRecord struct {
	RegistrationNumber string `json:"registration_number"`
	FirstName          string `json:"first_name,omitempty"`
	LastName           string `json:"last_name,omitempty"`
	NationalID         string `json:"national_id,omitempty"`
	Email              string `json:"email,omitempty"`
	CourseCode         string `json:"course_code,omitempty"`
	CourseName         string `json:"course_name,omitempty"`
	Department         string `json:"department,omitempty"`
	Campus             string `json:"campus,omitempty"`
	YearOfStudy        int    `json:"year_of_study,omitempty"`
	EnrollmentStatus   string `json:"status,omitempty"`

	// RawPayloadHash is the SHA-256 of the provider response body, kept for
	// the audit trail instead of the sensitive payload itself.
	RawPayloadHash string `json:"raw_payload_hash,omitempty"`
}

// SubmittedFields is what the registering student typed into the form.
type SubmittedFields struct {
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	NationalID string `json:"national_id,omitempty"`
	Email      string `json:"email,omitempty"`
	CourseCode string `json:"course_code,omitempty"`
	CourseName string `json:"course_name,omitempty"`
	Department string `json:"department,omitempty"`
}

// Outcome is a terminal verification state. The engine always lands on
// exactly one of these; registration is never hard-blocked.
type Outcome string

const (
	OutcomeVerified     Outcome = "verified"
	OutcomeManualEntry  Outcome = "manual_entry_required"
	OutcomeManualReview Outcome = "manual_review_queued"
)

// Reason explains a non-verified outcome.
type Reason string

const (
	ReasonNone                Reason = ""
	ReasonConfigMissing       Reason = "config_missing"
	ReasonConfigInactive      Reason = "config_inactive"
	ReasonTimeout             Reason = "timeout"
	ReasonAuthRejected        Reason = "auth_rejected"
	ReasonNotFound            Reason = "not_found"
	ReasonMalformedResponse   Reason = "malformed_response"
	ReasonNetworkError        Reason = "network_error"
	ReasonIdentityMismatch    Reason = "identity_mismatch"
	ReasonScoreBelowThreshold Reason = "score_below_threshold"
)

// VerificationResult is returned to the registration form handler. The UI
// uses Outcome to decide whether fields were auto-filled or must be typed,
// and whether the account is flagged pending review.
type VerificationResult struct {
	Outcome       Outcome        `json:"outcome"`
	Score         int            `json:"score"`
	Record        *StudentRecord `json:"record,omitempty"`
	Reason        Reason         `json:"reason,omitempty"`
	CorrelationID string         `json:"correlation_id"`
}
