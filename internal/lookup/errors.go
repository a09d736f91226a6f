package lookup

import (
	"errors"
	"fmt"
)

// Kind is the normalized failure taxonomy for provider lookups. Every
// outbound failure maps deterministically onto one of these, and each kind
// maps deterministically onto a fallback policy branch.
type Kind string

const (
	// KindTimeout indicates the provider exceeded its configured deadline.
	KindTimeout Kind = "timeout"

	// KindAuthRejected indicates the provider refused our credentials.
	KindAuthRejected Kind = "auth_rejected"

	// KindNotFound indicates the registration number has no record upstream.
	KindNotFound Kind = "not_found"

	// KindMalformedResponse indicates a payload we could not normalize.
	KindMalformedResponse Kind = "malformed_response"

	// KindNetworkError indicates connection failures and 5xx-class outages.
	KindNetworkError Kind = "network_error"
)

// Error wraps a lookup failure with its normalized kind. Transient kinds are
// retried inside the client; terminal kinds end the attempt immediately.
type Error struct {
	Kind        Kind
	Institution string
	Message     string
	Underlying  error
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("lookup %s [%s]: %s: %v", e.Institution, e.Kind, e.Message, e.Underlying)
	}
	return fmt.Sprintf("lookup %s [%s]: %s", e.Institution, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Underlying }

// Retryable reports whether the failure is worth retrying.
func (e *Error) Retryable() bool {
	return e.Kind == KindTimeout || e.Kind == KindNetworkError
}

func newError(kind Kind, institution, message string, underlying error) *Error {
	return &Error{Kind: kind, Institution: institution, Message: message, Underlying: underlying}
}

// KindOf extracts the failure kind from an error, defaulting to
// KindNetworkError for unclassified failures.
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindNetworkError
}

// IsRetryable reports whether err is a transient lookup failure.
func IsRetryable(err error) bool {
	var le *Error
	if errors.As(err, &le) {
		return le.Retryable()
	}
	return false
}
