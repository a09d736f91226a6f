package audit

import (
	"context"
	"strings"
	"time"

	id "enrollgate/pkg/domain"
)

// Store persists attempts. Implementations must be safe for concurrent
// appends and must never mutate a stored attempt.
type Store interface {
	Append(ctx context.Context, attempt Attempt) error
	List(ctx context.Context, query Query) ([]Attempt, error)
}

// Publisher captures verification attempts. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

// Emit appends the attempt, stamping identity and time when the caller
// left them zero.
func (p *Publisher) Emit(ctx context.Context, attempt Attempt) error {
	if attempt.ID.IsNil() {
		attempt.ID = id.NewAttemptID()
	}
	if attempt.Timestamp.IsZero() {
		attempt.Timestamp = time.Now()
	}
	return p.store.Append(ctx, attempt)
}

// List exposes the read-only query surface for compliance review.
func (p *Publisher) List(ctx context.Context, query Query) ([]Attempt, error) {
	return p.store.List(ctx, query)
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
