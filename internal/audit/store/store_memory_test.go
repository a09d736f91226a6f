package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enrollgate/internal/audit"
	"enrollgate/internal/verification/models"
)

func attemptAt(institution string, outcome models.Outcome, ts time.Time) audit.Attempt {
	return audit.Attempt{
		Institution: institution,
		RegNumber:   "21/U/12345",
		Outcome:     outcome,
		Timestamp:   ts,
	}
}

func TestAppendAssignsMonotonicSequence(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	now := time.Now()

	for range 3 {
		require.NoError(t, s.Append(ctx, attemptAt("Gulu University", models.OutcomeVerified, now)))
	}

	attempts, err := s.List(ctx, audit.Query{})
	require.NoError(t, err)
	require.Len(t, attempts, 3)
	assert.Equal(t, uint64(1), attempts[0].Sequence)
	assert.Equal(t, uint64(2), attempts[1].Sequence)
	assert.Equal(t, uint64(3), attempts[2].Sequence)
}

func TestConcurrentAppendsKeepUniqueSequences(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	now := time.Now()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Append(ctx, attemptAt("Gulu University", models.OutcomeVerified, now))
		}()
	}
	wg.Wait()

	attempts, err := s.List(ctx, audit.Query{})
	require.NoError(t, err)
	require.Len(t, attempts, 50)

	seen := make(map[uint64]bool)
	for _, attempt := range attempts {
		assert.False(t, seen[attempt.Sequence], "duplicate sequence %d", attempt.Sequence)
		seen[attempt.Sequence] = true
	}
}

func TestListFilters(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.Append(ctx, attemptAt("Gulu University", models.OutcomeVerified, base)))
	require.NoError(t, s.Append(ctx, attemptAt("Mbarara University", models.OutcomeManualEntry, base.Add(time.Hour))))
	require.NoError(t, s.Append(ctx, attemptAt("Gulu University", models.OutcomeManualReview, base.Add(2*time.Hour))))

	byInstitution, err := s.List(ctx, audit.Query{Institution: " gulu university "})
	require.NoError(t, err)
	assert.Len(t, byInstitution, 2)

	byOutcome, err := s.List(ctx, audit.Query{Outcome: models.OutcomeManualEntry})
	require.NoError(t, err)
	require.Len(t, byOutcome, 1)
	assert.Equal(t, "Mbarara University", byOutcome[0].Institution)

	byWindow, err := s.List(ctx, audit.Query{From: base.Add(30 * time.Minute), To: base.Add(90 * time.Minute)})
	require.NoError(t, err)
	require.Len(t, byWindow, 1)

	limited, err := s.List(ctx, audit.Query{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}
