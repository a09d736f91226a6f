package batch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enrollgate/internal/audit"
	"enrollgate/internal/audit/store"
	"enrollgate/internal/verification/models"
)

// fakeVerifier replays scripted outcomes and records every call.
type fakeVerifier struct {
	mu       sync.Mutex
	outcomes map[string]models.Outcome // institution\x00regNumber -> outcome
	calls    []string
}

func (f *fakeVerifier) Verify(_ context.Context, institution, regNumber string, _ models.SubmittedFields) (*models.VerificationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := institution + "\x00" + regNumber
	f.calls = append(f.calls, key)
	outcome, ok := f.outcomes[key]
	if !ok {
		outcome = models.OutcomeVerified
	}
	return &models.VerificationResult{Outcome: outcome}, nil
}

func (f *fakeVerifier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeSyncer struct {
	mu           sync.Mutex
	institutions []string
}

func (f *fakeSyncer) MarkSynced(_ context.Context, institution string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.institutions = append(f.institutions, institution)
	return nil
}

func seedTrail(t *testing.T, attempts ...audit.Attempt) *store.InMemoryStore {
	t.Helper()
	trail := store.NewInMemoryStore()
	for _, attempt := range attempts {
		require.NoError(t, trail.Append(context.Background(), attempt))
	}
	return trail
}

func degraded(institution, regNumber string, reason models.Reason) audit.Attempt {
	return audit.Attempt{
		Institution: institution,
		RegNumber:   regNumber,
		Submitted:   models.SubmittedFields{FirstName: "Amara"},
		Outcome:     models.OutcomeManualEntry,
		Reason:      reason,
		Timestamp:   time.Now(),
	}
}

func TestRunReverifiesOutageVictims(t *testing.T) {
	trail := seedTrail(t,
		degraded("Gulu University", "21/U/1", models.ReasonTimeout),
		degraded("Gulu University", "21/U/2", models.ReasonNetworkError),
		degraded("Mbarara University", "21/M/1", models.ReasonAuthRejected),
	)
	verifier := &fakeVerifier{}
	syncer := &fakeSyncer{}

	runner, err := NewRunner(verifier, trail, syncer, WithProviderInterval(0))
	require.NoError(t, err)

	summary, err := runner.Run(context.Background(), time.Time{})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Scanned)
	assert.Equal(t, 3, summary.Candidates)
	assert.Equal(t, 3, summary.Verified)
	assert.Equal(t, 3, verifier.callCount())
	assert.ElementsMatch(t, []string{"Gulu University", "Mbarara University"}, syncer.institutions)
}

func TestRunSkipsNonTransientFailures(t *testing.T) {
	trail := seedTrail(t,
		degraded("Gulu University", "21/U/1", models.ReasonConfigMissing),
		degraded("Gulu University", "21/U/2", models.ReasonNotFound),
		audit.Attempt{
			Institution: "Gulu University",
			RegNumber:   "21/U/3",
			Outcome:     models.OutcomeManualReview,
			Reason:      models.ReasonIdentityMismatch,
			Timestamp:   time.Now(),
		},
	)
	verifier := &fakeVerifier{}

	runner, err := NewRunner(verifier, trail, nil, WithProviderInterval(0))
	require.NoError(t, err)

	summary, err := runner.Run(context.Background(), time.Time{})
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Candidates)
	assert.Equal(t, 0, verifier.callCount())
}

func TestRunUsesLatestAttemptPerStudent(t *testing.T) {
	// The student retried and verified after the outage; nothing to redo.
	trail := seedTrail(t,
		degraded("Gulu University", "21/U/1", models.ReasonTimeout),
		audit.Attempt{
			Institution: "Gulu University",
			RegNumber:   "21/U/1",
			Outcome:     models.OutcomeVerified,
			Timestamp:   time.Now(),
		},
	)
	verifier := &fakeVerifier{}

	runner, err := NewRunner(verifier, trail, nil, WithProviderInterval(0))
	require.NoError(t, err)

	summary, err := runner.Run(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Candidates)
}

func TestRunCountsOutcomes(t *testing.T) {
	trail := seedTrail(t,
		degraded("Gulu University", "21/U/1", models.ReasonTimeout),
		degraded("Gulu University", "21/U/2", models.ReasonTimeout),
		degraded("Gulu University", "21/U/3", models.ReasonTimeout),
	)
	verifier := &fakeVerifier{outcomes: map[string]models.Outcome{
		"Gulu University\x0021/U/1": models.OutcomeVerified,
		"Gulu University\x0021/U/2": models.OutcomeManualReview,
		"Gulu University\x0021/U/3": models.OutcomeManualEntry,
	}}
	syncer := &fakeSyncer{}

	runner, err := NewRunner(verifier, trail, syncer, WithProviderInterval(0))
	require.NoError(t, err)

	summary, err := runner.Run(context.Background(), time.Time{})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Verified)
	assert.Equal(t, 1, summary.Review)
	assert.Equal(t, 1, summary.StillDown)
	assert.Equal(t, []string{"Gulu University"}, syncer.institutions)
}

func TestRunHonorsWindow(t *testing.T) {
	old := degraded("Gulu University", "21/U/1", models.ReasonTimeout)
	old.Timestamp = time.Now().Add(-48 * time.Hour)
	recent := degraded("Gulu University", "21/U/2", models.ReasonTimeout)

	trail := seedTrail(t, old, recent)
	verifier := &fakeVerifier{}

	runner, err := NewRunner(verifier, trail, nil, WithProviderInterval(0))
	require.NoError(t, err)

	summary, err := runner.Run(context.Background(), time.Now().Add(-24*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Scanned)
	assert.Equal(t, 1, summary.Candidates)
}

func TestNewRunnerRequiresDependencies(t *testing.T) {
	trail := store.NewInMemoryStore()
	_, err := NewRunner(nil, trail, nil)
	assert.Error(t, err)
	_, err = NewRunner(&fakeVerifier{}, nil, nil)
	assert.Error(t, err)
}
