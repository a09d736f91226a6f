package handler_test

import (
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enrollgate/internal/audit"
	"enrollgate/internal/audit/handler"
	"enrollgate/internal/audit/store"
	"enrollgate/internal/verification/models"
	id "enrollgate/pkg/domain"
	"enrollgate/pkg/testutil"
)

type exportResponse struct {
	Attempts []handler.AttemptResponse `json:"attempts"`
	Count    int                       `json:"count"`
}

func newRouter(t *testing.T, attempts ...audit.Attempt) http.Handler {
	t.Helper()

	trail := store.NewInMemoryStore()
	publisher := audit.NewPublisher(trail)
	for _, attempt := range attempts {
		require.NoError(t, publisher.Emit(context.Background(), attempt))
	}

	r := chi.NewRouter()
	handler.New(publisher, slog.New(slog.DiscardHandler)).Register(r)
	return r
}

func attemptAt(institution string, outcome models.Outcome, ts time.Time) audit.Attempt {
	return audit.Attempt{
		Institution: institution,
		RegNumber:   "21/U/12345",
		Outcome:     outcome,
		Timestamp:   ts,
	}
}

func TestHandleListFilters(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	router := newRouter(t,
		attemptAt("Gulu University", models.OutcomeVerified, base),
		attemptAt("Mbarara University", models.OutcomeManualEntry, base.Add(time.Hour)),
		attemptAt("Gulu University", models.OutcomeManualReview, base.Add(2*time.Hour)),
	)

	tests := []struct {
		name  string
		path  string
		count int
	}{
		{"no filters", "/verifications", 3},
		{"by institution", "/verifications?institution=Gulu+University", 2},
		{"by outcome", "/verifications?outcome=manual_entry_required", 1},
		{"by window", "/verifications?from=2026-03-01T09:30:00Z&to=2026-03-01T10:30:00Z", 1},
		{"limited", "/verifications?limit=2", 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, tc.path))
			testutil.AssertStatus(t, rec, http.StatusOK)
			resp := testutil.UnmarshalResponse[exportResponse](t, rec)
			assert.Equal(t, tc.count, resp.Count)
			assert.Len(t, resp.Attempts, tc.count)
		})
	}
}

func TestHandleListRendersExportForm(t *testing.T) {
	attemptID := id.NewAttemptID()
	router := newRouter(t, audit.Attempt{
		ID:            attemptID,
		CorrelationID: "corr-1",
		Institution:   "Gulu University",
		RegNumber:     "21/U/12345",
		Outcome:       models.OutcomeVerified,
		Score:         95,
		PayloadHash:   "deadbeef",
		Latency:       1500 * time.Millisecond,
		Timestamp:     time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	})

	rec := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/verifications"))
	testutil.AssertStatus(t, rec, http.StatusOK)

	resp := testutil.UnmarshalResponse[exportResponse](t, rec)
	require.Len(t, resp.Attempts, 1)
	got := resp.Attempts[0]

	assert.Equal(t, attemptID.String(), got.ID, "id is a UUID string, not a byte array")
	parsed, err := id.ParseAttemptID(got.ID)
	require.NoError(t, err)
	assert.Equal(t, attemptID, parsed)
	assert.Equal(t, int64(1500), got.LatencyMillis)
	assert.Equal(t, "deadbeef", got.PayloadHash)
}

func TestHandleListEmptyTrail(t *testing.T) {
	router := newRouter(t)

	rec := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/verifications"))
	testutil.AssertStatus(t, rec, http.StatusOK)

	resp := testutil.UnmarshalResponse[exportResponse](t, rec)
	assert.Equal(t, 0, resp.Count)
	assert.NotNil(t, resp.Attempts)
	assert.Empty(t, resp.Attempts)
}

func TestHandleListRejectsBadFilters(t *testing.T) {
	router := newRouter(t)

	tests := []struct {
		name string
		path string
	}{
		{"unknown outcome", "/verifications?outcome=escalated"},
		{"bad from", "/verifications?from=yesterday"},
		{"bad to", "/verifications?to=03-01-2026"},
		{"zero limit", "/verifications?limit=0"},
		{"negative limit", "/verifications?limit=-5"},
		{"non-numeric limit", "/verifications?limit=many"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, tc.path))
			testutil.AssertStatus(t, rec, http.StatusBadRequest)
		})
	}
}
