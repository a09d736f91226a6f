//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"enrollgate/internal/audit"
	"enrollgate/internal/audit/store"
	"enrollgate/internal/verification/models"
	id "enrollgate/pkg/domain"
	"enrollgate/pkg/testutil/containers"
)

const auditSchema = `
CREATE TABLE IF NOT EXISTS verification_attempts (
    sequence       BIGSERIAL PRIMARY KEY,
    id             UUID NOT NULL,
    correlation_id TEXT NOT NULL,
    institution    TEXT NOT NULL,
    reg_number     TEXT NOT NULL,
    submitted      JSONB NOT NULL,
    outcome        TEXT NOT NULL,
    reason         TEXT NOT NULL DEFAULT '',
    score          INT NOT NULL,
    cache_hit      BOOLEAN NOT NULL,
    payload_hash   TEXT NOT NULL DEFAULT '',
    latency_ms     BIGINT NOT NULL,
    ts             TIMESTAMPTZ NOT NULL
);`

type AuditPostgresSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *store.PostgresStore
}

func TestAuditPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(AuditPostgresSuite))
}

func (s *AuditPostgresSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.pg.MustExec(s.T(), auditSchema)
	s.store = store.NewPostgresStore(s.pg.DB)
}

func (s *AuditPostgresSuite) SetupTest() {
	s.pg.MustExec(s.T(), "TRUNCATE verification_attempts RESTART IDENTITY")
}

func (s *AuditPostgresSuite) attempt(institution string, outcome models.Outcome, ts time.Time) audit.Attempt {
	return audit.Attempt{
		ID:            id.NewAttemptID(),
		CorrelationID: "corr-1",
		Institution:   institution,
		RegNumber:     "21/U/12345",
		Submitted:     models.SubmittedFields{FirstName: "Amara"},
		Outcome:       outcome,
		Reason:        models.ReasonNone,
		Score:         90,
		CacheHit:      false,
		PayloadHash:   "abc123",
		Latency:       120 * time.Millisecond,
		Timestamp:     ts,
	}
}

func (s *AuditPostgresSuite) TestAppendAndListRoundTrip() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	s.Require().NoError(s.store.Append(ctx, s.attempt("Gulu University", models.OutcomeVerified, now)))
	s.Require().NoError(s.store.Append(ctx, s.attempt("Gulu University", models.OutcomeManualEntry, now.Add(time.Minute))))

	attempts, err := s.store.List(ctx, audit.Query{})
	s.Require().NoError(err)
	s.Require().Len(attempts, 2)

	s.Equal(uint64(1), attempts[0].Sequence)
	s.Equal(uint64(2), attempts[1].Sequence)
	s.Equal(models.OutcomeVerified, attempts[0].Outcome)
	s.Equal("Amara", attempts[0].Submitted.FirstName)
	s.Equal(120*time.Millisecond, attempts[0].Latency)
	s.WithinDuration(now, attempts[0].Timestamp, time.Millisecond)
}

func (s *AuditPostgresSuite) TestListFilters() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	s.Require().NoError(s.store.Append(ctx, s.attempt("Gulu University", models.OutcomeVerified, now)))
	s.Require().NoError(s.store.Append(ctx, s.attempt("Mbarara University", models.OutcomeManualEntry, now.Add(time.Hour))))

	byInstitution, err := s.store.List(ctx, audit.Query{Institution: "gulu university"})
	s.Require().NoError(err)
	s.Require().Len(byInstitution, 1)
	s.Equal("Gulu University", byInstitution[0].Institution)

	byOutcome, err := s.store.List(ctx, audit.Query{Outcome: models.OutcomeManualEntry})
	s.Require().NoError(err)
	s.Require().Len(byOutcome, 1)

	byWindow, err := s.store.List(ctx, audit.Query{From: now.Add(30 * time.Minute)})
	s.Require().NoError(err)
	s.Require().Len(byWindow, 1)
	s.Equal("Mbarara University", byWindow[0].Institution)

	limited, err := s.store.List(ctx, audit.Query{Limit: 1})
	s.Require().NoError(err)
	s.Len(limited, 1)
}
