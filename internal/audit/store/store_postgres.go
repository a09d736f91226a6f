package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"enrollgate/internal/audit"
	"enrollgate/internal/verification/models"
	id "enrollgate/pkg/domain"
)

// PostgresStore persists the audit trail in PostgreSQL.
//
// Expected schema:
//
//	CREATE TABLE verification_attempts (
//	    sequence       BIGSERIAL PRIMARY KEY,
//	    id             UUID NOT NULL,
//	    correlation_id TEXT NOT NULL,
//	    institution    TEXT NOT NULL,
//	    reg_number     TEXT NOT NULL,
//	    submitted      JSONB NOT NULL,
//	    outcome        TEXT NOT NULL,
//	    reason         TEXT NOT NULL DEFAULT '',
//	    score          INT NOT NULL,
//	    cache_hit      BOOLEAN NOT NULL,
//	    payload_hash   TEXT NOT NULL DEFAULT '',
//	    latency_ms     BIGINT NOT NULL,
//	    ts             TIMESTAMPTZ NOT NULL
//	);
//
// The table carries no UPDATE or DELETE path; BIGSERIAL gives the
// monotonically increasing sequence.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, attempt audit.Attempt) error {
	submitted, err := json.Marshal(attempt.Submitted)
	if err != nil {
		return fmt.Errorf("encode submitted fields: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO verification_attempts (
			id, correlation_id, institution, reg_number, submitted,
			outcome, reason, score, cache_hit, payload_hash, latency_ms, ts
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		uuid.UUID(attempt.ID), attempt.CorrelationID, attempt.Institution,
		attempt.RegNumber, submitted, string(attempt.Outcome),
		string(attempt.Reason), attempt.Score, attempt.CacheHit,
		attempt.PayloadHash, attempt.Latency.Milliseconds(), attempt.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append verification attempt: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, query audit.Query) ([]audit.Attempt, error) {
	sqlQuery := `
		SELECT sequence, id, correlation_id, institution, reg_number,
		       submitted, outcome, reason, score, cache_hit, payload_hash,
		       latency_ms, ts
		FROM verification_attempts
		WHERE ($1 = '' OR lower(institution) = lower($1))
		  AND ($2 = '' OR outcome = $2)
		  AND ($3::timestamptz IS NULL OR ts >= $3)
		  AND ($4::timestamptz IS NULL OR ts <= $4)
		ORDER BY sequence`
	args := []any{
		query.Institution, string(query.Outcome),
		nullTime(query.From), nullTime(query.To),
	}
	if query.Limit > 0 {
		sqlQuery += ` LIMIT $5`
		args = append(args, query.Limit)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("list verification attempts: %w", err)
	}
	defer rows.Close()

	var out []audit.Attempt
	for rows.Next() {
		var (
			attempt   audit.Attempt
			attemptID uuid.UUID
			submitted []byte
			outcome   string
			reason    string
			latencyMS int64
		)
		err := rows.Scan(
			&attempt.Sequence, &attemptID, &attempt.CorrelationID,
			&attempt.Institution, &attempt.RegNumber, &submitted,
			&outcome, &reason, &attempt.Score, &attempt.CacheHit,
			&attempt.PayloadHash, &latencyMS, &attempt.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan verification attempt: %w", err)
		}
		attempt.ID = id.AttemptID(attemptID)
		attempt.Outcome = models.Outcome(outcome)
		attempt.Reason = models.Reason(reason)
		attempt.Latency = time.Duration(latencyMS) * time.Millisecond
		if err := json.Unmarshal(submitted, &attempt.Submitted); err != nil {
			return nil, fmt.Errorf("decode submitted fields: %w", err)
		}
		out = append(out, attempt)
	}
	return out, rows.Err()
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
