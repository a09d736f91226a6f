package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"enrollgate/internal/provider/models"
	id "enrollgate/pkg/domain"
	"enrollgate/pkg/platform/sentinel"
)

// PostgresStore persists provider configs in PostgreSQL.
//
// Expected schema (see migrations in deploy tooling):
//
//	CREATE TABLE provider_configs (
//	    id                 UUID PRIMARY KEY,
//	    institution        TEXT NOT NULL,
//	    institution_key    TEXT NOT NULL,
//	    base_url           TEXT NOT NULL,
//	    lookup_path        TEXT NOT NULL,
//	    auth_scheme        TEXT NOT NULL,
//	    secret_ref         TEXT NOT NULL,
//	    token_url          TEXT NOT NULL DEFAULT '',
//	    field_mapping      JSONB NOT NULL DEFAULT '{}',
//	    timeout_ms         BIGINT NOT NULL DEFAULT 0,
//	    max_retries        INT NOT NULL DEFAULT -1,
//	    reg_number_pattern TEXT NOT NULL DEFAULT '',
//	    email_domains      TEXT[] NOT NULL DEFAULT '{}',
//	    active             BOOLEAN NOT NULL,
//	    last_success_at    TIMESTAMPTZ,
//	    created_at         TIMESTAMPTZ NOT NULL,
//	    updated_at         TIMESTAMPTZ NOT NULL
//	);
//	CREATE UNIQUE INDEX provider_configs_one_active
//	    ON provider_configs (institution_key) WHERE active;
//
// The partial unique index enforces the one-active-config-per-institution
// invariant at the database level; the service still surfaces it as a
// conflict error.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const providerConfigColumns = `
	id, institution, base_url, lookup_path, auth_scheme, secret_ref,
	token_url, field_mapping, timeout_ms, max_retries, reg_number_pattern,
	email_domains, active, last_success_at, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, cfg *models.ProviderConfig) error {
	mapping, err := json.Marshal(cfg.FieldMapping)
	if err != nil {
		return fmt.Errorf("encode field mapping: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO provider_configs (
			id, institution, institution_key, base_url, lookup_path,
			auth_scheme, secret_ref, token_url, field_mapping, timeout_ms,
			max_retries, reg_number_pattern, email_domains, active,
			last_success_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		uuid.UUID(cfg.ID), cfg.Institution, models.InstitutionKey(cfg.Institution),
		cfg.BaseURL, cfg.LookupPath, string(cfg.AuthScheme), cfg.SecretRef,
		cfg.TokenURL, mapping, cfg.Timeout.Milliseconds(), cfg.MaxRetries,
		cfg.RegNumberPattern, pq.Array(cfg.EmailDomains), cfg.Active,
		nullTime(cfg.LastSuccessAt), cfg.CreatedAt, cfg.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert provider config: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, cfg *models.ProviderConfig) error {
	mapping, err := json.Marshal(cfg.FieldMapping)
	if err != nil {
		return fmt.Errorf("encode field mapping: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE provider_configs SET
			institution = $2, institution_key = $3, base_url = $4,
			lookup_path = $5, auth_scheme = $6, secret_ref = $7,
			token_url = $8, field_mapping = $9, timeout_ms = $10,
			max_retries = $11, reg_number_pattern = $12, email_domains = $13,
			active = $14, last_success_at = $15, updated_at = $16
		WHERE id = $1`,
		uuid.UUID(cfg.ID), cfg.Institution, models.InstitutionKey(cfg.Institution),
		cfg.BaseURL, cfg.LookupPath, string(cfg.AuthScheme), cfg.SecretRef,
		cfg.TokenURL, mapping, cfg.Timeout.Milliseconds(), cfg.MaxRetries,
		cfg.RegNumberPattern, pq.Array(cfg.EmailDomains), cfg.Active,
		nullTime(cfg.LastSuccessAt), cfg.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("update provider config: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update provider config: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, configID id.ProviderConfigID) (*models.ProviderConfig, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+providerConfigColumns+` FROM provider_configs WHERE id = $1`,
		uuid.UUID(configID),
	)
	return scanProviderConfig(row)
}

func (s *PostgresStore) FindActiveByInstitution(ctx context.Context, institution string) (*models.ProviderConfig, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+providerConfigColumns+` FROM provider_configs WHERE institution_key = $1 AND active`,
		models.InstitutionKey(institution),
	)
	return scanProviderConfig(row)
}

func (s *PostgresStore) FindByInstitution(ctx context.Context, institution string) (*models.ProviderConfig, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+providerConfigColumns+` FROM provider_configs
		WHERE institution_key = $1
		ORDER BY updated_at DESC
		LIMIT 1`,
		models.InstitutionKey(institution),
	)
	return scanProviderConfig(row)
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.ProviderConfig, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+providerConfigColumns+` FROM provider_configs ORDER BY institution_key`,
	)
	if err != nil {
		return nil, fmt.Errorf("list provider configs: %w", err)
	}
	defer rows.Close()

	var out []*models.ProviderConfig
	for rows.Next() {
		cfg, err := scanProviderConfig(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProviderConfig(row rowScanner) (*models.ProviderConfig, error) {
	var (
		cfg         models.ProviderConfig
		configID    uuid.UUID
		scheme      string
		mapping     []byte
		timeoutMS   int64
		domains     pq.StringArray
		lastSuccess sql.NullTime
	)
	err := row.Scan(
		&configID, &cfg.Institution, &cfg.BaseURL, &cfg.LookupPath, &scheme,
		&cfg.SecretRef, &cfg.TokenURL, &mapping, &timeoutMS, &cfg.MaxRetries,
		&cfg.RegNumberPattern, &domains, &cfg.Active, &lastSuccess,
		&cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan provider config: %w", err)
	}

	cfg.ID = id.ProviderConfigID(configID)
	cfg.AuthScheme = models.AuthScheme(scheme)
	cfg.Timeout = time.Duration(timeoutMS) * time.Millisecond
	cfg.EmailDomains = domains
	if lastSuccess.Valid {
		cfg.LastSuccessAt = lastSuccess.Time
	}
	if len(mapping) > 0 {
		if err := json.Unmarshal(mapping, &cfg.FieldMapping); err != nil {
			return nil, fmt.Errorf("decode field mapping: %w", err)
		}
	}
	return &cfg, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
