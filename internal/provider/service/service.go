// Package service orchestrates provider configuration lifecycle. The
// verification engine itself treats configs as read-only; all writes go
// through this administrative service.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"enrollgate/internal/provider/models"
	id "enrollgate/pkg/domain"
	dErrors "enrollgate/pkg/domain-errors"
	"enrollgate/pkg/platform/sentinel"
	"enrollgate/pkg/requestcontext"
)

// Store abstracts provider config persistence.
type Store interface {
	Create(ctx context.Context, cfg *models.ProviderConfig) error
	Update(ctx context.Context, cfg *models.ProviderConfig) error
	FindByID(ctx context.Context, configID id.ProviderConfigID) (*models.ProviderConfig, error)
	FindActiveByInstitution(ctx context.Context, institution string) (*models.ProviderConfig, error)
	FindByInstitution(ctx context.Context, institution string) (*models.ProviderConfig, error)
	List(ctx context.Context) ([]*models.ProviderConfig, error)
}

// Service manages provider configuration lifecycle.
type Service struct {
	store  Store
	logger *slog.Logger
}

// Option configures optional service dependencies.
type Option func(*Service)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("provider config store is required")
	}
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateInput carries the administrator-supplied fields for a new config.
type CreateInput struct {
	Institution      string
	BaseURL          string
	LookupPath       string
	AuthScheme       models.AuthScheme
	SecretRef        string
	TokenURL         string
	FieldMapping     models.FieldMapping
	TimeoutMillis    int64
	MaxRetries       *int
	RegNumberPattern string
	EmailDomains     []string
}

// Create validates and persists a new active provider config. Only one
// active config may exist per institution.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.ProviderConfig, error) {
	now := requestcontext.Now(ctx)
	cfg, err := models.NewProviderConfig(id.NewProviderConfigID(), in.Institution, in.BaseURL, in.LookupPath, in.AuthScheme, in.SecretRef, now)
	if err != nil {
		return nil, err
	}
	applyOptionalFields(cfg, in)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, cfg); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "an active config already exists for this institution")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create provider config")
	}

	s.log(ctx, "provider config created", "institution", cfg.Institution, "config_id", cfg.ID.String(), "auth_scheme", string(cfg.AuthScheme))
	return cfg, nil
}

// Update edits an existing config in place.
func (s *Service) Update(ctx context.Context, configID id.ProviderConfigID, in CreateInput) (*models.ProviderConfig, error) {
	cfg, err := s.store.FindByID(ctx, configID)
	if err != nil {
		return nil, wrapStoreErr(err)
	}

	cfg.Institution = in.Institution
	cfg.BaseURL = in.BaseURL
	cfg.LookupPath = in.LookupPath
	cfg.AuthScheme = in.AuthScheme
	cfg.SecretRef = in.SecretRef
	applyOptionalFields(cfg, in)
	cfg.UpdatedAt = requestcontext.Now(ctx)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, cfg); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "an active config already exists for this institution")
		}
		return nil, wrapStoreErr(err)
	}

	s.log(ctx, "provider config updated", "institution", cfg.Institution, "config_id", cfg.ID.String())
	return cfg, nil
}

// Deactivate switches a config off. Verification for the institution
// degrades to manual entry until a config is reactivated.
func (s *Service) Deactivate(ctx context.Context, configID id.ProviderConfigID) (*models.ProviderConfig, error) {
	cfg, err := s.store.FindByID(ctx, configID)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	if err := cfg.Deactivate(requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, cfg); err != nil {
		return nil, wrapStoreErr(err)
	}

	s.log(ctx, "provider config deactivated", "institution", cfg.Institution, "config_id", cfg.ID.String())
	return cfg, nil
}

// Get returns a config by ID.
func (s *Service) Get(ctx context.Context, configID id.ProviderConfigID) (*models.ProviderConfig, error) {
	cfg, err := s.store.FindByID(ctx, configID)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return cfg, nil
}

// List returns all configs.
func (s *Service) List(ctx context.Context) ([]*models.ProviderConfig, error) {
	configs, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list provider configs")
	}
	return configs, nil
}

// MarkSynced stamps the last successful sync time on an institution's active
// config. Called by the batch re-verifier after a provider round-trip; the
// verification path itself never writes config state.
func (s *Service) MarkSynced(ctx context.Context, institution string) error {
	cfg, err := s.store.FindActiveByInstitution(ctx, institution)
	if err != nil {
		return wrapStoreErr(err)
	}
	cfg.RecordSuccess(requestcontext.Now(ctx))
	if err := s.store.Update(ctx, cfg); err != nil {
		return wrapStoreErr(err)
	}
	return nil
}

func applyOptionalFields(cfg *models.ProviderConfig, in CreateInput) {
	cfg.TokenURL = in.TokenURL
	cfg.FieldMapping = in.FieldMapping
	cfg.RegNumberPattern = in.RegNumberPattern
	cfg.EmailDomains = in.EmailDomains
	if in.TimeoutMillis > 0 {
		cfg.Timeout = time.Duration(in.TimeoutMillis) * time.Millisecond
	}
	if in.MaxRetries != nil {
		cfg.MaxRetries = *in.MaxRetries
	}
}

func wrapStoreErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "provider config not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "provider config store failure")
}

func (s *Service) log(ctx context.Context, msg string, args ...any) {
	if s.logger == nil {
		return
	}
	if reqID := requestcontext.RequestID(ctx); reqID != "" {
		args = append(args, "request_id", reqID)
	}
	s.logger.InfoContext(ctx, msg, args...)
}
