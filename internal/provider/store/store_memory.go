package store

import (
	"context"
	"sync"

	"enrollgate/internal/provider/models"
	id "enrollgate/pkg/domain"
	"enrollgate/pkg/platform/sentinel"
)

// InMemoryStore keeps provider configs in a map. Suitable for tests and
// single-instance deployments without a database.
type InMemoryStore struct {
	mu        sync.RWMutex
	byID      map[id.ProviderConfigID]*models.ProviderConfig
	activeKey map[string]id.ProviderConfigID // institution key -> active config
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:      make(map[id.ProviderConfigID]*models.ProviderConfig),
		activeKey: make(map[string]id.ProviderConfigID),
	}
}

// Create persists a new config. Returns sentinel.ErrConflict when an active
// config already exists for the institution.
func (s *InMemoryStore) Create(_ context.Context, cfg *models.ProviderConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := models.InstitutionKey(cfg.Institution)
	if cfg.Active {
		if _, exists := s.activeKey[key]; exists {
			return sentinel.ErrConflict
		}
		s.activeKey[key] = cfg.ID
	}
	clone := *cfg
	s.byID[cfg.ID] = &clone
	return nil
}

// Update replaces an existing config, re-checking the single-active
// invariant when institution or active flag changed.
func (s *InMemoryStore) Update(_ context.Context, cfg *models.ProviderConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[cfg.ID]
	if !ok {
		return sentinel.ErrNotFound
	}

	oldKey := models.InstitutionKey(existing.Institution)
	newKey := models.InstitutionKey(cfg.Institution)

	if cfg.Active {
		if holder, exists := s.activeKey[newKey]; exists && holder != cfg.ID {
			return sentinel.ErrConflict
		}
	}
	if existing.Active && s.activeKey[oldKey] == cfg.ID {
		delete(s.activeKey, oldKey)
	}
	if cfg.Active {
		s.activeKey[newKey] = cfg.ID
	}

	clone := *cfg
	s.byID[cfg.ID] = &clone
	return nil
}

// FindByID returns a copy of the config with the given ID.
func (s *InMemoryStore) FindByID(_ context.Context, configID id.ProviderConfigID) (*models.ProviderConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.byID[configID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *cfg
	return &clone, nil
}

// FindActiveByInstitution returns the active config for an institution.
func (s *InMemoryStore) FindActiveByInstitution(_ context.Context, institution string) (*models.ProviderConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	configID, ok := s.activeKey[models.InstitutionKey(institution)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *s.byID[configID]
	return &clone, nil
}

// FindByInstitution returns the most recently updated config for an
// institution regardless of active flag. Used to distinguish "never
// configured" from "configured but switched off".
func (s *InMemoryStore) FindByInstitution(_ context.Context, institution string) (*models.ProviderConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := models.InstitutionKey(institution)
	var latest *models.ProviderConfig
	for _, cfg := range s.byID {
		if models.InstitutionKey(cfg.Institution) != key {
			continue
		}
		if latest == nil || cfg.UpdatedAt.After(latest.UpdatedAt) {
			latest = cfg
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	clone := *latest
	return &clone, nil
}

// List returns all configs.
func (s *InMemoryStore) List(_ context.Context) ([]*models.ProviderConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.ProviderConfig, 0, len(s.byID))
	for _, cfg := range s.byID {
		clone := *cfg
		out = append(out, &clone)
	}
	return out, nil
}
