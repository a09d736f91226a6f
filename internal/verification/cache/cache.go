// Package cache holds short-TTL copies of successful provider lookups so a
// student retrying a registration form does not hammer the institution API.
// Entries are derived and disposable: the cache holds no authority and can
// be rebuilt from a fresh remote call at any time.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"enrollgate/internal/verification/models"
	"enrollgate/pkg/platform/sentinel"
)

var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "enrollgate_verification_cache_hits_total",
		Help: "Verification cache hits.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "enrollgate_verification_cache_misses_total",
		Help: "Verification cache misses.",
	})
	cacheErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "enrollgate_verification_cache_errors_total",
		Help: "Verification cache store failures degraded to misses.",
	})
)

// Cache stores student records keyed by (institution, registration number).
// Implementations expire entries after a fixed TTL.
type Cache interface {
	Get(ctx context.Context, institution, regNumber string) (*models.StudentRecord, error)
	Put(ctx context.Context, institution, regNumber string, record *models.StudentRecord) error
}

// Key builds the canonical cache key. Institution matching is
// case-insensitive to mirror config store lookups.
func Key(institution, regNumber string) string {
	return strings.ToLower(strings.TrimSpace(institution)) + ":" + strings.TrimSpace(regNumber)
}

// InMemory is an expirable-LRU backed cache. Each engine instance has its
// own copy; expiry is handled by the LRU itself.
type InMemory struct {
	lru *expirable.LRU[string, models.StudentRecord]
}

// NewInMemory creates an in-memory cache holding up to maxEntries records
// for ttl each.
func NewInMemory(maxEntries int, ttl time.Duration) *InMemory {
	return &InMemory{lru: expirable.NewLRU[string, models.StudentRecord](maxEntries, nil, ttl)}
}

func (c *InMemory) Get(_ context.Context, institution, regNumber string) (*models.StudentRecord, error) {
	record, ok := c.lru.Get(Key(institution, regNumber))
	if !ok {
		cacheMissesTotal.Inc()
		return nil, sentinel.ErrNotFound
	}
	cacheHitsTotal.Inc()
	return &record, nil
}

func (c *InMemory) Put(_ context.Context, institution, regNumber string, record *models.StudentRecord) error {
	if record == nil {
		return fmt.Errorf("student record is required")
	}
	c.lru.Add(Key(institution, regNumber), *record)
	return nil
}

// BestEffort degrades any cache failure to a miss so a cache-store outage
// can never block verification.
type BestEffort struct {
	inner  Cache
	logger *slog.Logger
}

// NewBestEffort wraps inner with miss-on-failure semantics.
func NewBestEffort(inner Cache, logger *slog.Logger) *BestEffort {
	return &BestEffort{inner: inner, logger: logger}
}

func (c *BestEffort) Get(ctx context.Context, institution, regNumber string) (*models.StudentRecord, error) {
	record, err := c.inner.Get(ctx, institution, regNumber)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		cacheErrorsTotal.Inc()
		c.warn(ctx, "cache get failed, treating as miss", err)
	}
	return nil, sentinel.ErrNotFound
}

func (c *BestEffort) Put(ctx context.Context, institution, regNumber string, record *models.StudentRecord) error {
	if err := c.inner.Put(ctx, institution, regNumber, record); err != nil {
		cacheErrorsTotal.Inc()
		c.warn(ctx, "cache put failed, continuing without cache", err)
	}
	return nil
}

func (c *BestEffort) warn(ctx context.Context, msg string, err error) {
	if c.logger != nil {
		c.logger.WarnContext(ctx, msg, "error", err)
	}
}
