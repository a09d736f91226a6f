// Package config builds runtime configuration from the environment so main
// stays lean. Defaults favor a self-contained development setup: in-memory
// stores and cache unless DATABASE_URL / REDIS_URL say otherwise.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config captures everything the server binary needs at startup.
type Config struct {
	Addr string

	// AdminToken guards the /admin surface. Empty disables admin routes
	// entirely rather than leaving them open.
	AdminToken string

	// DatabaseURL selects PostgreSQL-backed stores when set.
	DatabaseURL string

	Redis Redis

	// HTTP bounds slow clients on the listening socket.
	HTTP HTTPTimeouts

	// ScoreThreshold is the auto-verify cutoff. Zero selects the engine
	// default.
	ScoreThreshold int

	// CacheTTL bounds how long successful lookups are reused.
	CacheTTL time.Duration

	// CacheMaxEntries caps the in-memory cache. Ignored for Redis.
	CacheMaxEntries int

	// Batch controls the re-verification worker pool.
	Batch Batch
}

// Redis captures cache-backend connection settings.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// HTTPTimeouts bounds request reads, response writes, and idle keep-alive
// connections on the public listener.
type HTTPTimeouts struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Batch controls the retroactive re-verification job.
type Batch struct {
	Concurrency int
	// ProviderInterval spaces lookups against a single institution so a
	// backfill never floods one provider.
	ProviderInterval time.Duration
	// Interval schedules periodic runs. Zero disables the job.
	Interval time.Duration
	// Lookback is how far back each run scans the audit trail.
	Lookback time.Duration
}

// FromEnv reads configuration from environment variables, applying defaults
// for anything unset.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr:            envOr("ENROLLGATE_ADDR", ":8080"),
		AdminToken:      os.Getenv("ENROLLGATE_ADMIN_TOKEN"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		ScoreThreshold:  0,
		CacheTTL:        5 * time.Minute,
		CacheMaxEntries: 4096,
		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		HTTP: HTTPTimeouts{
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Batch: Batch{
			Concurrency:      4,
			ProviderInterval: time.Second,
			Interval:         0,
			Lookback:         24 * time.Hour,
		},
	}

	var err error
	if cfg.ScoreThreshold, err = envInt("ENROLLGATE_SCORE_THRESHOLD", cfg.ScoreThreshold); err != nil {
		return Config{}, err
	}
	if cfg.CacheMaxEntries, err = envInt("ENROLLGATE_CACHE_MAX_ENTRIES", cfg.CacheMaxEntries); err != nil {
		return Config{}, err
	}
	if cfg.CacheTTL, err = envDuration("ENROLLGATE_CACHE_TTL", cfg.CacheTTL); err != nil {
		return Config{}, err
	}
	if cfg.HTTP.ReadTimeout, err = envDuration("ENROLLGATE_HTTP_READ_TIMEOUT", cfg.HTTP.ReadTimeout); err != nil {
		return Config{}, err
	}
	if cfg.HTTP.WriteTimeout, err = envDuration("ENROLLGATE_HTTP_WRITE_TIMEOUT", cfg.HTTP.WriteTimeout); err != nil {
		return Config{}, err
	}
	if cfg.HTTP.IdleTimeout, err = envDuration("ENROLLGATE_HTTP_IDLE_TIMEOUT", cfg.HTTP.IdleTimeout); err != nil {
		return Config{}, err
	}
	if cfg.Batch.Concurrency, err = envInt("ENROLLGATE_BATCH_CONCURRENCY", cfg.Batch.Concurrency); err != nil {
		return Config{}, err
	}
	if cfg.Batch.ProviderInterval, err = envDuration("ENROLLGATE_BATCH_PROVIDER_INTERVAL", cfg.Batch.ProviderInterval); err != nil {
		return Config{}, err
	}
	if cfg.Batch.Interval, err = envDuration("ENROLLGATE_BATCH_INTERVAL", cfg.Batch.Interval); err != nil {
		return Config{}, err
	}
	if cfg.Batch.Lookback, err = envDuration("ENROLLGATE_BATCH_LOOKBACK", cfg.Batch.Lookback); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
