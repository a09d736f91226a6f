// Command server runs the verification engine: the public verify endpoint,
// the admin surface, and the optional periodic re-verification job.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"enrollgate/internal/audit"
	audithandler "enrollgate/internal/audit/handler"
	auditstore "enrollgate/internal/audit/store"
	"enrollgate/internal/batch"
	"enrollgate/internal/lookup"
	"enrollgate/internal/lookup/auth"
	"enrollgate/internal/platform/config"
	"enrollgate/internal/platform/httpserver"
	"enrollgate/internal/platform/logger"
	platformredis "enrollgate/internal/platform/redis"
	providerhandler "enrollgate/internal/provider/handler"
	providerservice "enrollgate/internal/provider/service"
	providerstore "enrollgate/internal/provider/store"
	httptransport "enrollgate/internal/transport/http"
	"enrollgate/internal/verification"
	"enrollgate/internal/verification/cache"
	verifyhandler "enrollgate/internal/verification/handler"
	"enrollgate/internal/verification/metrics"
	"enrollgate/internal/verification/policy"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "enrollgate: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		db             *sql.DB
		configStore    providerservice.Store
		trail          audit.Store
		healthCheckers []httptransport.HealthChecker
	)
	if cfg.DatabaseURL != "" {
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("database ping failed: %w", err)
		}
		configStore = providerstore.NewPostgresStore(db)
		trail = auditstore.NewPostgresStore(db)
		healthCheckers = append(healthCheckers, dbHealth{db})
		log.Info("using postgres stores")
	} else {
		configStore = providerstore.NewInMemoryStore()
		trail = auditstore.NewInMemoryStore()
		log.Info("using in-memory stores")
	}

	var recordCache cache.Cache
	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		recordCache = cache.NewRedis(redisClient.Client, cfg.CacheTTL)
		healthCheckers = append(healthCheckers, redisClient)
		log.Info("using redis verification cache")
	} else {
		recordCache = cache.NewInMemory(cfg.CacheMaxEntries, cfg.CacheTTL)
	}

	providerSvc, err := providerservice.New(configStore, providerservice.WithLogger(log))
	if err != nil {
		return err
	}

	strategies := auth.NewFactory(auth.EnvSecretResolver, &http.Client{})
	client := lookup.NewHTTPClient(&http.Client{}, strategies, lookup.WithLogger(log))
	publisher := audit.NewPublisher(trail)

	verifySvc, err := verification.New(configStore, client, publisher,
		verification.WithCache(recordCache),
		verification.WithPolicy(policy.New(cfg.ScoreThreshold)),
		verification.WithMetrics(metrics.New()),
		verification.WithLogger(log),
	)
	if err != nil {
		return err
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Verify:         verifyhandler.New(verifySvc, log),
		Provider:       providerhandler.New(providerSvc, log),
		Audit:          audithandler.New(publisher, log),
		AdminToken:     cfg.AdminToken,
		HealthCheckers: healthCheckers,
		Logger:         log,
	})
	if cfg.AdminToken == "" {
		log.Warn("admin token not set; admin surface disabled")
	}

	if cfg.Batch.Interval > 0 {
		runner, err := batch.NewRunner(verifySvc, trail, providerSvc,
			batch.WithConcurrency(cfg.Batch.Concurrency),
			batch.WithProviderInterval(cfg.Batch.ProviderInterval),
			batch.WithLogger(log),
		)
		if err != nil {
			return err
		}
		go runBatchLoop(ctx, runner, cfg.Batch, log)
	}

	srv := httpserver.New(cfg, router)
	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("server stopped")
	return nil
}

func runBatchLoop(ctx context.Context, runner *batch.Runner, cfg config.Batch, log *slog.Logger) {
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := runner.Run(ctx, time.Now().Add(-cfg.Lookback)); err != nil && !errors.Is(err, context.Canceled) {
				log.ErrorContext(ctx, "re-verification run failed", "error", err)
			}
		}
	}
}

// dbHealth adapts *sql.DB to the router's health checker.
type dbHealth struct{ db *sql.DB }

func (h dbHealth) Health(ctx context.Context) error {
	return h.db.PingContext(ctx)
}
