package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/ratingportal/internal/auth"
	"github.com/geocoder89/ratingportal/internal/config"
	"github.com/geocoder89/ratingportal/internal/db"
	httpx "github.com/geocoder89/ratingportal/internal/http"
	"github.com/geocoder89/ratingportal/internal/http/handlers"
	"github.com/geocoder89/ratingportal/internal/observability"
	"github.com/geocoder89/ratingportal/internal/redisclient"
	"github.com/geocoder89/ratingportal/internal/repo/postgres"
	"github.com/geocoder89/ratingportal/internal/security"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx := context.Background()

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracingConfig{
		ServiceName: "ratingportal-api",
		Environment: cfg.Env,
		Endpoint:    cfg.OTLPEndpoint,
		SampleRatio: cfg.OTelSampleRatio,
	})
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		tctx, cancel := config.WithTimeout(5 * time.Second)
		defer cancel()
		_ = shutdownTracer(tctx)
	}()

	pool, err := db.ConnectWithRetry(ctx, cfg.DBURL, cfg.DBConnectAttempts)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer pool.Close()

	if cfg.AutoMigrate {
		if err := db.MigrateUp(cfg.DBURL); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info("migrations applied")
	}

	prom := observability.NewProm(prometheus.DefaultRegisterer)

	users := postgres.NewUsersRepo(pool, prom)
	stores := postgres.NewStoresRepo(pool, prom)
	ratingsRepo := postgres.NewRatingsRepo(pool, prom)

	hasher, err := security.NewHasher(cfg.BcryptCost, cfg.HashWorkers)
	if err != nil {
		return fmt.Errorf("hasher: %w", err)
	}

	created, err := db.EnsureAdminUser(ctx, users, hasher, cfg)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if created {
		log.Info("admin user created", "email", cfg.AdminEmail)
	}

	ready := map[string]handlers.Pinger{"postgres": pool}

	var rdb redis.Cmdable
	if cfg.RedisAddr != "" {
		rc, err := redisclient.Connect(ctx, redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return fmt.Errorf("redis connect: %w", err)
		}
		defer rc.Close()

		rdb = rc.Raw()
		ready["redis"] = rc
	}

	router, err := httpx.NewRouter(httpx.Deps{
		Config:  cfg,
		Users:   users,
		Stores:  stores,
		Ratings: ratingsRepo,
		Hasher:  hasher,
		Tokens:  auth.NewManager(cfg.JWTSecret, cfg.JWTTTL),
		Prom:    prom,
		Redis:   rdb,
		Ready:   ready,
	})
	if err != nil {
		return fmt.Errorf("router: %w", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-stop:
	}
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		sctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(sctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")
	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}

	return nil
}
