package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/actuallystonmai/course-recommender/internal/cache"
	"github.com/actuallystonmai/course-recommender/internal/config"
	"github.com/actuallystonmai/course-recommender/internal/handler"
	"github.com/actuallystonmai/course-recommender/internal/llm"
	"github.com/actuallystonmai/course-recommender/internal/logger"
	"github.com/actuallystonmai/course-recommender/internal/repository"
	"github.com/actuallystonmai/course-recommender/internal/router"
	"github.com/actuallystonmai/course-recommender/internal/service"
	"github.com/actuallystonmai/course-recommender/internal/tracing"
	"github.com/actuallystonmai/course-recommender/seeds"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ------------ Tracing ---------------
	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		Enabled:     cfg.OtelEnabled,
		Endpoint:    cfg.OtelEndpoint,
		SampleRatio: cfg.OtelSampleRatio,
	}, log)
	if err != nil {
		log.Fatal("failed to init tracing", "error", err)
	}

	// ------------ PostgreSQL ---------------
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to parse database config", "error", err)
	}
	poolConfig.MaxConns = int32(cfg.DBPoolSize)
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}
	defer pool.Close()

	if err := waitForDB(ctx, pool, log); err != nil {
		log.Fatal("database not ready", "error", err)
	}
	log.Info("connected to PostgreSQL")

	// ------------ Run Migrations ---------------
	// for migrate-down using CLI command
	if len(os.Args) > 1 && os.Args[1] == "migrate-down" {
		if err := runMigration(ctx, pool, "migrations/create_tables.down.sql"); err != nil {
			log.Fatal("failed to migrate down", "error", err)
		}
		log.Info("migrations dropped")
		return
	}

	if err := runMigration(ctx, pool, "migrations/create_tables.up.sql"); err != nil {
		log.Fatal("failed to migrate up", "error", err)
	}
	log.Info("migrations applied")

	// ------------ Redis ---------------
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal("failed to parse redis url", "error", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()
	categoryCache := cache.NewCache(rdb, cfg.CategoryCacheTTL)
	if err := categoryCache.Ping(ctx); err != nil {
		log.Warn("redis unavailable, categories will be read from the database", "error", err)
	}

	// ------------ Setup Seed Data ---------------
	if cfg.Seed {
		seeded, err := checkSeed(ctx, pool, log)
		if err != nil {
			log.Fatal("failed to seed catalog", "error", err)
		}
		if seeded {
			if err := categoryCache.InvalidateCategories(ctx); err != nil {
				log.Warn("failed to invalidate category cache", "error", err)
			}
		}
	}

	// ------------ Pipeline ---------------
	repo := repository.NewRepository(pool)
	completer := llm.NewClient(cfg.LLM, log.With("component", "llm"))
	svc := service.NewService(
		service.NewCategoryService(repo, categoryCache, log),
		service.NewFilterInferenceService(completer, log),
		service.NewCourseRetrievalService(repo, nil, log),
		service.NewCourseRankingService(completer, log),
		cfg.BatchConcurrency,
		log.With("component", "service"),
	)

	h := handler.NewHandler(svc, map[string]handler.Pinger{
		"postgres": pool,
		"redis":    categoryCache,
	}, log)

	// ---------------- Server --------------------
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router.Setup(h, log, router.Options{RequestTimeout: cfg.RequestTimeout, RateLimitPerMin: cfg.RateLimitPerMin}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server running", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown failed", "error", err)
	}
}

func waitForDB(ctx context.Context, pool *pgxpool.Pool, log *logger.Logger) error {
	for i := 0; i < 30; i++ {
		if err := pool.Ping(ctx); err == nil {
			return nil
		}
		log.Info("waiting for database", "attempt", i+1, "max", 30)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return fmt.Errorf("database connection timeout after 30s")
}

func runMigration(ctx context.Context, pool *pgxpool.Pool, path string) error {
	sql, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read migration file: %w", err)
	}
	if _, err := pool.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("execute migration: %w", err)
	}
	return nil
}

// checkSeed seeds an empty catalog and reports whether it did.
func checkSeed(ctx context.Context, pool *pgxpool.Pool, log *logger.Logger) (bool, error) {
	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM courses").Scan(&count); err != nil {
		return false, fmt.Errorf("check courses count: %w", err)
	}
	if count > 0 {
		log.Info("database already seeded, skipping", "courses", count)
		return false, nil
	}
	if err := seeds.Setup(ctx, pool, log.With("component", "seed")); err != nil {
		return false, err
	}
	return true, nil
}
