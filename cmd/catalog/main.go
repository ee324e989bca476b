package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-saga-orders/internal/catalog"
	"github.com/ariefcatur/go-saga-orders/internal/config"
	"github.com/ariefcatur/go-saga-orders/internal/httpx"
	"github.com/ariefcatur/go-saga-orders/internal/logx"
	"github.com/ariefcatur/go-saga-orders/internal/observability"
	"github.com/ariefcatur/go-saga-orders/internal/postgres"
	"github.com/ariefcatur/go-saga-orders/internal/redisx"
	"github.com/ariefcatur/go-saga-orders/internal/sqlite"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load("catalog-service")
	log := logx.New(cfg.ServiceName, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.ServiceName, cfg.OtelEndpoint)
	if err != nil {
		log.Fatal("tracing setup", zap.Error(err))
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal("inventory store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer closeStore()

	// Redis only backs the product list cache; the service runs without it.
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		if rdb, err = redisx.New(ctx, cfg.RedisAddr); err != nil {
			log.Warn("redis unavailable, product list cache disabled", zap.Error(err))
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	svc := catalog.NewService(store, rdb, log)
	if cfg.SeedOnStart {
		if err := svc.Seed(ctx); err != nil {
			log.Fatal("seed catalog", zap.Error(err))
		}
	}

	router := httpx.NewRouter(log)
	router.Route("/api/v1", (&httpx.CatalogHandler{Svc: svc, Log: log}).Register)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpx.Traced(router, cfg.ServiceName),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}
	if err := shutdownTracing(ctx2); err != nil {
		log.Error("tracing shutdown", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg config.Config) (catalog.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := sqlite.Migrate(ctx, db, catalog.SQLiteSchema); err != nil {
			db.Close()
			return nil, nil, err
		}
		return &catalog.SQLiteRepo{DB: db}, func() { db.Close() }, nil
	default:
		pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(ctx, pool, catalog.PostgresSchema); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return &catalog.Repo{DB: pool}, pool.Close, nil
	}
}
