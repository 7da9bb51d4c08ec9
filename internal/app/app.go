package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/anziyang2000/hq-code-sub003/internal/api"
	"github.com/anziyang2000/hq-code-sub003/internal/api/middleware"
	"github.com/anziyang2000/hq-code-sub003/internal/config"
	"github.com/anziyang2000/hq-code-sub003/internal/db"
	"github.com/anziyang2000/hq-code-sub003/internal/events"
	"github.com/anziyang2000/hq-code-sub003/internal/idempotency"
	"github.com/anziyang2000/hq-code-sub003/internal/ledger"
	"github.com/anziyang2000/hq-code-sub003/internal/ledger/mongostore"
	"github.com/anziyang2000/hq-code-sub003/internal/ledger/redisstore"
	"github.com/anziyang2000/hq-code-sub003/internal/observability"
	"github.com/anziyang2000/hq-code-sub003/internal/repository"
	"github.com/anziyang2000/hq-code-sub003/internal/serial"
	"github.com/anziyang2000/hq-code-sub003/internal/service"
	"github.com/anziyang2000/hq-code-sub003/internal/worker"
)

// Run bootstraps the ledger, the HTTP server and the background workers,
// blocking until shutdown.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	observability.Init()
	middleware.SetJWTSecret(cfg.JWTSecret)
	middleware.SetJWTValidation(cfg.JWTIssuer, cfg.JWTAudience)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var redisClient *redis.Client
	if cfg.NeedsRedis() {
		redisClient, err = newRedisClient(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisClient.Close()
	}

	store, closeStore, err := openStore(ctx, cfg, redisClient)
	if err != nil {
		return err
	}
	defer closeStore()
	logger.Info("ledger store ready", zap.String("backend", cfg.StoreBackend))

	var serializer serial.Serializer = serial.NewLocal()
	if cfg.Serializer == config.SerializerRedis {
		serializer = serial.NewDistributed(redisClient, cfg.LedgerNamespace+":call-lock")
	}
	svc := service.NewContractService(store, serializer)

	var sink events.Sink = events.NewLogSink(logger)
	if cfg.EventSink == config.SinkRedis {
		sink = events.NewStreamSink(redisClient, cfg.EventStream)
	}
	sink = events.NewBreakerSink("event-sink", sink, 5, 30*time.Second)

	relay := worker.NewEventRelay(store, sink).
		WithPollInterval(cfg.RelayInterval).
		WithBatchSize(cfg.RelayBatchSize)
	stopRelay := relay.Run(ctx)
	logger.Info("event relay started", zap.Stringer("relay", relay))

	reconciler := worker.NewReconciliationWorker(service.NewReconciliationService(store)).
		WithInterval(cfg.ReconciliationInterval)
	stopReconciler := reconciler.Run(ctx)

	var (
		idemStore *idempotency.Store
		readiness redis.Cmdable
	)
	if redisClient != nil {
		readiness = redisClient
	}
	if cfg.IdempotencyCache == config.IdempotencyRedis {
		idemStore = idempotency.NewStore(redisClient, cfg.LedgerNamespace, cfg.IdempotencyTTL)
	}

	router := api.NewRouter(cfg, logger, svc, idemStore, readiness)

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("port", cfg.HTTPPort))
		serverErr <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}

	// Drain what the last requests committed before the relay stops.
	logger.Info("stopping workers")
	stopReconciler()
	stopRelay()
	if n, err := relay.ProcessOnce(shutdownCtx); err != nil {
		logger.Warn("final outbox drain failed", zap.Int("published", n), zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}

// openStore connects the configured ledger backend and returns a close
// func for it.
func openStore(ctx context.Context, cfg *config.Config, redisClient *redis.Client) (ledger.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreRedis:
		return redisstore.New(redisClient, cfg.LedgerNamespace), func() {}, nil
	case config.StorePostgres:
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect database: %w", err)
		}
		if err := db.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repository.NewStore(pool), pool.Close, nil
	case config.StoreMongo:
		client, err := mongostore.Connect(ctx, cfg.MongoURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongo: %w", err)
		}
		closeFn := func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(disconnectCtx); err != nil {
				zap.L().Warn("mongo disconnect failed", zap.Error(err))
			}
		}
		return mongostore.New(client, cfg.MongoDatabase, cfg.LedgerNamespace+"_ledger"), closeFn, nil
	default:
		return ledger.NewMemoryStore(), func() {}, nil
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch strings.ToLower(level) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info", "":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

func newRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
