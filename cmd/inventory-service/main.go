package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ecomshop/event-pipeline/internal/config"
	"github.com/ecomshop/event-pipeline/internal/contracts/event"
	"github.com/ecomshop/event-pipeline/internal/failstore"
	"github.com/ecomshop/event-pipeline/internal/infrastructure/postgres"
	"github.com/ecomshop/event-pipeline/internal/infrastructure/rabbitmq"
	redisstore "github.com/ecomshop/event-pipeline/internal/infrastructure/redis"
	"github.com/ecomshop/event-pipeline/internal/metrics"
	"github.com/ecomshop/event-pipeline/internal/pkg/logger"
	"github.com/ecomshop/event-pipeline/internal/retry"
	"github.com/ecomshop/event-pipeline/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	if cfg.LogLevel != "" {
		_ = os.Setenv("LOG_LEVEL", cfg.LogLevel)
	}
	if cfg.LogFormat != "" {
		_ = os.Setenv("LOG_FORMAT", cfg.LogFormat)
	}
	logger.Init()
	log := logger.Logger.With().
		Str("service", "inventory-service").
		Str("env", cfg.AppEnv).
		Logger()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Postgres ----
	dbPool, err := pgxpool.New(rootCtx, cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres pool create failed")
	}
	defer dbPool.Close()

	{
		pingCtx, cancel := context.WithTimeout(rootCtx, 5*time.Second)
		defer cancel()

		if err := dbPool.Ping(pingCtx); err != nil {
			log.Fatal().Err(err).Msg("postgres ping failed")
		}
		log.Info().Msg("postgres connected")
	}

	// ---- Redis (idempotency fence) ----
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()

	{
		pingCtx, cancel := context.WithTimeout(rootCtx, 2*time.Second)
		defer cancel()

		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Fatal().Err(err).Msg("redis ping failed")
		}
		log.Info().Msg("redis connected")
	}
	marks := redisstore.NewProcessedStore(rdb, "inventory")

	// ---- RabbitMQ ----
	mqCfg := rabbitmq.DefaultConfig(cfg.RabbitURL)
	mqCfg.Exchange = cfg.RabbitExchange
	mqCfg.DeclareExchange = cfg.DeclareTopology
	mqCfg.DeclareQueue = cfg.DeclareTopology
	mqCfg.BindQueue = cfg.DeclareTopology

	mq, err := rabbitmq.NewClient(mqCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("rabbitmq connect failed")
	}
	defer mq.Close()
	log.Info().Str("exchange", cfg.RabbitExchange).Msg("rabbitmq connected")

	backoff := retry.Config{
		MaxAttempts:  cfg.MaxAttempts,
		InitialDelay: cfg.InitialDelay,
		MaxDelay:     cfg.MaxDelay,
	}

	var failures rabbitmq.FailureStore
	if cfg.PublishFailurePath != "" {
		failures = failstore.NewFile(cfg.PublishFailurePath)
	} else {
		failures = failstore.NewLog()
	}
	publisher := rabbitmq.NewPublisher(mq.Channel(), mq.Config(), failures)
	publisher.SetBackoff(backoff)

	consumer := rabbitmq.NewConsumer(mq.Channel(), mq.Config())
	consumer.SetBackoff(backoff)

	handler := service.NewInventoryHandler(postgres.NewInventoryStore(dbPool), marks, publisher)
	handler.StrictStock = cfg.StrictStock

	// ---- Ops endpoints ----
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	opsSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Int("port", cfg.Port).Msg("ops server starting")
		if err := opsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("ops server crashed")
		}
	}()

	// ---- Consume loop (blocks until shutdown) ----
	log.Info().Str("routing_key", event.OrderCreated).Msg("consumer starting")
	if err := consumer.Consume(rootCtx, event.OrderCreated, handler.Handle,
		rabbitmq.WithMaxAttempts(cfg.MaxAttempts)); err != nil && rootCtx.Err() == nil {
		log.Error().Err(err).Msg("consumer stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()
	_ = opsSrv.Shutdown(shutdownCtx)
	log.Info().Msg("shutdown complete")
}
