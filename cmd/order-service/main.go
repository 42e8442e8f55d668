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
	"github.com/ecomshop/event-pipeline/internal/failstore"
	"github.com/ecomshop/event-pipeline/internal/infrastructure/postgres"
	"github.com/ecomshop/event-pipeline/internal/infrastructure/rabbitmq"
	"github.com/ecomshop/event-pipeline/internal/pkg/logger"
	"github.com/ecomshop/event-pipeline/internal/retry"
	"github.com/ecomshop/event-pipeline/internal/service"
	"github.com/ecomshop/event-pipeline/internal/transport/rest"
	"github.com/jackc/pgx/v5/pgxpool"
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
		Str("service", "order-service").
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

	var failures rabbitmq.FailureStore
	if cfg.PublishFailurePath != "" {
		failures = failstore.NewFile(cfg.PublishFailurePath)
	} else {
		failures = failstore.NewLog()
	}

	publisher := rabbitmq.NewPublisher(mq.Channel(), mq.Config(), failures)
	publisher.SetBackoff(retry.Config{
		MaxAttempts:  cfg.MaxAttempts,
		InitialDelay: cfg.InitialDelay,
		MaxDelay:     cfg.MaxDelay,
	})

	// ---- Application service ----
	svc := service.NewOrderService(postgres.NewOrderStore(dbPool), publisher)
	httpHandler := rest.NewRouter(rest.NewHandler(svc))

	// ---- HTTP server ----
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Port).Msg("http server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-rootCtx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("http server crashed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info().Msg("shutdown complete")
}
