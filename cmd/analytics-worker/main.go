// Package main запускает воркер, который считает загрузки битов из очереди RabbitMQ.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/magabrotheeeer/beatstore/internal/analytics"
	"github.com/magabrotheeeer/beatstore/internal/config"
	"github.com/magabrotheeeer/beatstore/internal/lib/sl"
	"github.com/magabrotheeeer/beatstore/internal/rabbitmq"
	"github.com/magabrotheeeer/beatstore/internal/storage"
)

const handleTimeout = 5 * time.Second

func main() {
	cfg := config.MustLoad()
	logger := sl.New(cfg.Env, os.Stdout)

	logger.Info("starting analytics-worker", slog.String("env", cfg.Env))
	if cfg.RabbitMQ.URL == "" {
		logger.Error("rabbitmq url is not set")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		logger.Error("failed to connect to database", sl.Err(err))
		os.Exit(1)
	}
	defer db.Close()

	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.Retries, cfg.RetryDelay)
	if err != nil {
		logger.Error("failed to connect to rabbitmq", sl.Err(err))
		os.Exit(1)
	}
	defer conn.Close()

	ch, err := rabbitmq.SetupChannel(conn, analytics.Exchange, analytics.Queues)
	if err != nil {
		logger.Error("failed to setup rabbitmq channel", sl.Err(err))
		os.Exit(1)
	}
	defer ch.Close()

	worker := analytics.NewWorker(logger, db, handleTimeout)
	if err := rabbitmq.ConsumerMessage(ctx, logger, ch, analytics.Queue, worker.Handle); err != nil {
		logger.Error("failed to start consumer", sl.Err(err))
		os.Exit(1)
	}
	logger.Info("consuming", slog.String("queue", analytics.Queue))

	<-ctx.Done()

	logger.Info("analytics-worker stopped gracefully")
}
