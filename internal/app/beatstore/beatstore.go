// Package beatstore собирает HTTP API магазина битов и gRPC health-сервер.
package beatstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/magabrotheeeer/beatstore/internal/analytics"
	"github.com/magabrotheeeer/beatstore/internal/cache"
	"github.com/magabrotheeeer/beatstore/internal/config"
	healthhandler "github.com/magabrotheeeer/beatstore/internal/http/handlers/health"
	"github.com/magabrotheeeer/beatstore/internal/http/middlewarectx"
	"github.com/magabrotheeeer/beatstore/internal/ledger"
	"github.com/magabrotheeeer/beatstore/internal/lib/jwt"
	"github.com/magabrotheeeer/beatstore/internal/lib/sl"
	"github.com/magabrotheeeer/beatstore/internal/metrics"
	"github.com/magabrotheeeer/beatstore/internal/migrations"
	"github.com/magabrotheeeer/beatstore/internal/rabbitmq"
	authservice "github.com/magabrotheeeer/beatstore/internal/services/auth"
	beatservice "github.com/magabrotheeeer/beatstore/internal/services/beat"
	downloadservice "github.com/magabrotheeeer/beatstore/internal/services/download"
	subservice "github.com/magabrotheeeer/beatstore/internal/services/subscription"
	"github.com/magabrotheeeer/beatstore/internal/storage"
)

const shutdownTimeout = 15 * time.Second

// App — запущенный магазин: HTTP API, gRPC health и их зависимости.
type App struct {
	server     *http.Server
	grpcServer *grpc.Server
	health     *health.Server
	listener   net.Listener
	logger     *slog.Logger
	db         *storage.Storage
	cache      *cache.Cache
	amqpConn   *amqp.Connection
	amqpCh     *amqp.Channel
}

// New подключает зависимости, применяет миграции и собирает маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.beatstore.New"

	catalog, err := cfg.Billing.Catalog()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	loc, err := cfg.Billing.Location()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a := &App{logger: logger, db: db}

	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		a.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	a.cache, err = cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	counter, err := a.analyticsCounter(cfg.RabbitMQ)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	m := metrics.New()
	beats := beatservice.New(db, a.cache, cfg.BeatTTL, logger)
	subs := subservice.New(db, catalog, logger)
	downloads := downloadservice.New(downloadservice.Deps{
		Subscriptions: db,
		Beats:         beats,
		Ledger:        ledger.New(db, loc),
		Catalog:       catalog,
		Counter:       counter,
		Metrics:       m,
		Log:           logger,
	})

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Services{
		Auth:          authservice.New(db, jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)),
		Beats:         beats,
		Subscriptions: subs,
		Downloads:     downloads,
		Metrics:       m,
		Limiter:       middlewarectx.NewRateLimiter(cfg.RateLimit, cfg.RateBurst),
		Pingers: map[string]healthhandler.Pinger{
			"postgres": db,
			"redis":    a.cache,
		},
		WebhookSecret: cfg.WebhookSecret,
	})
	if cfg.WebhookSecret == "" {
		logger.Warn("webhook secret is empty, provider webhooks will be rejected")
	}

	a.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	a.listener, err = net.Listen("tcp", cfg.GRPCAddress)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a.grpcServer = grpc.NewServer()
	a.health = health.NewServer()
	grpc_health_v1.RegisterHealthServer(a.grpcServer, a.health)

	return a, nil
}

// analyticsCounter выбирает способ учёта загрузок: через RabbitMQ или напрямую в базе.
func (a *App) analyticsCounter(cfg config.RabbitMQ) (analytics.Counter, error) {
	if cfg.URL == "" {
		a.logger.Info("rabbitmq is not configured, counting downloads directly")
		return analytics.NewDirectCounter(a.db), nil
	}

	conn, err := rabbitmq.Connect(cfg.URL, cfg.Retries, cfg.RetryDelay)
	if err != nil {
		return nil, err
	}
	a.amqpConn = conn

	ch, err := rabbitmq.SetupChannel(conn, analytics.Exchange, analytics.Queues)
	if err != nil {
		return nil, err
	}
	a.amqpCh = ch
	return analytics.NewPublisher(ch), nil
}

// Run обслуживает запросы до отмены ctx, затем останавливает серверы.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()
	go func() {
		a.logger.Info("gRPC health server listening on", slog.String("address", a.listener.Addr().String()))
		a.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
		errCh <- a.grpcServer.Serve(a.listener)
	}()

	var runErr error
	select {
	case runErr = <-errCh:
	case <-ctx.Done():
	}

	timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.logger.Info("shutting down servers gracefully")
	a.health.Shutdown()
	err := a.server.Shutdown(timeoutCtx)
	a.grpcServer.GracefulStop()
	a.close()

	if runErr != nil {
		return runErr
	}
	return err
}

func (a *App) close() {
	if a.amqpCh != nil {
		if err := a.amqpCh.Close(); err != nil {
			a.logger.Warn("failed to close amqp channel", sl.Err(err))
		}
	}
	if a.amqpConn != nil {
		if err := a.amqpConn.Close(); err != nil {
			a.logger.Warn("failed to close amqp connection", sl.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("failed to close redis", sl.Err(err))
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("failed to close database", sl.Err(err))
	}
}
