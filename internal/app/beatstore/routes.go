package beatstore

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/beatstore/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/beatstore/internal/http/handlers/auth/register"
	beatcreate "github.com/magabrotheeeer/beatstore/internal/http/handlers/beat/create"
	beatread "github.com/magabrotheeeer/beatstore/internal/http/handlers/beat/read"
	downloadcreate "github.com/magabrotheeeer/beatstore/internal/http/handlers/download/create"
	downloadstatus "github.com/magabrotheeeer/beatstore/internal/http/handlers/download/status"
	"github.com/magabrotheeeer/beatstore/internal/http/handlers/health"
	subcancel "github.com/magabrotheeeer/beatstore/internal/http/handlers/subscription/cancel"
	subcreate "github.com/magabrotheeeer/beatstore/internal/http/handlers/subscription/create"
	subcurrent "github.com/magabrotheeeer/beatstore/internal/http/handlers/subscription/current"
	"github.com/magabrotheeeer/beatstore/internal/http/handlers/subscription/webhook"
	"github.com/magabrotheeeer/beatstore/internal/http/handlers/tiers"
	"github.com/magabrotheeeer/beatstore/internal/http/middlewarectx"
	"github.com/magabrotheeeer/beatstore/internal/metrics"
	authservice "github.com/magabrotheeeer/beatstore/internal/services/auth"
	beatservice "github.com/magabrotheeeer/beatstore/internal/services/beat"
	downloadservice "github.com/magabrotheeeer/beatstore/internal/services/download"
	subservice "github.com/magabrotheeeer/beatstore/internal/services/subscription"
)

// Services — всё, что нужно маршрутам.
type Services struct {
	Auth          *authservice.Service
	Beats         *beatservice.Service
	Subscriptions *subservice.Service
	Downloads     *downloadservice.Service
	Metrics       *metrics.Metrics
	Limiter       *middlewarectx.RateLimiter
	Pingers       map[string]health.Pinger
	WebhookSecret string
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, s Services) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		s.Metrics.Middleware,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/register", register.New(logger, s.Auth).ServeHTTP)
		r.Post("/login", login.New(logger, s.Auth).ServeHTTP)
		r.Get("/tiers", tiers.New(logger, s.Subscriptions).ServeHTTP)
		r.Get("/health", health.New(logger, s.Pingers).ServeHTTP)

		// Webhook платёжного провайдера, подпись проверяется в обработчике
		r.Post("/subscriptions/webhook", webhook.New(logger, s.Subscriptions, s.WebhookSecret).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(s.Auth, logger))
			r.Use(middlewarectx.RateLimitMiddleware(s.Limiter, logger))

			r.Get("/downloads/status", downloadstatus.New(logger, s.Downloads).ServeHTTP)
			r.Post("/downloads", downloadcreate.New(logger, s.Downloads).ServeHTTP)
			r.Post("/subscriptions", subcreate.New(logger, s.Subscriptions).ServeHTTP)
			r.Get("/subscriptions/current", subcurrent.New(logger, s.Subscriptions).ServeHTTP)
			r.Post("/subscriptions/cancel", subcancel.New(logger, s.Subscriptions).ServeHTTP)
			r.Get("/beats/{id}", beatread.New(logger, s.Beats).ServeHTTP)

			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.AdminOnly(logger))
				r.Post("/admin/beats", beatcreate.New(logger, s.Beats).ServeHTTP)
			})
		})
	})

	r.Handle("/metrics", s.Metrics.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
