// Package current отдаёт последнюю подписку пользователя.
package current

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/beatstore/internal/http/middlewarectx"
	"github.com/magabrotheeeer/beatstore/internal/http/response"
	"github.com/magabrotheeeer/beatstore/internal/lib/sl"
	"github.com/magabrotheeeer/beatstore/internal/models"
	"github.com/magabrotheeeer/beatstore/internal/services/subscription"
)

// Service возвращает последнюю подписку пользователя.
type Service interface {
	Current(ctx context.Context, userID string) (*models.Subscription, error)
}

// Handler обрабатывает GET /subscriptions/current.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP отдаёт подписку в любом статусе.
//
// @Summary      Текущая подписка
// @Tags         subscriptions
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response
// @Failure      404 {object} response.ErrorResponse
// @Router       /subscriptions/current [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.current"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	sub, err := h.service.Current(r.Context(), middlewarectx.GetUserID(r.Context()))
	if errors.Is(err, subscription.ErrNotFound) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.ErrorWithCode(response.CodeNotFound, "no subscription", nil))
		return
	}
	if err != nil {
		log.Error("failed to read subscription", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.ErrorWithCode(response.CodeInternal, "could not read subscription", nil))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"subscription": sub,
	}))
}
