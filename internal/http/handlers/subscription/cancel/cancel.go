// Package cancel реализует HTTP-обработчик отмены действующей подписки.
package cancel

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
	"github.com/magabrotheeeer/beatstore/internal/services/subscription"
)

// Service отменяет подписку.
type Service interface {
	Cancel(ctx context.Context, userID string) error
}

// Handler обрабатывает POST /subscriptions/cancel.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP отменяет действующую подписку пользователя.
//
// @Summary      Отмена подписки
// @Tags         subscriptions
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response
// @Failure      404 {object} response.ErrorResponse
// @Router       /subscriptions/cancel [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.cancel"

	userID := middlewarectx.GetUserID(r.Context())
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("user_id", userID),
	)

	err := h.service.Cancel(r.Context(), userID)
	if errors.Is(err, subscription.ErrNoActiveSubscription) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.ErrorWithCode(response.CodeNotFound, "no active subscription", nil))
		return
	}
	if err != nil {
		log.Error("failed to cancel subscription", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.ErrorWithCode(response.CodeInternal, "could not cancel subscription", nil))
		return
	}

	log.Info("subscription cancelled")
	render.JSON(w, r, response.OKWithData(map[string]any{
		"message": "subscription cancelled",
	}))
}
