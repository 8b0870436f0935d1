// Package create реализует HTTP-обработчик оформления подписки на тариф.
//
// Подписка создаётся в статусе PENDING и становится ACTIVE после
// подтверждения оплаты провайдером через webhook.
package create

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/beatstore/internal/http/middlewarectx"
	"github.com/magabrotheeeer/beatstore/internal/http/response"
	"github.com/magabrotheeeer/beatstore/internal/lib/sl"
	"github.com/magabrotheeeer/beatstore/internal/models"
	"github.com/magabrotheeeer/beatstore/internal/services/subscription"
)

// Service оформляет подписку.
type Service interface {
	Create(ctx context.Context, userID, tierID string) (*models.Subscription, error)
}

// Handler обрабатывает POST /subscriptions.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP оформляет подписку текущего пользователя.
//
// @Summary      Оформление подписки
// @Tags         subscriptions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body models.DummySubscription true "Тариф"
// @Success      201 {object} response.Response
// @Failure      409 {object} response.ErrorResponse
// @Failure      422 {object} response.ErrorResponse
// @Router       /subscriptions [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.create"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID := middlewarectx.GetUserID(r.Context())
	if userID == "" {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.ErrorWithCode(response.CodeUnauthorized, "unauthorized", nil))
		return
	}

	var req models.DummySubscription
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ErrorWithCode(response.CodeBadRequest, "invalid request body", nil))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	sub, err := h.service.Create(r.Context(), userID, req.TierID)
	switch {
	case errors.Is(err, subscription.ErrUnknownTier):
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ErrorWithCode(response.CodeValidation, "unknown tier", nil))
		return
	case errors.Is(err, subscription.ErrAlreadySubscribed):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, response.ErrorWithCode(response.CodeConflict, "user already has an active subscription", nil))
		return
	case err != nil:
		log.Error("failed to create subscription", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.ErrorWithCode(response.CodeInternal, "could not create subscription", nil))
		return
	}

	log.Info("subscription created", slog.String("subscription_id", sub.ID), slog.String("tier_id", sub.TierID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(map[string]any{
		"subscription": sub,
	}))
}
