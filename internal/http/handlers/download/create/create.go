// Package create реализует HTTP-обработчик загрузки бита по подписке.
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
	"github.com/magabrotheeeer/beatstore/internal/services/download"
	"github.com/magabrotheeeer/beatstore/internal/tier"
)

// Service выдаёт файлы бита.
type Service interface {
	Download(ctx context.Context, userID, beatID string) (*download.Manifest, error)
}

// QuotaDetails — подробности ошибки quota_exceeded.
type QuotaDetails struct {
	Used  int        `json:"used"`
	Limit tier.Quota `json:"limit" swaggertype:"integer"`
}

// Handler обрабатывает POST /downloads.
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

// ServeHTTP выдаёт ссылки на файлы бита, разрешённые тарифом.
//
// @Summary      Загрузка бита
// @Tags         downloads
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body models.DummyDownload true "Бит"
// @Success      200 {object} response.Response
// @Failure      401 {object} response.ErrorResponse
// @Failure      403 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      422 {object} response.ErrorResponse
// @Router       /downloads [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.download.create"

	userID := middlewarectx.GetUserID(r.Context())
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("user_id", userID),
	)

	var req models.DummyDownload
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

	manifest, err := h.service.Download(r.Context(), userID, req.BeatID)
	if err != nil {
		h.renderError(w, r, log, err)
		return
	}

	render.JSON(w, r, response.OKWithData(manifest))
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var quota *download.QuotaExceededError
	switch {
	case errors.Is(err, download.ErrUnauthorized):
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.ErrorWithCode(response.CodeUnauthorized, "unauthorized", nil))
	case errors.Is(err, download.ErrNoActiveSubscription):
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, response.ErrorWithCode(response.CodeForbidden, "no active subscription", nil))
	case errors.Is(err, download.ErrBeatNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.ErrorWithCode(response.CodeNotFound, "beat not found", nil))
	case errors.As(err, &quota):
		log.Info("monthly quota exceeded", slog.Int("used", quota.Used), slog.String("limit", quota.Limit.String()))
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, response.ErrorWithCode(response.CodeQuotaExceeded, "monthly download limit reached",
			QuotaDetails{Used: quota.Used, Limit: quota.Limit}))
	default:
		log.Error("failed to download beat", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.ErrorWithCode(response.CodeInternal, "internal error", nil))
	}
}
