// Package status отдаёт использование месячной квоты загрузок.
package status

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
	"github.com/magabrotheeeer/beatstore/internal/services/download"
)

// Service возвращает состояние квоты пользователя.
type Service interface {
	Status(ctx context.Context, userID string) (*download.Status, error)
}

// Handler обрабатывает GET /downloads/status.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP отдаёт тариф, использованные и оставшиеся загрузки и список битов месяца.
//
// @Summary      Статус загрузок
// @Tags         downloads
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response
// @Failure      401 {object} response.ErrorResponse
// @Router       /downloads/status [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.download.status"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	st, err := h.service.Status(r.Context(), middlewarectx.GetUserID(r.Context()))
	if errors.Is(err, download.ErrUnauthorized) {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.ErrorWithCode(response.CodeUnauthorized, "unauthorized", nil))
		return
	}
	if err != nil {
		log.Error("failed to get download status", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.ErrorWithCode(response.CodeInternal, "could not get download status", nil))
		return
	}

	render.JSON(w, r, response.OKWithData(st))
}
