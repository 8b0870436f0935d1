// Package read отдаёт карточку бита по ID.
package read

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/beatstore/internal/http/response"
	"github.com/magabrotheeeer/beatstore/internal/lib/sl"
	"github.com/magabrotheeeer/beatstore/internal/models"
	"github.com/magabrotheeeer/beatstore/internal/services/beat"
)

// Service возвращает бит.
type Service interface {
	Get(ctx context.Context, id string) (*models.Beat, error)
}

// Handler обрабатывает GET /beats/{id}.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP отдаёт бит.
//
// @Summary      Бит по ID
// @Tags         beats
// @Produce      json
// @Param        id path string true "ID бита"
// @Success      200 {object} response.Response
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Router       /beats/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.beat.read"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		log.Info("invalid beat id", slog.String("id", id))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ErrorWithCode(response.CodeBadRequest, "invalid beat id", nil))
		return
	}

	b, err := h.service.Get(r.Context(), id)
	if errors.Is(err, beat.ErrNotFound) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.ErrorWithCode(response.CodeNotFound, "beat not found", nil))
		return
	}
	if err != nil {
		log.Error("failed to read beat", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.ErrorWithCode(response.CodeInternal, "could not read beat", nil))
		return
	}

	render.JSON(w, r, response.OKWithData(b))
}
