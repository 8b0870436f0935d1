// Package create добавляет бит в каталог. Доступен только администратору.
package create

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/beatstore/internal/http/response"
	"github.com/magabrotheeeer/beatstore/internal/lib/sl"
	"github.com/magabrotheeeer/beatstore/internal/models"
)

// Service сохраняет новый бит.
type Service interface {
	Create(ctx context.Context, req models.DummyBeat) (string, error)
}

// Handler обрабатывает POST /admin/beats.
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

// ServeHTTP добавляет бит.
//
// @Summary      Добавление бита
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body models.DummyBeat true "Бит"
// @Success      201 {object} response.Response
// @Failure      400 {object} response.ErrorResponse
// @Failure      403 {object} response.ErrorResponse
// @Failure      422 {object} response.ErrorResponse
// @Router       /admin/beats [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.beat.create"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyBeat
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

	id, err := h.service.Create(r.Context(), req)
	if err != nil {
		log.Error("failed to create beat", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.ErrorWithCode(response.CodeInternal, "could not create beat", nil))
		return
	}
	log.Info("beat created", slog.String("beat_id", id))

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(map[string]any{
		"id": id,
	}))
}
