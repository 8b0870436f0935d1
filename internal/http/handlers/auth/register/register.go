// Package register реализует HTTP-обработчик регистрации покупателя.
package register

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/beatstore/internal/http/response"
	"github.com/magabrotheeeer/beatstore/internal/lib/sl"
	"github.com/magabrotheeeer/beatstore/internal/services/auth"
)

// Request — входные данные для регистрации
type Request struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Email    string `json:"email" validate:"required,email"`
}

// Service регистрирует пользователя и возвращает его ID.
type Service interface {
	Register(ctx context.Context, email, username, password string) (string, error)
}

// Handler обрабатывает POST /register.
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

// ServeHTTP регистрирует пользователя.
//
// @Summary      Регистрация
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body Request true "Данные пользователя"
// @Success      201 {object} response.Response
// @Failure      400 {object} response.ErrorResponse
// @Failure      409 {object} response.ErrorResponse
// @Failure      422 {object} response.ErrorResponse
// @Router       /register [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.register"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ErrorWithCode(response.CodeBadRequest, "invalid request body", nil))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Info("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	id, err := h.service.Register(r.Context(), req.Email, req.Username, req.Password)
	if errors.Is(err, auth.ErrUserExists) {
		log.Info("user already exists", slog.String("username", req.Username))
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, response.ErrorWithCode(response.CodeConflict, "user already exists", nil))
		return
	}
	if err != nil {
		log.Error("registration failed", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.ErrorWithCode(response.CodeInternal, "failed to register user", nil))
		return
	}

	log.Info("user registered", slog.String("user_id", id))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(map[string]any{
		"user_id":  id,
		"username": req.Username,
	}))
}
