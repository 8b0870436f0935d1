// Package login реализует HTTP-обработчик входа и выдачи JWT.
package login

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

// Request — входные данные для входа
type Request struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Service проверяет учётные данные и выдаёт токен.
type Service interface {
	Login(ctx context.Context, username, password string) (string, error)
}

// Handler обрабатывает POST /login.
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

// ServeHTTP выдаёт токен доступа.
//
// @Summary      Вход
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body Request true "Учётные данные"
// @Success      200 {object} response.Response
// @Failure      401 {object} response.ErrorResponse
// @Router       /login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.login"

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
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	token, err := h.service.Login(r.Context(), req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		log.Info("invalid credentials", slog.String("username", req.Username))
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.ErrorWithCode(response.CodeUnauthorized, "invalid username or password", nil))
		return
	}
	if err != nil {
		log.Error("login failed", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.ErrorWithCode(response.CodeInternal, "internal error", nil))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"token": token,
	}))
}
