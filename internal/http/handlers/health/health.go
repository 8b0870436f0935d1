// Package health отвечает на проверки живости сервиса.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/beatstore/internal/http/response"
	"github.com/magabrotheeeer/beatstore/internal/lib/sl"
)

const pingTimeout = 2 * time.Second

// Pinger проверяет доступность зависимости.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler обрабатывает GET /health.
type Handler struct {
	log     *slog.Logger
	pingers map[string]Pinger
}

// New создаёт Handler. Ключ карты попадает в ответ как имя зависимости.
func New(log *slog.Logger, pingers map[string]Pinger) *Handler {
	return &Handler{log: log, pingers: pingers}
}

// ServeHTTP отвечает 200, если все зависимости доступны, иначе 503.
//
// @Summary      Проверка состояния
// @Tags         health
// @Produce      json
// @Success      200 {object} response.Response
// @Failure      503 {object} response.ErrorResponse
// @Router       /health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	failed := make(map[string]string)
	for name, p := range h.pingers {
		if err := p.Ping(ctx); err != nil {
			h.log.Warn("dependency is unavailable", slog.String("dependency", name), sl.Err(err))
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, response.ErrorWithCode(response.CodeInternal, "service unavailable", failed))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]string{"status": "ok"}))
}
