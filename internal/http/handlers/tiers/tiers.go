// Package tiers отдаёт каталог тарифов подписки.
package tiers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/beatstore/internal/http/response"
	"github.com/magabrotheeeer/beatstore/internal/tier"
)

// Service возвращает тарифы.
type Service interface {
	Tiers() []tier.Tier
}

// Handler обрабатывает GET /tiers.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP отдаёт тарифы от дешёвого к дорогому.
//
// @Summary      Тарифы подписки
// @Tags         subscriptions
// @Produce      json
// @Success      200 {object} response.Response
// @Router       /tiers [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, response.OKWithData(map[string]any{
		"tiers": h.service.Tiers(),
	}))
}
