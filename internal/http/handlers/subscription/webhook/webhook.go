// Package webhook принимает уведомления платёжного провайдера о подписках.
//
// Тело запроса подписывается HMAC-SHA256 общим секретом, подпись в base64
// передаётся в заголовке X-Api-Signature.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/beatstore/internal/http/response"
	"github.com/magabrotheeeer/beatstore/internal/lib/sl"
	"github.com/magabrotheeeer/beatstore/internal/services/subscription"
)

// SignatureHeader — заголовок с подписью тела запроса.
const SignatureHeader = "X-Api-Signature"

// EventActivated — оплата подписки подтверждена.
const EventActivated = "subscription.activated"

const maxBodySize = 1 << 20

// Service активирует подписку.
type Service interface {
	Activate(ctx context.Context, subscriptionID, externalID string, periodEnd time.Time) error
}

// Payload — уведомление провайдера.
type Payload struct {
	Event  string `json:"event"`
	Object struct {
		SubscriptionID   string     `json:"subscription_id"`
		ExternalID       string     `json:"external_id"`
		CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
	} `json:"object"`
}

// Handler обрабатывает POST /subscriptions/webhook.
type Handler struct {
	log           *slog.Logger
	service       Service
	webhookSecret string
}

// New создаёт Handler. Пустой secret отклоняет все уведомления.
func New(log *slog.Logger, service Service, secret string) *Handler {
	return &Handler{
		log:           log,
		service:       service,
		webhookSecret: secret,
	}
}

// Sign возвращает подпись тела для заголовка X-Api-Signature.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (h *Handler) verifySignature(body []byte, signature string) bool {
	if h.webhookSecret == "" || signature == "" {
		return false
	}
	return hmac.Equal([]byte(Sign(h.webhookSecret, body)), []byte(signature))
}

// ServeHTTP проверяет подпись и применяет событие.
//
// @Summary      Webhook платёжного провайдера
// @Tags         subscriptions
// @Accept       json
// @Produce      json
// @Param        X-Api-Signature header string true "HMAC-SHA256 тела в base64"
// @Success      200 {object} response.Response
// @Failure      401 {object} response.ErrorResponse
// @Failure      409 {object} response.ErrorResponse
// @Router       /subscriptions/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.webhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ErrorWithCode(response.CodeBadRequest, "invalid request body", nil))
		return
	}
	defer r.Body.Close()

	if !h.verifySignature(body, r.Header.Get(SignatureHeader)) {
		log.Warn("invalid or missing webhook signature")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.ErrorWithCode(response.CodeUnauthorized, "invalid signature", nil))
		return
	}

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Error("failed to unmarshal webhook payload", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ErrorWithCode(response.CodeBadRequest, "invalid request body", nil))
		return
	}

	if strings.ToLower(payload.Event) != EventActivated {
		log.Info("ignored webhook event", slog.String("event", payload.Event))
		render.JSON(w, r, response.OKWithData(map[string]any{"ignored": true}))
		return
	}
	if payload.Object.SubscriptionID == "" {
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ErrorWithCode(response.CodeValidation, "field subscription_id is a required field", nil))
		return
	}

	var periodEnd time.Time
	if payload.Object.CurrentPeriodEnd != nil {
		periodEnd = *payload.Object.CurrentPeriodEnd
	}

	err = h.service.Activate(r.Context(), payload.Object.SubscriptionID, payload.Object.ExternalID, periodEnd)
	switch {
	case errors.Is(err, subscription.ErrNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.ErrorWithCode(response.CodeNotFound, "subscription not found", nil))
		return
	case errors.Is(err, subscription.ErrInvalidTransition), errors.Is(err, subscription.ErrAlreadySubscribed):
		log.Warn("webhook rejected", sl.Err(err))
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, response.ErrorWithCode(response.CodeConflict, "subscription cannot be activated", nil))
		return
	case err != nil:
		log.Error("failed to process webhook event", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.ErrorWithCode(response.CodeInternal, "internal error", nil))
		return
	}

	log.Info("webhook processed successfully",
		slog.String("event", payload.Event),
		slog.String("subscription_id", payload.Object.SubscriptionID),
	)
	render.JSON(w, r, response.OKWithData(map[string]any{"activated": true}))
}
