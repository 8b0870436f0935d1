package current

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/beatstore/internal/http/middlewarectx"
	"github.com/magabrotheeeer/beatstore/internal/models"
	"github.com/magabrotheeeer/beatstore/internal/services/subscription"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Current(ctx context.Context, userID string) (*models.Subscription, error) {
	args := m.Called(ctx, userID)
	if res := args.Get(0); res != nil {
		return res.(*models.Subscription), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestCurrentHandler(t *testing.T) {
	tests := []struct {
		name           string
		result         *models.Subscription
		err            error
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "есть подписка",
			result:         &models.Subscription{ID: "sub-1", TierID: "basic", Status: models.StatusActive},
			expectedStatus: http.StatusOK,
			expectedBody:   `"tier_id":"basic"`,
		},
		{
			name:           "нет подписки",
			err:            fmt.Errorf("op: %w", subscription.ErrNotFound),
			expectedStatus: http.StatusNotFound,
			expectedBody:   `"code":"not_found"`,
		},
		{
			name:           "ошибка сервиса",
			err:            errors.New("db down"),
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   "could not read subscription",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			svc.On("Current", mock.Anything, "u1").Return(tt.result, tt.err).Once()

			req := httptest.NewRequest(http.MethodGet, "/subscriptions/current", nil)
			req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserID, "u1"))
			w := httptest.NewRecorder()
			New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
		})
	}
}
