package models

import "time"

// SubscriptionStatus — состояние подписки.
type SubscriptionStatus string

const (
	// StatusPending — подписка создана при оформлении, ждёт подтверждения провайдера.
	StatusPending SubscriptionStatus = "PENDING"
	// StatusActive — подписка оплачена и действует.
	StatusActive SubscriptionStatus = "ACTIVE"
	// StatusCancelled — подписка отменена пользователем.
	StatusCancelled SubscriptionStatus = "CANCELLED"
)

// Subscription — подписка пользователя на тариф.
type Subscription struct {
	ID               string             `json:"id"`
	UserID           string             `json:"user_id"`
	TierID           string             `json:"tier_id"`
	Status           SubscriptionStatus `json:"status"`
	ExternalID       *string            `json:"external_id,omitempty"` // ссылка на подписку у платёжного провайдера
	StartDate        time.Time          `json:"start_date"`
	CurrentPeriodEnd *time.Time         `json:"current_period_end,omitempty"`
	CancelledAt      *time.Time         `json:"cancelled_at,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
}

// DummySubscription — тело запроса на оформление подписки.
type DummySubscription struct {
	TierID string `json:"tier_id" validate:"required"`
}
