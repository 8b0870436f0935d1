// Package subscription управляет жизненным циклом подписки на тариф:
// оформление (PENDING), подтверждение провайдером (ACTIVE) и отмена (CANCELLED).
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/beatstore/internal/models"
	"github.com/magabrotheeeer/beatstore/internal/storage"
	"github.com/magabrotheeeer/beatstore/internal/tier"
)

var (
	// ErrUnknownTier — тарифа нет в каталоге.
	ErrUnknownTier = errors.New("unknown tier")
	// ErrAlreadySubscribed — у пользователя уже есть действующая подписка.
	ErrAlreadySubscribed = errors.New("user already has an active subscription")
	// ErrNoActiveSubscription — действующей подписки нет.
	ErrNoActiveSubscription = errors.New("no active subscription")
	// ErrInvalidTransition — подписка не в том статусе для запрошенного перехода.
	ErrInvalidTransition = errors.New("invalid subscription status transition")
	// ErrNotFound — подписка не найдена.
	ErrNotFound = errors.New("subscription not found")
)

// Repository определяет методы для работы с подписками в хранилище.
type Repository interface {
	CreateSubscription(ctx context.Context, sub models.Subscription) (string, error)
	GetSubscription(ctx context.Context, id string) (*models.Subscription, error)
	GetActiveSubscription(ctx context.Context, userID string) (*models.Subscription, error)
	GetLatestSubscription(ctx context.Context, userID string) (*models.Subscription, error)
	// ActivateSubscription меняет только подписки PENDING и возвращает число изменённых строк.
	ActivateSubscription(ctx context.Context, id, externalID string, periodEnd time.Time) (int, error)
	// CancelSubscription меняет только подписки ACTIVE и возвращает число изменённых строк.
	CancelSubscription(ctx context.Context, id string, at time.Time) (int, error)
}

// Catalog — каталог тарифов.
type Catalog interface {
	Lookup(id string) (tier.Tier, bool)
	All() []tier.Tier
}

// Service реализует бизнес-логику работы с подписками.
type Service struct {
	repo    Repository
	catalog Catalog
	log     *slog.Logger
	now     func() time.Time
}

// New создаёт Service.
func New(repo Repository, catalog Catalog, log *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		catalog: catalog,
		log:     log,
		now:     time.Now,
	}
}

// WithClock подменяет источник времени.
func (s *Service) WithClock(now func() time.Time) *Service {
	cp := *s
	cp.now = now
	return &cp
}

// Tiers возвращает тарифы каталога.
func (s *Service) Tiers() []tier.Tier {
	return s.catalog.All()
}

// Create оформляет подписку на тариф в статусе PENDING.
func (s *Service) Create(ctx context.Context, userID, tierID string) (*models.Subscription, error) {
	const op = "services.subscription.Create"
	if _, ok := s.catalog.Lookup(tierID); !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrUnknownTier)
	}

	_, err := s.repo.GetActiveSubscription(ctx, userID)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%s: %w", op, ErrAlreadySubscribed)
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sub := models.Subscription{
		UserID:    userID,
		TierID:    tierID,
		Status:    models.StatusPending,
		StartDate: s.now().UTC(),
	}
	id, err := s.repo.CreateSubscription(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sub.ID = id
	sub.CreatedAt = sub.StartDate

	s.log.Info("subscription created",
		slog.String("op", op),
		slog.String("subscription_id", id),
		slog.String("tier_id", tierID),
	)
	return &sub, nil
}

// Activate переводит подписку из PENDING в ACTIVE после подтверждения оплаты.
// Нулевой periodEnd означает месяц от момента активации.
func (s *Service) Activate(ctx context.Context, subscriptionID, externalID string, periodEnd time.Time) error {
	const op = "services.subscription.Activate"
	if periodEnd.IsZero() {
		periodEnd = s.now().UTC().AddDate(0, 1, 0)
	}

	n, err := s.repo.ActivateSubscription(ctx, subscriptionID, externalID, periodEnd)
	if errors.Is(err, storage.ErrConflict) {
		return fmt.Errorf("%s: %w", op, ErrAlreadySubscribed)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		_, err := s.repo.GetSubscription(ctx, subscriptionID)
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return fmt.Errorf("%s: %w", op, ErrInvalidTransition)
	}

	s.log.Info("subscription activated",
		slog.String("op", op),
		slog.String("subscription_id", subscriptionID),
		slog.String("external_id", externalID),
	)
	return nil
}

// Cancel отменяет действующую подписку пользователя.
func (s *Service) Cancel(ctx context.Context, userID string) error {
	const op = "services.subscription.Cancel"
	sub, err := s.repo.GetActiveSubscription(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNoActiveSubscription)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n, err := s.repo.CancelSubscription(ctx, sub.ID, s.now().UTC())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNoActiveSubscription)
	}

	s.log.Info("subscription cancelled", slog.String("op", op), slog.String("subscription_id", sub.ID))
	return nil
}

// Current возвращает последнюю подписку пользователя в любом статусе.
func (s *Service) Current(ctx context.Context, userID string) (*models.Subscription, error) {
	const op = "services.subscription.Current"
	sub, err := s.repo.GetLatestSubscription(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}
