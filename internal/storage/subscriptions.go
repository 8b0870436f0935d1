package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/beatstore/internal/models"
)

const subscriptionColumns = `id, user_id, tier_id, status, external_id, start_date,
	current_period_end, cancelled_at, created_at`

func scanSubscription(row *sql.Row) (*models.Subscription, error) {
	var sub models.Subscription
	err := row.Scan(&sub.ID, &sub.UserID, &sub.TierID, &sub.Status, &sub.ExternalID,
		&sub.StartDate, &sub.CurrentPeriodEnd, &sub.CancelledAt, &sub.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// CreateSubscription вставляет подписку и возвращает её ID.
func (s *Storage) CreateSubscription(ctx context.Context, sub models.Subscription) (string, error) {
	const op = "storage.CreateSubscription"
	if err := checkCtx(ctx, op); err != nil {
		return "", err
	}

	id := uuid.NewString()
	query := `INSERT INTO subscriptions (id, user_id, tier_id, status, start_date)
			  VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.DB.ExecContext(ctx, query, id, sub.UserID, sub.TierID, string(sub.Status), sub.StartDate); err != nil {
		return "", wrap(op, err)
	}
	return id, nil
}

// GetSubscription возвращает подписку по ID.
func (s *Storage) GetSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	const op = "storage.GetSubscription"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	row := s.DB.QueryRowContext(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1`, id)
	sub, err := scanSubscription(row)
	if err != nil {
		return nil, wrap(op, err)
	}
	return sub, nil
}

// GetActiveSubscription возвращает действующую подписку пользователя.
func (s *Storage) GetActiveSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	const op = "storage.GetActiveSubscription"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE user_id = $1 AND status = $2
			  ORDER BY created_at DESC
			  LIMIT 1`
	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query, userID, string(models.StatusActive)))
	if err != nil {
		return nil, wrap(op, err)
	}
	return sub, nil
}

// GetLatestSubscription возвращает последнюю подписку пользователя в любом статусе.
func (s *Storage) GetLatestSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	const op = "storage.GetLatestSubscription"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE user_id = $1
			  ORDER BY created_at DESC
			  LIMIT 1`
	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query, userID))
	if err != nil {
		return nil, wrap(op, err)
	}
	return sub, nil
}

// ActivateSubscription переводит подписку PENDING в ACTIVE и возвращает число изменённых строк.
func (s *Storage) ActivateSubscription(ctx context.Context, id, externalID string, periodEnd time.Time) (int, error) {
	const op = "storage.ActivateSubscription"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}

	query := `UPDATE subscriptions
			  SET status = $1, external_id = $2, current_period_end = $3
			  WHERE id = $4 AND status = $5`
	res, err := s.DB.ExecContext(ctx, query, string(models.StatusActive), externalID, periodEnd, id, string(models.StatusPending))
	if err != nil {
		return 0, wrap(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, wrap(op, err)
	}
	return int(n), nil
}

// CancelSubscription переводит подписку ACTIVE в CANCELLED и возвращает число изменённых строк.
func (s *Storage) CancelSubscription(ctx context.Context, id string, at time.Time) (int, error) {
	const op = "storage.CancelSubscription"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}

	query := `UPDATE subscriptions
			  SET status = $1, cancelled_at = $2
			  WHERE id = $3 AND status = $4`
	res, err := s.DB.ExecContext(ctx, query, string(models.StatusCancelled), at, id, string(models.StatusActive))
	if err != nil {
		return 0, wrap(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, wrap(op, err)
	}
	return int(n), nil
}
