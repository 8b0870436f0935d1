package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/beatstore/internal/models"
)

// CountDownloads считает загрузки пользователя по подписке в окне [from, to).
func (s *Storage) CountDownloads(ctx context.Context, userID, subscriptionID string, from, to time.Time) (int, error) {
	const op = "storage.CountDownloads"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}

	query := `SELECT COUNT(*) FROM subscription_downloads
			  WHERE user_id = $1 AND subscription_id = $2
			    AND downloaded_at >= $3 AND downloaded_at < $4`
	var n int
	if err := s.DB.QueryRowContext(ctx, query, userID, subscriptionID, from, to).Scan(&n); err != nil {
		return 0, wrap(op, err)
	}
	return n, nil
}

// HasDownloaded проверяет наличие записи для тройки пользователь/бит/подписка.
func (s *Storage) HasDownloaded(ctx context.Context, userID, beatID, subscriptionID string) (bool, error) {
	const op = "storage.HasDownloaded"
	if err := checkCtx(ctx, op); err != nil {
		return false, err
	}

	query := `SELECT EXISTS (
				SELECT 1 FROM subscription_downloads
				WHERE user_id = $1 AND beat_id = $2 AND subscription_id = $3
			  )`
	var exists bool
	if err := s.DB.QueryRowContext(ctx, query, userID, beatID, subscriptionID).Scan(&exists); err != nil {
		return false, wrap(op, err)
	}
	return exists, nil
}

// CreateDownload добавляет запись в журнал. Повтор тройки не вставляется
// и возвращает inserted=false.
func (s *Storage) CreateDownload(ctx context.Context, d models.SubscriptionDownload) (bool, error) {
	const op = "storage.CreateDownload"
	if err := checkCtx(ctx, op); err != nil {
		return false, err
	}

	query := `INSERT INTO subscription_downloads
				(id, user_id, beat_id, subscription_id, license_type, downloaded_at)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  ON CONFLICT (user_id, beat_id, subscription_id) DO NOTHING
			  RETURNING id`
	var id string
	err := s.DB.QueryRowContext(ctx, query, uuid.NewString(), d.UserID, d.BeatID,
		d.SubscriptionID, string(d.LicenseType), d.DownloadedAt).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, wrap(op, err)
	}
	return true, nil
}

// ListDownloads возвращает загрузки окна [from, to) вместе с названием бита.
func (s *Storage) ListDownloads(ctx context.Context, userID, subscriptionID string, from, to time.Time) ([]models.DownloadedBeat, error) {
	const op = "storage.ListDownloads"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT d.beat_id, b.title, d.license_type, d.downloaded_at
			  FROM subscription_downloads d
			  JOIN beats b ON b.id = d.beat_id
			  WHERE d.user_id = $1 AND d.subscription_id = $2
			    AND d.downloaded_at >= $3 AND d.downloaded_at < $4
			  ORDER BY d.downloaded_at DESC`
	rows, err := s.DB.QueryContext(ctx, query, userID, subscriptionID, from, to)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	result := []models.DownloadedBeat{}
	for rows.Next() {
		var item models.DownloadedBeat
		if err := rows.Scan(&item.BeatID, &item.Title, &item.LicenseType, &item.DownloadedAt); err != nil {
			return nil, wrap(op, err)
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return result, nil
}
