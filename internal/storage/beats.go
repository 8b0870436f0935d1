package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/beatstore/internal/models"
)

// CreateBeat добавляет бит в каталог и возвращает его ID.
func (s *Storage) CreateBeat(ctx context.Context, beat models.Beat) (string, error) {
	const op = "storage.CreateBeat"
	if err := checkCtx(ctx, op); err != nil {
		return "", err
	}

	id := uuid.NewString()
	query := `INSERT INTO beats (id, title, producer, bpm, audio, wav, stems)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.DB.ExecContext(ctx, query, id, beat.Title, beat.Producer, beat.BPM, beat.Audio, beat.WAV, beat.Stems)
	if err != nil {
		return "", wrap(op, err)
	}
	return id, nil
}

// GetBeat возвращает бит по ID.
func (s *Storage) GetBeat(ctx context.Context, id string) (*models.Beat, error) {
	const op = "storage.GetBeat"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT id, title, producer, bpm, audio, wav, stems, download_count, created_at
			  FROM beats WHERE id = $1`
	var b models.Beat
	err := s.DB.QueryRowContext(ctx, query, id).Scan(&b.ID, &b.Title, &b.Producer, &b.BPM,
		&b.Audio, &b.WAV, &b.Stems, &b.DownloadCount, &b.CreatedAt)
	if err != nil {
		return nil, wrap(op, err)
	}
	return &b, nil
}

// IncrementBeatDownloads увеличивает счётчик загрузок бита.
func (s *Storage) IncrementBeatDownloads(ctx context.Context, beatID string) error {
	const op = "storage.IncrementBeatDownloads"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx, `UPDATE beats SET download_count = download_count + 1 WHERE id = $1`, beatID)
	if err != nil {
		return wrap(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap(op, err)
	}
	if n == 0 {
		return wrap(op, ErrNotFound)
	}
	return nil
}
