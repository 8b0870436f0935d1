package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/beatstore/internal/models"
)

// CreateUser сохраняет пользователя и возвращает его ID.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.CreateUser"
	if err := checkCtx(ctx, op); err != nil {
		return "", err
	}

	id := uuid.NewString()
	query := `INSERT INTO users (id, email, username, password_hash, role)
			  VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.DB.ExecContext(ctx, query, id, user.Email, user.Username, user.PasswordHash, user.Role); err != nil {
		return "", wrap(op, err)
	}
	return id, nil
}

// GetUserByUsername возвращает пользователя по имени.
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.GetUserByUsername"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT id, email, username, password_hash, role, created_at
			  FROM users WHERE username = $1`
	var u models.User
	err := s.DB.QueryRowContext(ctx, query, username).
		Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		return nil, wrap(op, err)
	}
	return &u, nil
}
