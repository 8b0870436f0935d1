// Package auth содержит регистрацию и вход покупателей и проверку JWT.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/beatstore/internal/lib/jwt"
	"github.com/magabrotheeeer/beatstore/internal/lib/password"
	"github.com/magabrotheeeer/beatstore/internal/models"
	"github.com/magabrotheeeer/beatstore/internal/storage"
)

var (
	// ErrUserExists — имя пользователя или почта уже заняты.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials — неверное имя пользователя или пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// UserRepository описывает хранилище пользователей.
type UserRepository interface {
	// CreateUser сохраняет нового пользователя и возвращает его ID.
	CreateUser(ctx context.Context, user models.User) (string, error)
	// GetUserByUsername возвращает пользователя по имени или storage.ErrNotFound.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// Service отвечает за регистрацию, авторизацию и валидацию JWT.
type Service struct {
	users    UserRepository
	jwtMaker jwt.Maker
}

// New создаёт Service.
func New(users UserRepository, jwtMaker jwt.Maker) *Service {
	return &Service{
		users:    users,
		jwtMaker: jwtMaker,
	}
}

// Register создаёт пользователя с ролью user и возвращает его ID.
func (s *Service) Register(ctx context.Context, email, username, rawPassword string) (string, error) {
	const op = "services.auth.Register"
	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	id, err := s.users.CreateUser(ctx, models.User{
		Email:        email,
		Username:     username,
		PasswordHash: hashed,
		Role:         models.RoleUser,
	})
	if errors.Is(err, storage.ErrConflict) {
		return "", fmt.Errorf("%s: %w", op, ErrUserExists)
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// Login проверяет пароль и выдаёт токен доступа.
func (s *Service) Login(ctx context.Context, username, rawPassword string) (string, error) {
	const op = "services.auth.Login"
	user, err := s.users.GetUserByUsername(ctx, username)
	if errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	token, err := s.jwtMaker.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return token, nil
}

// ValidateToken проверяет JWT и возвращает данные пользователя из него.
func (s *Service) ValidateToken(token string) (*jwt.Claims, error) {
	const op = "services.auth.ValidateToken"
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return claims, nil
}
