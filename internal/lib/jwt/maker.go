// Package jwt выпускает и проверяет HS256-токены покупателей магазина.
// В токене хранятся ID пользователя, имя и роль.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken — токен не прошёл проверку подписи, срока или формата.
var ErrInvalidToken = errors.New("invalid token")

// Claims — данные пользователя в токене.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Maker описывает выпуск и разбор токенов.
type Maker interface {
	GenerateToken(userID, username, role string) (string, error)
	ParseToken(tokenStr string) (*Claims, error)
}

// MakerImpl подписывает токены секретным ключом и выдаёт их на tokenTTL.
type MakerImpl struct {
	secretKey []byte
	tokenTTL  time.Duration
	now       func() time.Time
}

// NewJWTMaker создаёт MakerImpl.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: []byte(secretKey),
		tokenTTL:  ttl,
		now:       time.Now,
	}
}

// GenerateToken создаёт подписанный токен.
func (j *MakerImpl) GenerateToken(userID, username, role string) (string, error) {
	const op = "jwt.GenerateToken"
	now := j.now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.tokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secretKey)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return token, nil
}

// ParseToken проверяет подпись и срок токена и возвращает его claims.
// Токены без user_id и токены с другим алгоритмом подписи отклоняются.
func (j *MakerImpl) ParseToken(tokenStr string) (*Claims, error) {
	const op = "jwt.ParseToken"
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(_ *jwt.Token) (any, error) {
		return j.secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}
	return claims, nil
}
