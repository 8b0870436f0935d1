// Package middlewarectx содержит HTTP middleware сервиса: проверку JWT,
// доступ только для администраторов и ограничение частоты запросов.
//
// JWTMiddleware кладёт в контекст ID пользователя, имя и роль из токена.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/beatstore/internal/http/response"
	"github.com/magabrotheeeer/beatstore/internal/lib/jwt"
	"github.com/magabrotheeeer/beatstore/internal/lib/sl"
	"github.com/magabrotheeeer/beatstore/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// UserID — ключ для ID пользователя в контексте
	UserID Key = "user_id"
	// User — ключ для имени пользователя в контексте
	User Key = "username"
	// Role — ключ для роли пользователя в контексте
	Role Key = "role"
)

// TokenValidator проверяет JWT.
type TokenValidator interface {
	ValidateToken(token string) (*jwt.Claims, error)
}

// JWTMiddleware проверяет Bearer-токен в заголовке Authorization.
// При ошибке отвечает 401 Unauthorized.
func JWTMiddleware(auth TokenValidator, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				log.Info("missing or invalid authorization header")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.ErrorWithCode(response.CodeUnauthorized, "missing or invalid authorization header", nil))
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			claims, err := auth.ValidateToken(tokenStr)
			if err != nil {
				log.Info("invalid or expired token", sl.Err(err))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.ErrorWithCode(response.CodeUnauthorized, "invalid or expired token", nil))
				return
			}

			ctx := context.WithValue(r.Context(), UserID, claims.UserID)
			ctx = context.WithValue(ctx, User, claims.Username)
			ctx = context.WithValue(ctx, Role, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminOnly пропускает только пользователей с ролью admin. Ставится после JWTMiddleware.
func AdminOnly(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, _ := r.Context().Value(Role).(string)
			if role != models.RoleAdmin {
				log.Warn("admin access denied",
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.String("user_id", GetUserID(r.Context())),
				)
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.ErrorWithCode(response.CodeForbidden, "admin access required", nil))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetUserID возвращает ID пользователя из контекста или пустую строку.
func GetUserID(ctx context.Context) string {
	id, _ := ctx.Value(UserID).(string)
	return id
}
