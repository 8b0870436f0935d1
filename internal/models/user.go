// Package models содержит доменные структуры магазина: пользователя, бит,
// подписку и запись журнала загрузок, а также структуры входящих JSON-запросов.
package models

import "time"

const (
	// RoleUser — роль обычного покупателя.
	RoleUser = "user"
	// RoleAdmin — роль администратора магазина.
	RoleAdmin = "admin"
)

// User представляет зарегистрированного пользователя магазина.
type User struct {
	ID           string    // Уникальный идентификатор пользователя (uuid)
	Email        string    // Электронная почта
	Username     string    // Имя пользователя (уникальное)
	PasswordHash string    // bcrypt-хэш пароля
	Role         string    // Роль пользователя, admin или user
	CreatedAt    time.Time // Дата регистрации
}
