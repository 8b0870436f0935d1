// Package password хеширует и проверяет пароли покупателей с помощью bcrypt.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrMismatch — пароль не совпадает с хешем.
var ErrMismatch = errors.New("password does not match")

// GetHash возвращает bcrypt-хеш пароля. bcrypt не принимает пароли длиннее 72 байт.
func GetHash(password string) (string, error) {
	const op = "password.GetHash"
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashedPassword), nil
}

// CompareHash сверяет пароль с хешем. Несовпадение возвращается как ErrMismatch.
func CompareHash(originalHash, externalPassword string) error {
	const op = "password.CompareHash"
	err := bcrypt.CompareHashAndPassword([]byte(originalHash), []byte(externalPassword))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return fmt.Errorf("%s: %w", op, ErrMismatch)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
