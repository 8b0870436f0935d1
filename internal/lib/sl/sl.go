// Package sl содержит вспомогательные функции для работы с логгером slog:
// создание логгера по окружению и атрибут ошибки.
package sl

import (
	"io"
	"log/slog"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

// Err возвращает slog.Attr с ключом "error" и текстом ошибки.
// Для nil возвращается пустое значение.
//
// Пример:
//
//	log.Error("failed to do something", sl.Err(err))
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// New создаёт логгер для окружения env: текстовый с уровнем debug локально
// и в dev, JSON с уровнем info в prod. Неизвестное окружение считается prod.
func New(env string, w io.Writer) *slog.Logger {
	switch env {
	case envLocal, envDev:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
}
