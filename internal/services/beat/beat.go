// Package beat отдаёт биты каталога с кешированием в Redis и добавляет новые биты.
package beat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/beatstore/internal/lib/sl"
	"github.com/magabrotheeeer/beatstore/internal/models"
	"github.com/magabrotheeeer/beatstore/internal/storage"
)

// ErrNotFound — бит не найден.
var ErrNotFound = errors.New("beat not found")

// Repository описывает хранилище битов.
type Repository interface {
	GetBeat(ctx context.Context, id string) (*models.Beat, error)
	CreateBeat(ctx context.Context, beat models.Beat) (string, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(ctx context.Context, key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

// Service — каталог битов.
type Service struct {
	repo  Repository
	cache Cache
	ttl   time.Duration
	log   *slog.Logger
}

// New создаёт Service. cache может быть nil, тогда кеш не используется.
func New(repo Repository, cache Cache, ttl time.Duration, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
		log:   log,
	}
}

func cacheKey(id string) string {
	return "beat:" + id
}

// Get возвращает бит по ID. Ошибки кеша логируются, запрос уходит в хранилище.
func (s *Service) Get(ctx context.Context, id string) (*models.Beat, error) {
	const op = "services.beat.Get"
	log := s.log.With(slog.String("op", op), slog.String("beat_id", id))
	key := cacheKey(id)

	if s.cache != nil {
		var cached models.Beat
		found, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			log.Warn("failed to read beat from cache", sl.Err(err))
		} else if found {
			return &cached, nil
		}
	}

	b, err := s.repo.GetBeat(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, b, s.ttl); err != nil {
			log.Warn("failed to add beat to cache", sl.Err(err))
		}
	}
	return b, nil
}

// Create добавляет бит в каталог и возвращает его ID.
func (s *Service) Create(ctx context.Context, req models.DummyBeat) (string, error) {
	const op = "services.beat.Create"
	b := models.Beat{
		Title:    req.Title,
		Producer: req.Producer,
		BPM:      req.BPM,
		Audio:    req.Audio,
		WAV:      optional(req.WAV),
		Stems:    optional(req.Stems),
	}
	id, err := s.repo.CreateBeat(ctx, b)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("beat created", slog.String("op", op), slog.String("beat_id", id))
	return id, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
