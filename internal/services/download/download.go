// Package download выдаёт подписчикам файлы битов с учётом месячной квоты.
//
// Запрос на загрузку проходит шаги: проверка пользователя, поиск действующей
// подписки, поиск бита, проверка повторной загрузки, проверка квоты и запись
// в журнал. Повторная загрузка бита в рамках той же подписки квоту не тратит.
package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/beatstore/internal/analytics"
	"github.com/magabrotheeeer/beatstore/internal/entitlement"
	"github.com/magabrotheeeer/beatstore/internal/lib/sl"
	"github.com/magabrotheeeer/beatstore/internal/license"
	"github.com/magabrotheeeer/beatstore/internal/metrics"
	"github.com/magabrotheeeer/beatstore/internal/models"
	"github.com/magabrotheeeer/beatstore/internal/services/beat"
	"github.com/magabrotheeeer/beatstore/internal/storage"
	"github.com/magabrotheeeer/beatstore/internal/tier"
)

var (
	// ErrUnauthorized — запрос без пользователя.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNoActiveSubscription — у пользователя нет действующей подписки.
	ErrNoActiveSubscription = errors.New("no active subscription")
	// ErrBeatNotFound — бит не найден.
	ErrBeatNotFound = errors.New("beat not found")
)

// QuotaExceededError — месячная квота исчерпана.
type QuotaExceededError struct {
	Used  int
	Limit tier.Quota
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("monthly download limit reached: used %d of %s", e.Used, e.Limit)
}

// Subscriptions ищет действующую подписку пользователя.
type Subscriptions interface {
	GetActiveSubscription(ctx context.Context, userID string) (*models.Subscription, error)
}

// Beats отдаёт биты каталога.
type Beats interface {
	Get(ctx context.Context, id string) (*models.Beat, error)
}

// Ledger — журнал загрузок по подписке.
type Ledger interface {
	CountThisMonth(ctx context.Context, userID, subscriptionID string) (int, error)
	HasDownloaded(ctx context.Context, userID, beatID, subscriptionID string) (bool, error)
	Record(ctx context.Context, userID, beatID, subscriptionID string, lt tier.LicenseType) (bool, error)
	ListThisMonth(ctx context.Context, userID, subscriptionID string) ([]models.DownloadedBeat, error)
	ResetsAt() time.Time
}

// Catalog — каталог тарифов.
type Catalog interface {
	Lookup(id string) (tier.Tier, bool)
}

// Recorder принимает метрики загрузок.
type Recorder interface {
	DownloadServed(lt tier.LicenseType, outcome string)
	AnalyticsFailed()
}

// Manifest — ответ на успешную загрузку.
type Manifest struct {
	license.Bundle
	LicenseType   tier.LicenseType `json:"license_type"`
	Remaining     tier.Quota       `json:"remaining"`
	WasReDownload bool             `json:"was_re_download"`
}

// Status — состояние квоты пользователя в текущем месяце.
type Status struct {
	HasSubscription bool                    `json:"has_subscription"`
	Subscription    *models.Subscription    `json:"subscription,omitempty"`
	Tier            *tier.Tier              `json:"tier,omitempty"`
	DownloadsUsed   int                     `json:"downloads_used"`
	Remaining       tier.Quota              `json:"remaining"`
	Limit           tier.Quota              `json:"limit"`
	ResetsAt        *time.Time              `json:"resets_at,omitempty"`
	Downloads       []models.DownloadedBeat `json:"downloads"`
}

// Deps — зависимости Service.
type Deps struct {
	Subscriptions Subscriptions
	Beats         Beats
	Ledger        Ledger
	Catalog       Catalog
	Counter       analytics.Counter
	Metrics       Recorder
	Log           *slog.Logger
}

// Service — выдача файлов по подписке.
type Service struct {
	subs      Subscriptions
	beats     Beats
	ledger    Ledger
	catalog   Catalog
	evaluator *entitlement.Evaluator
	counter   analytics.Counter
	metrics   Recorder
	log       *slog.Logger
}

// New создаёт Service. Counter и Metrics необязательны.
func New(d Deps) *Service {
	s := &Service{
		subs:      d.Subscriptions,
		beats:     d.Beats,
		ledger:    d.Ledger,
		catalog:   d.Catalog,
		evaluator: entitlement.New(d.Catalog),
		counter:   d.Counter,
		metrics:   d.Metrics,
		log:       d.Log,
	}
	if s.metrics == nil {
		s.metrics = nopRecorder{}
	}
	return s
}

// Download выдаёт файлы бита beatID пользователю userID.
func (s *Service) Download(ctx context.Context, userID, beatID string) (*Manifest, error) {
	const op = "services.download.Download"
	if userID == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}
	log := s.log.With(
		slog.String("op", op),
		slog.String("user_id", userID),
		slog.String("beat_id", beatID),
	)

	sub, err := s.activeSubscription(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNoActiveSubscription) {
			s.metrics.DownloadServed("", metrics.OutcomeNoSubscription)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	lt := s.licenseType(sub.TierID)

	b, err := s.beats.Get(ctx, beatID)
	if errors.Is(err, beat.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, ErrBeatNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	downloaded, err := s.ledger.HasDownloaded(ctx, userID, beatID, sub.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	used, err := s.ledger.CountThisMonth(ctx, userID, sub.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if downloaded {
		log.Debug("re-download served")
		s.metrics.DownloadServed(lt, metrics.OutcomeReDownload)
		return s.manifest(lt, *b, s.evaluator.Remaining(sub.TierID, used), true), nil
	}

	if !s.evaluator.CanDownload(sub.TierID, used) {
		s.metrics.DownloadServed(lt, metrics.OutcomeQuotaExceeded)
		return nil, fmt.Errorf("%s: %w", op, &QuotaExceededError{
			Used:  used,
			Limit: s.evaluator.Limit(sub.TierID),
		})
	}

	inserted, err := s.ledger.Record(ctx, userID, beatID, sub.ID, lt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !inserted {
		log.Info("concurrent duplicate download served as re-download")
		s.metrics.DownloadServed(lt, metrics.OutcomeReDownload)
		return s.manifest(lt, *b, s.evaluator.Remaining(sub.TierID, used), true), nil
	}

	s.countDownload(ctx, log, beatID)
	s.metrics.DownloadServed(lt, metrics.OutcomeNew)
	log.Info("beat downloaded", slog.String("license_type", string(lt)))

	return s.manifest(lt, *b, s.evaluator.Remaining(sub.TierID, used+1), false), nil
}

// Status возвращает использование квоты в текущем месяце. Отсутствие
// действующей подписки не считается ошибкой.
func (s *Service) Status(ctx context.Context, userID string) (*Status, error) {
	const op = "services.download.Status"
	if userID == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	sub, err := s.activeSubscription(ctx, userID)
	if errors.Is(err, ErrNoActiveSubscription) {
		return &Status{
			Remaining: tier.Finite(0),
			Limit:     tier.Finite(0),
			Downloads: []models.DownloadedBeat{},
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	used, err := s.ledger.CountThisMonth(ctx, userID, sub.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	list, err := s.ledger.ListThisMonth(ctx, userID, sub.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if list == nil {
		list = []models.DownloadedBeat{}
	}

	st := &Status{
		HasSubscription: true,
		Subscription:    sub,
		DownloadsUsed:   used,
		Remaining:       s.evaluator.Remaining(sub.TierID, used),
		Limit:           s.evaluator.Limit(sub.TierID),
		Downloads:       list,
	}
	if t, ok := s.catalog.Lookup(sub.TierID); ok {
		st.Tier = &t
	}
	resets := s.ledger.ResetsAt()
	st.ResetsAt = &resets
	return st, nil
}

func (s *Service) activeSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	sub, err := s.subs.GetActiveSubscription(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoActiveSubscription
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *Service) licenseType(tierID string) tier.LicenseType {
	t, ok := s.catalog.Lookup(tierID)
	if !ok {
		return ""
	}
	return t.Benefits.LicenseType
}

func (s *Service) manifest(lt tier.LicenseType, b models.Beat, remaining tier.Quota, reDownload bool) *Manifest {
	return &Manifest{
		Bundle:        license.FilesFor(lt, b),
		LicenseType:   lt,
		Remaining:     remaining,
		WasReDownload: reDownload,
	}
}

// countDownload обновляет счётчик загрузок бита. Ошибка только логируется.
func (s *Service) countDownload(ctx context.Context, log *slog.Logger, beatID string) {
	if s.counter == nil {
		return
	}
	if err := s.counter.BeatDownloaded(context.WithoutCancel(ctx), beatID); err != nil {
		s.metrics.AnalyticsFailed()
		log.Warn("failed to count beat download", sl.Err(err))
	}
}

type nopRecorder struct{}

func (nopRecorder) DownloadServed(tier.LicenseType, string) {}
func (nopRecorder) AnalyticsFailed()                        {}
