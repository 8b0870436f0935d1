// Package ledger ведёт журнал загрузок по подписке: считает загрузки текущего
// календарного месяца, проверяет повторную загрузку бита и добавляет записи.
//
// Месяц считается в настроенной зоне; по умолчанию это местное время процесса.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/beatstore/internal/lib/month"
	"github.com/magabrotheeeer/beatstore/internal/models"
	"github.com/magabrotheeeer/beatstore/internal/tier"
)

// Store описывает хранилище журнала загрузок.
type Store interface {
	// CountDownloads считает загрузки пользователя по подписке в окне [from, to).
	CountDownloads(ctx context.Context, userID, subscriptionID string, from, to time.Time) (int, error)
	// HasDownloaded проверяет, скачивался ли бит по подписке когда-либо.
	HasDownloaded(ctx context.Context, userID, beatID, subscriptionID string) (bool, error)
	// CreateDownload добавляет запись; inserted=false, если такая тройка уже есть.
	CreateDownload(ctx context.Context, d models.SubscriptionDownload) (inserted bool, err error)
	// ListDownloads возвращает загрузки в окне [from, to), новые первыми.
	ListDownloads(ctx context.Context, userID, subscriptionID string, from, to time.Time) ([]models.DownloadedBeat, error)
}

// Ledger — журнал загрузок с привязкой к календарному месяцу.
type Ledger struct {
	store Store
	loc   *time.Location
	now   func() time.Time
}

// New создаёт журнал. loc == nil означает time.Local.
func New(store Store, loc *time.Location) *Ledger {
	if loc == nil {
		loc = time.Local
	}
	return &Ledger{store: store, loc: loc, now: time.Now}
}

// WithClock подменяет источник времени.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	cp := *l
	cp.now = now
	return &cp
}

// Window возвращает текущее окно учёта.
func (l *Ledger) Window() month.Window {
	return month.SoFar(l.now(), l.loc)
}

// ResetsAt возвращает момент обнуления месячной квоты.
func (l *Ledger) ResetsAt() time.Time {
	return month.Next(l.now(), l.loc)
}

// CountThisMonth считает загрузки текущего месяца.
func (l *Ledger) CountThisMonth(ctx context.Context, userID, subscriptionID string) (int, error) {
	const op = "ledger.CountThisMonth"
	w := l.Window()
	n, err := l.store.CountDownloads(ctx, userID, subscriptionID, w.From, w.To)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// HasDownloaded проверяет повторную загрузку без учёта месяца.
func (l *Ledger) HasDownloaded(ctx context.Context, userID, beatID, subscriptionID string) (bool, error) {
	const op = "ledger.HasDownloaded"
	ok, err := l.store.HasDownloaded(ctx, userID, beatID, subscriptionID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return ok, nil
}

// Record добавляет запись о новой загрузке. Вызывается только после проверки квоты.
func (l *Ledger) Record(ctx context.Context, userID, beatID, subscriptionID string, lt tier.LicenseType) (bool, error) {
	const op = "ledger.Record"
	inserted, err := l.store.CreateDownload(ctx, models.SubscriptionDownload{
		UserID:         userID,
		BeatID:         beatID,
		SubscriptionID: subscriptionID,
		LicenseType:    lt,
		DownloadedAt:   l.now(),
	})
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return inserted, nil
}

// ListThisMonth возвращает загрузки текущего месяца.
func (l *Ledger) ListThisMonth(ctx context.Context, userID, subscriptionID string) ([]models.DownloadedBeat, error) {
	const op = "ledger.ListThisMonth"
	w := l.Window()
	res, err := l.store.ListDownloads(ctx, userID, subscriptionID, w.From, w.To)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}
