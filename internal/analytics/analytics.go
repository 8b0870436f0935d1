// Package analytics считает загрузки битов. Событие о загрузке либо публикуется
// в RabbitMQ и обрабатывается воркером, либо сразу пишется в базу.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/beatstore/internal/lib/sl"
	"github.com/magabrotheeeer/beatstore/internal/rabbitmq"
)

const (
	// Exchange — exchange событий аналитики.
	Exchange = "analytics"
	// RoutingKey — ключ события загрузки бита.
	RoutingKey = "beat.downloaded"
	// Queue — очередь, из которой воркер читает события загрузки.
	Queue = "analytics.beat_downloaded"
)

// Queues — очереди, которые объявляются при настройке канала.
var Queues = []rabbitmq.QueueConfig{
	{QueueName: Queue, RoutingKey: RoutingKey},
}

// Counter принимает факт новой загрузки бита.
type Counter interface {
	BeatDownloaded(ctx context.Context, beatID string) error
}

// Event — тело сообщения о загрузке.
type Event struct {
	BeatID       string    `json:"beat_id"`
	DownloadedAt time.Time `json:"downloaded_at"`
}

// Publisher отправляет события загрузки в RabbitMQ.
type Publisher struct {
	ch  rabbitmq.Publisher
	now func() time.Time
}

// NewPublisher создаёт Publisher поверх канала.
func NewPublisher(ch rabbitmq.Publisher) *Publisher {
	return &Publisher{ch: ch, now: time.Now}
}

// BeatDownloaded публикует событие загрузки.
func (p *Publisher) BeatDownloaded(_ context.Context, beatID string) error {
	const op = "analytics.Publisher.BeatDownloaded"
	err := rabbitmq.PublishMessage(p.ch, Exchange, RoutingKey, Event{
		BeatID:       beatID,
		DownloadedAt: p.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Store увеличивает счётчик загрузок бита.
type Store interface {
	IncrementBeatDownloads(ctx context.Context, beatID string) error
}

// DirectCounter пишет счётчик сразу в хранилище, без брокера.
type DirectCounter struct {
	store Store
}

// NewDirectCounter создаёт DirectCounter.
func NewDirectCounter(store Store) *DirectCounter {
	return &DirectCounter{store: store}
}

// BeatDownloaded увеличивает счётчик бита.
func (c *DirectCounter) BeatDownloaded(ctx context.Context, beatID string) error {
	const op = "analytics.DirectCounter.BeatDownloaded"
	if err := c.store.IncrementBeatDownloads(ctx, beatID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Worker обрабатывает события загрузки из очереди.
type Worker struct {
	log     *slog.Logger
	store   Store
	timeout time.Duration
}

// NewWorker создаёт воркер. timeout ограничивает обработку одного сообщения.
func NewWorker(log *slog.Logger, store Store, timeout time.Duration) *Worker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Worker{log: log, store: store, timeout: timeout}
}

// Handle обрабатывает тело сообщения. Битое сообщение логируется и подтверждается,
// ошибка хранилища возвращается, и сообщение уходит обратно в очередь.
func (w *Worker) Handle(body []byte) error {
	const op = "analytics.Worker.Handle"
	log := w.log.With(slog.String("op", op))

	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil || ev.BeatID == "" {
		log.Error("dropping malformed event", slog.String("body", string(body)), sl.Err(err))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	if err := w.store.IncrementBeatDownloads(ctx, ev.BeatID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	log.Debug("beat download counted", slog.String("beat_id", ev.BeatID))
	return nil
}
