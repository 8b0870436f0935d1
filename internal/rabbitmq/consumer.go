package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/beatstore/internal/lib/sl"
)

// maxInFlight — сколько сообщений обрабатывается одновременно.
const maxInFlight = 10

// ConsumerMessage запускает потребителя очереди queueName. Сообщение подтверждается,
// если handler вернул nil, иначе возвращается в очередь. Потребитель работает до
// отмены ctx или закрытия канала.
func ConsumerMessage(ctx context.Context, log *slog.Logger, ch *amqp.Channel, queueName string, handler func([]byte) error) error {
	const op = "rabbitmq.ConsumerMessage"
	delivery, err := ch.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log = log.With(slog.String("op", op), slog.String("queue", queueName))
	sem := make(chan struct{}, maxInFlight)
	go func() {
		for {
			select {
			case d, ok := <-delivery:
				if !ok {
					log.Info("delivery channel closed")
					return
				}
				sem <- struct{}{}
				go func(d amqp.Delivery) {
					defer func() { <-sem }()
					if err := handler(d.Body); err != nil {
						log.Warn("handler failed, message requeued", sl.Err(err))
						if nackErr := d.Nack(false, true); nackErr != nil {
							log.Error("failed to nack message", sl.Err(nackErr))
						}
						return
					}
					if ackErr := d.Ack(false); ackErr != nil {
						log.Error("failed to ack message", sl.Err(ackErr))
					}
				}(d)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}
