package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/account-service/internal/lib/sl"
)

const maxInFlight = 10

// ErrPermanent помечает ошибку обработчика, после которой повторная доставка
// сообщения бессмысленна. Такие сообщения отклоняются без возврата в очередь.
var ErrPermanent = errors.New("permanent message failure")

// ConsumerMessage запускает чтение очереди queueName. Каждое сообщение
// обрабатывается handler в отдельной горутине, одновременно не больше
// maxInFlight. Успешно обработанные сообщения подтверждаются, сообщения
// с ErrPermanent отбрасываются, остальные возвращаются в очередь.
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

	go consume(ctx, log.With(slog.String("op", op)), delivery, handler)
	return nil
}

// Acknowledger часть amqp.Delivery для подтверждения сообщения.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func consume(ctx context.Context, log *slog.Logger, delivery <-chan amqp.Delivery, handler func([]byte) error) {
	sem := make(chan struct{}, maxInFlight)
	for {
		select {
		case d, ok := <-delivery:
			if !ok {
				return
			}
			sem <- struct{}{}
			go func(d amqp.Delivery) {
				defer func() { <-sem }()
				handleDelivery(log, d.Body, &d, handler)
			}(d)
		case <-ctx.Done():
			return
		}
	}
}

func handleDelivery(log *slog.Logger, body []byte, ack Acknowledger, handler func([]byte) error) {
	if err := handler(body); err != nil {
		requeue := !errors.Is(err, ErrPermanent)
		if requeue {
			log.Error("failed to handle message, requeueing", sl.Err(err))
		} else {
			log.Error("dropping message that cannot be handled", sl.Err(err))
		}
		if nackErr := ack.Nack(false, requeue); nackErr != nil {
			log.Error("failed to nack message", sl.Err(nackErr))
		}
		return
	}
	if ackErr := ack.Ack(false); ackErr != nil {
		log.Error("failed to ack message", sl.Err(ackErr))
	}
}
