// Package notification доставляет письма пользователям: публикует их
// в RabbitMQ для отправителя или только пишет в лог, если отправка выключена.
package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/account-service/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/account-service/internal/models"
)

// Notifier доставляет уведомление получателю.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// Publisher публикует уведомления в обменник notifications с ключом account.
type Publisher struct {
	ch rabbitmq.Channel
}

// NewPublisher создаёт Publisher поверх канала RabbitMQ.
func NewPublisher(ch rabbitmq.Channel) *Publisher {
	return &Publisher{ch: ch}
}

// Notify публикует уведомление.
func (p *Publisher) Notify(ctx context.Context, n models.Notification) error {
	const op = "notification.Publisher.Notify"
	if err := rabbitmq.PublishNotification(ctx, p.ch, rabbitmq.AccountRoutingKey, string(n.Kind), n); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// LogNotifier только пишет в лог вид уведомления и получателя. Токен в лог не попадает.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier создаёт LogNotifier.
func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (l *LogNotifier) Notify(_ context.Context, n models.Notification) error {
	l.log.Info("notification skipped, delivery disabled",
		slog.String("kind", string(n.Kind)),
		slog.String("recipient", n.Recipient),
	)
	return nil
}
