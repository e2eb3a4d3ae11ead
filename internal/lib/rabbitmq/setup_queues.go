package rabbitmq

const (
	// NotificationsExchange direct-обменник для писем пользователям.
	NotificationsExchange = "notifications"
	// AccountRoutingKey ключ маршрутизации писем сервиса аккаунтов.
	AccountRoutingKey = "account"
	// AccountQueue очередь, из которой отправитель писем читает сообщения сервиса аккаунтов.
	AccountQueue = "notifications.account"
)

type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: AccountQueue, RoutingKey: AccountRoutingKey},
	}
}
