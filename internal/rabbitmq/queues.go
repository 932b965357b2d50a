package rabbitmq

import "github.com/magabrotheeeer/buscaaqui/internal/models"

// Exchange имя direct exchange для уведомлений.
const Exchange = "notifications"

const prefetchCount = 10

// QueueConfig очередь и ключ маршрутизации, с которым она привязана к Exchange.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// Ключи маршрутизации уведомлений.
const (
	RoutingPayment    = "payment"
	RoutingModeration = "moderation"
	RoutingExpiring   = "expiring"
)

// NotificationQueues возвращает все очереди, которые слушает отправитель писем.
func NotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "notifications.payment", RoutingKey: RoutingPayment},
		{QueueName: "notifications.moderation", RoutingKey: RoutingModeration},
		{QueueName: "notifications.expiring", RoutingKey: RoutingExpiring},
	}
}

// RoutingKeyFor выбирает ключ маршрутизации по типу уведомления.
func RoutingKeyFor(notificationType string) (string, bool) {
	switch notificationType {
	case models.NotificationPaymentConfirmed:
		return RoutingPayment, true
	case models.NotificationAdModerated:
		return RoutingModeration, true
	case models.NotificationSubscriptionExpiring:
		return RoutingExpiring, true
	default:
		return "", false
	}
}
