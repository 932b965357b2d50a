package models

import "time"

// Типы уведомлений, публикуемых в очереди.
const (
	NotificationPaymentConfirmed     = "payment_confirmed"
	NotificationAdModerated          = "ad_moderated"
	NotificationSubscriptionExpiring = "subscription_expiring"
)

// Notification сообщение для отправки пользователю по почте.
type Notification struct {
	Type    string            `json:"type"`
	UserUID string            `json:"user_uid"`
	Email   string            `json:"email"`
	Name    string            `json:"name"`
	Data    map[string]string `json:"data,omitempty"`
	SentAt  time.Time         `json:"sent_at"`
}
