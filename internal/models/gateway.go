package models

import (
	"encoding/json"
	"time"
)

// Статусы подписки в платёжном шлюзе.
const (
	GatewayActive   = "ACTIVE"
	GatewayInactive = "INACTIVE"
	GatewayExpired  = "EXPIRED"
	GatewayOverdue  = "OVERDUE"
	GatewayDeleted  = "DELETED"
	// GatewayPending только в зеркале: подписка открыта в шлюзе, оплаты ещё не было.
	GatewayPending  = "PENDING"
)

// MirrorStatus переводит статус шлюза в статус зеркальной записи.
// ACTIVE без поступившей оплаты хранится как PENDING, сверка его пропускает.
func MirrorStatus(gatewayStatus string, paid bool) string {
	if gatewayStatus == GatewayActive && !paid {
		return GatewayPending
	}
	return gatewayStatus
}

// IsGatewayOpen сообщает, списывает ли подписка шлюза деньги или ждёт оплаты.
func IsGatewayOpen(status string) bool {
	switch status {
	case GatewayActive, GatewayOverdue, GatewayPending:
		return true
	}
	return false
}

// Статусы платежа в шлюзе, означающие поступление денег.
const (
	PaymentReceived       = "RECEIVED"
	PaymentConfirmed      = "CONFIRMED"
	PaymentReceivedInCash = "RECEIVED_IN_CASH"
	PaymentOverdue        = "OVERDUE"
	PaymentPending        = "PENDING"
)

// IsPaymentSettled сообщает, означает ли статус поступление оплаты.
func IsPaymentSettled(status string) bool {
	switch status {
	case PaymentReceived, PaymentConfirmed, PaymentReceivedInCash:
		return true
	}
	return false
}

// GatewaySubscription зеркальная запись подписки из шлюза.
type GatewaySubscription struct {
	ID                    int64      `json:"id"`
	GatewaySubscriptionID string     `json:"gateway_subscription_id"`
	GatewayCustomerID     string     `json:"gateway_customer_id"`
	UserUID               string     `json:"user_uid,omitempty"`
	PlanCode              string     `json:"plan_code"`
	Status                string     `json:"status"`
	BillingType           string     `json:"billing_type"`
	ValueCents            int64      `json:"value_cents"`
	NextDueDate           *time.Time `json:"next_due_date,omitempty"`
	StartedAt             *time.Time `json:"started_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// Payment платёж (транзакция) из шлюза.
type Payment struct {
	ID                    int64      `json:"id"`
	GatewayPaymentID      string     `json:"gateway_payment_id"`
	GatewaySubscriptionID string     `json:"gateway_subscription_id,omitempty"`
	UserUID               string     `json:"user_uid,omitempty"`
	BillingType           string     `json:"billing_type"`
	Status                string     `json:"status"`
	ValueCents            int64      `json:"value_cents"`
	DueDate               *time.Time `json:"due_date,omitempty"`
	PaidAt                *time.Time `json:"paid_at,omitempty"`
	InvoiceURL            string     `json:"invoice_url,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// WebhookEvent входящее событие шлюза, сохранённое как есть.
type WebhookEvent struct {
	ID              int64           `json:"id"`
	Event           string          `json:"event"`
	GatewayObjectID string          `json:"gateway_object_id"`
	Payload         json.RawMessage `json:"payload"`
	ProcessedAt     *time.Time      `json:"processed_at,omitempty"`
	ProcessingError string          `json:"processing_error,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}
