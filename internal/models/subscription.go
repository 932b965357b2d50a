package models

import "time"

// Статусы локальной подписки.
const (
	SubscriptionActive    = "active"
	SubscriptionTrialing  = "trialing"
	SubscriptionPastDue   = "past_due"
	SubscriptionCancelled = "cancelled"
	SubscriptionExpired   = "expired"
)

// Способы оплаты.
const (
	BillingPix        = "PIX"
	BillingBoleto     = "BOLETO"
	BillingCreditCard = "CREDIT_CARD"
	BillingFree       = "FREE"
)

// Subscription локальная подписка пользователя на тариф.
type Subscription struct {
	ID                    int64     `json:"id"`
	UserUID               string    `json:"user_uid"`
	PlanID                int64     `json:"plan_id"`
	PlanSlug              string    `json:"plan_slug,omitempty"`
	Status                string    `json:"status"`
	BillingType           string    `json:"billing_type"`
	GatewaySubscriptionID string    `json:"gateway_subscription_id,omitempty"`
	StartsAt              time.Time `json:"starts_at"`
	EndsAt                time.Time `json:"ends_at"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// ExpiringSubscription подписка, которая скоро закончится, вместе с адресом владельца.
type ExpiringSubscription struct {
	SubscriptionID int64
	UserUID        string
	Email          string
	Name           string
	PlanName       string
	EndsAt         time.Time
}

// CheckoutRequest тело запроса оформления подписки.
type CheckoutRequest struct {
	Plan        string `json:"plan" validate:"required,oneof=basic business business_plus"`
	BillingType string `json:"billing_type" validate:"required,oneof=PIX BOLETO CREDIT_CARD"`
}

// CheckoutResult ответ оформления подписки.
type CheckoutResult struct {
	GatewaySubscriptionID string `json:"gateway_subscription_id"`
	Status                string `json:"status"`
	InvoiceURL            string `json:"invoice_url,omitempty"`
}

// CurrentSubscription действующий тариф пользователя.
type CurrentSubscription struct {
	Plan         Plan          `json:"plan"`
	Subscription *Subscription `json:"subscription,omitempty"`
}

// NormalizeBillingType приводит способ оплаты шлюза к локальному набору.
// UNDEFINED и неизвестные значения в шлюзе оплачиваются через boleto.
func NormalizeBillingType(bt string) string {
	switch bt {
	case BillingPix, BillingBoleto, BillingCreditCard, BillingFree:
		return bt
	}
	return BillingBoleto
}
