package asaas

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// DateLayout формат дат в API шлюза.
const DateLayout = "2006-01-02"

// CycleMonthly ежемесячный цикл списаний.
const CycleMonthly = "MONTHLY"

// CustomerRequest запрос создания клиента.
type CustomerRequest struct {
	Name              string `json:"name"`
	Email             string `json:"email,omitempty"`
	CpfCnpj           string `json:"cpfCnpj,omitempty"`
	MobilePhone       string `json:"mobilePhone,omitempty"`
	ExternalReference string `json:"externalReference,omitempty"`
}

// Customer клиент шлюза.
type Customer struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Email             string `json:"email"`
	CpfCnpj           string `json:"cpfCnpj"`
	ExternalReference string `json:"externalReference"`
	Deleted           bool   `json:"deleted"`
}

// SubscriptionRequest запрос создания подписки.
type SubscriptionRequest struct {
	Customer          string  `json:"customer"`
	BillingType       string  `json:"billingType"`
	Value             float64 `json:"value"`
	NextDueDate       string  `json:"nextDueDate"`
	Cycle             string  `json:"cycle"`
	Description       string  `json:"description,omitempty"`
	ExternalReference string  `json:"externalReference,omitempty"`
}

// Subscription подписка шлюза.
type Subscription struct {
	ID                string  `json:"id"`
	Customer          string  `json:"customer"`
	BillingType       string  `json:"billingType"`
	Value             float64 `json:"value"`
	NextDueDate       string  `json:"nextDueDate"`
	Cycle             string  `json:"cycle"`
	Description       string  `json:"description"`
	Status            string  `json:"status"`
	ExternalReference string  `json:"externalReference"`
	DateCreated       string  `json:"dateCreated"`
	Deleted           bool    `json:"deleted"`
}

// Payment платёж (cobrança) шлюза.
type Payment struct {
	ID                string  `json:"id"`
	Customer          string  `json:"customer"`
	Subscription      string  `json:"subscription"`
	BillingType       string  `json:"billingType"`
	Status            string  `json:"status"`
	Value             float64 `json:"value"`
	DueDate           string  `json:"dueDate"`
	PaymentDate       string  `json:"paymentDate"`
	ClientPaymentDate string  `json:"clientPaymentDate"`
	ConfirmedDate     string  `json:"confirmedDate"`
	InvoiceURL        string  `json:"invoiceUrl"`
	ExternalReference string  `json:"externalReference"`
}

// PaidDate дата поступления оплаты, если она известна.
func (p *Payment) PaidDate() *time.Time {
	for _, d := range []string{p.PaymentDate, p.ClientPaymentDate, p.ConfirmedDate} {
		if t := ParseDate(d); t != nil {
			return t
		}
	}
	return nil
}

// Event тело вебхука шлюза.
type Event struct {
	ID           string        `json:"id"`
	Event        string        `json:"event"`
	DateCreated  string        `json:"dateCreated"`
	Payment      *Payment      `json:"payment,omitempty"`
	Subscription *Subscription `json:"subscription,omitempty"`
}

// ObjectID id объекта, к которому относится событие.
func (e *Event) ObjectID() string {
	switch {
	case e.Payment != nil:
		return e.Payment.ID
	case e.Subscription != nil:
		return e.Subscription.ID
	}
	return ""
}

type listResponse[T any] struct {
	HasMore    bool `json:"hasMore"`
	TotalCount int  `json:"totalCount"`
	Limit      int  `json:"limit"`
	Offset     int  `json:"offset"`
	Data       []T  `json:"data"`
}

// ErrorItem элемент списка ошибок шлюза.
type ErrorItem struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// APIError ответ шлюза с кодом вне 2xx.
type APIError struct {
	StatusCode int
	Errors     []ErrorItem `json:"errors"`
}

func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("asaas: status %d", e.StatusCode)
	}
	parts := make([]string, 0, len(e.Errors))
	for _, item := range e.Errors {
		parts = append(parts, item.Code+": "+item.Description)
	}
	return fmt.Sprintf("asaas: status %d: %s", e.StatusCode, strings.Join(parts, "; "))
}

// ParseDate разбирает дату шлюза. Пустая или некорректная строка даёт nil.
func ParseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{DateLayout, "2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return &t
		}
	}
	return nil
}

// Cents переводит сумму в реалах в центы.
func Cents(value float64) int64 {
	return int64(math.Round(value * 100))
}

// Reais переводит центы в сумму в реалах.
func Reais(cents int64) float64 {
	return float64(cents) / 100
}
