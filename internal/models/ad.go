package models

import "time"

// Статусы объявления.
const (
	AdPending  = "pending"
	AdApproved = "approved"
	AdRejected = "rejected"
	AdExpired  = "expired"
)

// Ad объявление. Фото хранятся только ссылками.
type Ad struct {
	ID               int64      `json:"id"`
	UserUID          string     `json:"user_uid"`
	CategoryID       int64      `json:"category_id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	PriceCents       int64      `json:"price_cents"`
	City             string     `json:"city"`
	Photos           []string   `json:"photos"`
	Status           string     `json:"status"`
	RejectionReason  string     `json:"rejection_reason,omitempty"`
	HighlightedUntil *time.Time `json:"highlighted_until,omitempty"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// IsHighlighted сообщает, выделено ли объявление в момент now.
func (a *Ad) IsHighlighted(now time.Time) bool {
	return a.HighlightedUntil != nil && a.HighlightedUntil.After(now)
}

// AdInput тело запроса создания и изменения объявления.
type AdInput struct {
	CategoryID  int64    `json:"category_id" validate:"required,gt=0"`
	Title       string   `json:"title" validate:"required,min=3,max=120"`
	Description string   `json:"description" validate:"required,max=5000"`
	PriceCents  int64    `json:"price_cents" validate:"gte=0"`
	City        string   `json:"city" validate:"required,max=80"`
	Photos      []string `json:"photos" validate:"max=10,dive,url"`
}

// ModerationRequest решение администратора по объявлению.
type ModerationRequest struct {
	Action string `json:"action" validate:"required,oneof=approve reject"`
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

// AdList страница объявлений с общим количеством.
type AdList struct {
	Items  []Ad `json:"items"`
	Total  int  `json:"total"`
	Limit  int  `json:"limit"`
	Offset int  `json:"offset"`
}
