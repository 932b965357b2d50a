package models

import (
	"encoding/json"
	"time"
)

// Slug тарифов.
const (
	PlanFree         = "free"
	PlanBasic        = "basic"
	PlanBusiness     = "business"
	PlanBusinessPlus = "business_plus"
)

// Category категория объявлений.
type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

// CategoryInput тело запроса создания категории.
type CategoryInput struct {
	Name string `json:"name" validate:"required,max=80"`
	Slug string `json:"slug,omitempty" validate:"omitempty,max=80"`
}

// Plan тариф с лимитами.
type Plan struct {
	ID            int64           `json:"id"`
	Slug          string          `json:"slug"`
	Name          string          `json:"name"`
	PriceCents    int64           `json:"price_cents"`
	MaxAds        int             `json:"max_ads"`
	MaxHighlights int             `json:"max_highlights"`
	Features      json.RawMessage `json:"features"`
	IsActive      bool            `json:"is_active"`
}

// IsPaid сообщает, требует ли тариф оплаты.
func (p *Plan) IsPaid() bool { return p.PriceCents > 0 }
