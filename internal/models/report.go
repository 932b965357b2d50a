package models

import "time"

// Статусы жалобы.
const (
	ReportOpen      = "open"
	ReportResolved  = "resolved"
	ReportDismissed = "dismissed"
)

// Report жалоба на объявление.
type Report struct {
	ID            int64      `json:"id"`
	AdID          int64      `json:"ad_id"`
	ReporterUID   string     `json:"reporter_uid,omitempty"`
	Reason        string     `json:"reason"`
	Details       string     `json:"details,omitempty"`
	Status        string     `json:"status"`
	ReviewerNotes string     `json:"reviewer_notes,omitempty"`
	ReviewedBy    string     `json:"reviewed_by,omitempty"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ReportInput тело запроса создания жалобы.
type ReportInput struct {
	AdID    int64  `json:"ad_id" validate:"required,gt=0"`
	Reason  string `json:"reason" validate:"required,oneof=spam fraud offensive duplicate wrong_category other"`
	Details string `json:"details,omitempty" validate:"max=2000"`
}

// ResolveReportRequest решение администратора по жалобе.
type ResolveReportRequest struct {
	Status   string `json:"status" validate:"required,oneof=resolved dismissed"`
	Notes    string `json:"notes,omitempty" validate:"max=2000"`
	RejectAd bool   `json:"reject_ad,omitempty"`
}

// Stats сводка для административной панели.
type Stats struct {
	UsersByAccountType        map[string]int `json:"users_by_account_type"`
	AdsByStatus               map[string]int `json:"ads_by_status"`
	ActiveSubscriptionsByPlan map[string]int `json:"active_subscriptions_by_plan"`
	ReceivedLast30DaysCents   int64          `json:"received_last_30_days_cents"`
	OpenReports               int            `json:"open_reports"`
}
