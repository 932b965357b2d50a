package models

// Итоги сверки одной записи шлюза.
const (
	OutcomeCreated       = "created"
	OutcomeUpdated       = "updated"
	OutcomeAlreadySynced = "already_synced"
	OutcomeSkipped       = "skipped"
	OutcomeError         = "error"
)

// ReconcileResult результат сверки одной записи шлюза.
type ReconcileResult struct {
	GatewaySubscriptionID string `json:"gateway_subscription_id"`
	UserUID               string `json:"user_uid,omitempty"`
	Outcome               string `json:"outcome"`
	Success               bool   `json:"success"`
	Reason                string `json:"reason,omitempty"`
	Error                 string `json:"error,omitempty"`
}

// ReconcileReport результаты сверки пакета записей.
type ReconcileReport struct {
	Total   int               `json:"total"`
	Counts  map[string]int    `json:"counts"`
	Results []ReconcileResult `json:"results"`
}

// Add добавляет результат и обновляет счётчики.
func (r *ReconcileReport) Add(res ReconcileResult) {
	if r.Counts == nil {
		r.Counts = make(map[string]int)
	}
	r.Total++
	r.Counts[res.Outcome]++
	r.Results = append(r.Results, res)
}

// SyncReport итог загрузки подписок из шлюза.
type SyncReport struct {
	Customers int `json:"customers"`
	Upserted  int `json:"upserted"`
	Failed    int `json:"failed"`
}
