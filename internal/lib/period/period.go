// Package period считает окна действия подписок и объявлений.
package period

import "time"

// Длительности, принятые в маркетплейсе.
const (
	SubscriptionDays = 30
	AdDays           = 30
	HighlightDays    = 7
)

// SubscriptionWindow возвращает окно подписки, начинающееся в start.
// Нулевой start заменяется на now.
func SubscriptionWindow(start, now time.Time) (time.Time, time.Time) {
	if start.IsZero() {
		start = now
	}
	start = start.UTC()
	return start, start.AddDate(0, 0, SubscriptionDays)
}

// CurrentWindow возвращает окно подписки, начатой в start, которое ещё не закончилось к now.
// Окна идут подряд по SubscriptionDays дней, первое начинается в start.
func CurrentWindow(start, now time.Time) (time.Time, time.Time) {
	from, to := SubscriptionWindow(start, now)
	for !to.After(now) {
		from, to = to, to.AddDate(0, 0, SubscriptionDays)
	}
	return from, to
}

// AdExpiry момент истечения одобренного объявления.
func AdExpiry(approvedAt time.Time) time.Time {
	return approvedAt.UTC().AddDate(0, 0, AdDays)
}

// HighlightUntil момент окончания выделения объявления.
func HighlightUntil(now time.Time) time.Time {
	return now.UTC().AddDate(0, 0, HighlightDays)
}

// EndsWithin сообщает, заканчивается ли окно [.., end) в ближайшие d от now.
func EndsWithin(end, now time.Time, d time.Duration) bool {
	return end.After(now) && !end.After(now.Add(d))
}
