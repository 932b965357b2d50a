package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/buscaaqui/internal/models"
)

// Stats собирает сводку для административной панели.
func (s *Storage) Stats(ctx context.Context, now time.Time) (*models.Stats, error) {
	const op = "storage.Stats"
	st := &models.Stats{}
	var err error

	if st.UsersByAccountType, err = s.countBy(ctx,
		`SELECT account_type, COUNT(*) FROM users GROUP BY account_type`); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if st.AdsByStatus, err = s.countBy(ctx,
		`SELECT status, COUNT(*) FROM ads GROUP BY status`); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if st.ActiveSubscriptionsByPlan, err = s.countBy(ctx,
		`SELECT p.slug, COUNT(*) FROM subscriptions s JOIN plans p ON p.id = s.plan_id
		 WHERE s.status IN ('active', 'trialing') GROUP BY p.slug`); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	err = s.DB.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(value_cents), 0) FROM payments
		 WHERE status IN ('RECEIVED', 'CONFIRMED', 'RECEIVED_IN_CASH')
		   AND COALESCE(paid_at, updated_at) >= $1`, now.AddDate(0, 0, -30)).Scan(&st.ReceivedLast30DaysCents)
	if err != nil {
		return nil, wrap(op, err)
	}
	err = s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports WHERE status = 'open'`).Scan(&st.OpenReports)
	if err != nil {
		return nil, wrap(op, err)
	}
	return st, nil
}

func (s *Storage) countBy(ctx context.Context, query string) (map[string]int, error) {
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		result[key] = n
	}
	return result, rows.Err()
}
