package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/magabrotheeeer/buscaaqui/internal/models"
)

const subscriptionColumns = `s.id, s.user_uid, s.plan_id, p.slug, s.status, s.billing_type,
	COALESCE(s.gateway_subscription_id, ''), s.starts_at, s.ends_at, s.created_at, s.updated_at`

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	sub := &models.Subscription{}
	if err := row.Scan(&sub.ID, &sub.UserUID, &sub.PlanID, &sub.PlanSlug, &sub.Status, &sub.BillingType,
		&sub.GatewaySubscriptionID, &sub.StartsAt, &sub.EndsAt, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
		return nil, err
	}
	return sub, nil
}

// GetActiveSubscription возвращает действующую (active или trialing) подписку
// пользователя. Если их несколько, берётся заканчивающаяся позже всех.
func (s *Storage) GetActiveSubscription(ctx context.Context, uid string) (*models.Subscription, error) {
	const op = "storage.GetActiveSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions s JOIN plans p ON p.id = s.plan_id
			  WHERE s.user_uid = $1 AND s.status IN ('active', 'trialing')
			  ORDER BY s.ends_at DESC, s.id DESC
			  LIMIT 1`
	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query, uid))
	if err != nil {
		return nil, wrap(op, err)
	}
	return sub, nil
}

// UpsertSubscription создаёт подписку или обновляет существующую с той же парой
// (user_uid, gateway_subscription_id). created сообщает, была ли вставлена новая строка.
func (s *Storage) UpsertSubscription(ctx context.Context, sub models.Subscription) (id int64, created bool, err error) {
	const op = "storage.UpsertSubscription"

	query := `INSERT INTO subscriptions (user_uid, plan_id, status, billing_type, gateway_subscription_id,
			      starts_at, ends_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  ON CONFLICT (user_uid, gateway_subscription_id) DO UPDATE SET
			      plan_id = EXCLUDED.plan_id,
			      status = EXCLUDED.status,
			      billing_type = EXCLUDED.billing_type,
			      starts_at = EXCLUDED.starts_at,
			      ends_at = EXCLUDED.ends_at,
			      updated_at = now()
			  RETURNING id, (xmax = 0)`
	err = s.DB.QueryRowContext(ctx, query, sub.UserUID, sub.PlanID, sub.Status, sub.BillingType,
		nullString(sub.GatewaySubscriptionID), sub.StartsAt, sub.EndsAt).Scan(&id, &created)
	if err != nil {
		return 0, false, wrap(op, err)
	}
	return id, created, nil
}

// UpdateSubscriptionPlan меняет тариф, окно действия и привязку к шлюзу.
func (s *Storage) UpdateSubscriptionPlan(ctx context.Context, sub models.Subscription) error {
	const op = "storage.UpdateSubscriptionPlan"
	res, err := s.DB.ExecContext(ctx,
		`UPDATE subscriptions
		 SET plan_id = $2, starts_at = $3, ends_at = $4,
		     gateway_subscription_id = COALESCE($5, gateway_subscription_id),
		     billing_type = COALESCE(NULLIF($6, ''), billing_type),
		     updated_at = now()
		 WHERE id = $1`,
		sub.ID, sub.PlanID, sub.StartsAt, sub.EndsAt, nullString(sub.GatewaySubscriptionID), sub.BillingType)
	if err != nil {
		return wrap(op, err)
	}
	return expectRows(op, res)
}

// SetSubscriptionStatus меняет статус подписки по id.
func (s *Storage) SetSubscriptionStatus(ctx context.Context, id int64, status string) error {
	const op = "storage.SetSubscriptionStatus"
	res, err := s.DB.ExecContext(ctx,
		`UPDATE subscriptions SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return wrap(op, err)
	}
	return expectRows(op, res)
}

// SetStatusByGatewaySubscription меняет статус всех локальных подписок,
// привязанных к подписке шлюза, кроме уже завершённых. Возвращает число изменённых строк.
func (s *Storage) SetStatusByGatewaySubscription(ctx context.Context, gatewaySubscriptionID, status string) (int64, error) {
	const op = "storage.SetStatusByGatewaySubscription"
	res, err := s.DB.ExecContext(ctx,
		`UPDATE subscriptions SET status = $2, updated_at = now()
		 WHERE gateway_subscription_id = $1 AND status NOT IN ('cancelled', 'expired')`,
		gatewaySubscriptionID, status)
	if err != nil {
		return 0, wrap(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// ExpireSubscriptions завершает подписки, окно которых закончилось.
func (s *Storage) ExpireSubscriptions(ctx context.Context, now time.Time) (int64, error) {
	const op = "storage.ExpireSubscriptions"
	res, err := s.DB.ExecContext(ctx,
		`UPDATE subscriptions SET status = 'expired', updated_at = now()
		 WHERE status IN ('active', 'trialing', 'past_due') AND ends_at < $1`, now)
	if err != nil {
		return 0, wrap(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// ListExpiringSubscriptions возвращает действующие подписки, окно которых
// заканчивается в интервале [from, to).
func (s *Storage) ListExpiringSubscriptions(ctx context.Context, from, to time.Time) ([]models.ExpiringSubscription, error) {
	const op = "storage.ListExpiringSubscriptions"
	rows, err := s.DB.QueryContext(ctx,
		`SELECT s.id, s.user_uid, u.email, u.name, p.name, s.ends_at
		 FROM subscriptions s
		 JOIN users u ON u.uid = s.user_uid
		 JOIN plans p ON p.id = s.plan_id
		 WHERE s.status IN ('active', 'trialing') AND s.ends_at >= $1 AND s.ends_at < $2
		 ORDER BY s.ends_at`, from, to)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	var result []models.ExpiringSubscription
	for rows.Next() {
		var e models.ExpiringSubscription
		if err := rows.Scan(&e.SubscriptionID, &e.UserUID, &e.Email, &e.Name, &e.PlanName, &e.EndsAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

const gatewaySubscriptionColumns = `id, gateway_subscription_id, gateway_customer_id, COALESCE(user_uid::text, ''),
	plan_code, status, billing_type, value_cents, next_due_date, started_at, created_at, updated_at`

func scanGatewaySubscription(row rowScanner) (*models.GatewaySubscription, error) {
	g := &models.GatewaySubscription{}
	var nextDue, started sql.NullTime
	if err := row.Scan(&g.ID, &g.GatewaySubscriptionID, &g.GatewayCustomerID, &g.UserUID, &g.PlanCode,
		&g.Status, &g.BillingType, &g.ValueCents, &nextDue, &started, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	g.NextDueDate = timePtr(nextDue)
	g.StartedAt = timePtr(started)
	return g, nil
}

// UpsertGatewaySubscription сохраняет зеркальную запись подписки шлюза.
// Пустые user_uid и plan_code не затирают уже известные значения,
// дата начала фиксируется при первой записи.
func (s *Storage) UpsertGatewaySubscription(ctx context.Context, g models.GatewaySubscription) error {
	const op = "storage.UpsertGatewaySubscription"
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO gateway_subscriptions (gateway_subscription_id, gateway_customer_id, user_uid, plan_code,
		     status, billing_type, value_cents, next_due_date, started_at)
		 VALUES ($1, $2, $3::uuid, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (gateway_subscription_id) DO UPDATE SET
		     gateway_customer_id = COALESCE(NULLIF(EXCLUDED.gateway_customer_id, ''), gateway_subscriptions.gateway_customer_id),
		     user_uid = COALESCE(EXCLUDED.user_uid, gateway_subscriptions.user_uid),
		     plan_code = COALESCE(NULLIF(EXCLUDED.plan_code, ''), gateway_subscriptions.plan_code),
		     status = EXCLUDED.status,
		     billing_type = COALESCE(NULLIF(EXCLUDED.billing_type, ''), gateway_subscriptions.billing_type),
		     value_cents = CASE WHEN EXCLUDED.value_cents > 0 THEN EXCLUDED.value_cents ELSE gateway_subscriptions.value_cents END,
		     next_due_date = COALESCE(EXCLUDED.next_due_date, gateway_subscriptions.next_due_date),
		     started_at = COALESCE(gateway_subscriptions.started_at, EXCLUDED.started_at),
		     updated_at = now()`,
		g.GatewaySubscriptionID, g.GatewayCustomerID, nullString(g.UserUID), g.PlanCode, g.Status,
		g.BillingType, g.ValueCents, g.NextDueDate, g.StartedAt)
	if err != nil {
		return wrap(op, err)
	}
	return nil
}

// GetGatewaySubscription возвращает зеркальную запись по id подписки шлюза.
func (s *Storage) GetGatewaySubscription(ctx context.Context, gatewaySubscriptionID string) (*models.GatewaySubscription, error) {
	const op = "storage.GetGatewaySubscription"
	g, err := scanGatewaySubscription(s.DB.QueryRowContext(ctx,
		`SELECT `+gatewaySubscriptionColumns+` FROM gateway_subscriptions WHERE gateway_subscription_id = $1`,
		gatewaySubscriptionID))
	if err != nil {
		return nil, wrap(op, err)
	}
	return g, nil
}

// SetGatewaySubscriptionStatus меняет статус зеркальной записи.
func (s *Storage) SetGatewaySubscriptionStatus(ctx context.Context, gatewaySubscriptionID, status string) error {
	const op = "storage.SetGatewaySubscriptionStatus"
	res, err := s.DB.ExecContext(ctx,
		`UPDATE gateway_subscriptions SET status = $2, updated_at = now() WHERE gateway_subscription_id = $1`,
		gatewaySubscriptionID, status)
	if err != nil {
		return wrap(op, err)
	}
	return expectRows(op, res)
}

// ListGatewaySubscriptions возвращает все зеркальные записи.
func (s *Storage) ListGatewaySubscriptions(ctx context.Context) ([]models.GatewaySubscription, error) {
	const op = "storage.ListGatewaySubscriptions"
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+gatewaySubscriptionColumns+` FROM gateway_subscriptions ORDER BY id`)
	if err != nil {
		return nil, wrap(op, err)
	}
	return collectGatewaySubscriptions(op, rows)
}

// ListGatewaySubscriptionsByUser возвращает записи пользователя: привязанные
// напрямую или через его клиента в шлюзе. Новые первыми.
func (s *Storage) ListGatewaySubscriptionsByUser(ctx context.Context, uid string) ([]models.GatewaySubscription, error) {
	const op = "storage.ListGatewaySubscriptionsByUser"
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+gatewaySubscriptionColumns+` FROM gateway_subscriptions
		 WHERE user_uid = $1
		    OR gateway_customer_id = (
		        SELECT gateway_customer_id FROM users WHERE uid = $1 AND gateway_customer_id IS NOT NULL)
		 ORDER BY created_at DESC, id DESC`, uid)
	if err != nil {
		return nil, wrap(op, err)
	}
	return collectGatewaySubscriptions(op, rows)
}

func collectGatewaySubscriptions(op string, rows *sql.Rows) ([]models.GatewaySubscription, error) {
	defer rows.Close()
	result := make([]models.GatewaySubscription, 0)
	for rows.Next() {
		g, err := scanGatewaySubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
