package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/magabrotheeeer/buscaaqui/internal/models"
)

const paymentColumns = `id, gateway_payment_id, gateway_subscription_id, COALESCE(user_uid::text, ''), billing_type,
	status, value_cents, due_date, paid_at, invoice_url, created_at, updated_at`

// UpsertPayment сохраняет платёж шлюза по его id.
func (s *Storage) UpsertPayment(ctx context.Context, p models.Payment) error {
	const op = "storage.UpsertPayment"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO payments (gateway_payment_id, gateway_subscription_id, user_uid, billing_type, status,
		     value_cents, due_date, paid_at, invoice_url)
		 VALUES ($1, $2, $3::uuid, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (gateway_payment_id) DO UPDATE SET
		     gateway_subscription_id = COALESCE(NULLIF(EXCLUDED.gateway_subscription_id, ''), payments.gateway_subscription_id),
		     user_uid = COALESCE(EXCLUDED.user_uid, payments.user_uid),
		     billing_type = COALESCE(NULLIF(EXCLUDED.billing_type, ''), payments.billing_type),
		     status = EXCLUDED.status,
		     value_cents = EXCLUDED.value_cents,
		     due_date = COALESCE(EXCLUDED.due_date, payments.due_date),
		     paid_at = COALESCE(EXCLUDED.paid_at, payments.paid_at),
		     invoice_url = COALESCE(NULLIF(EXCLUDED.invoice_url, ''), payments.invoice_url),
		     updated_at = now()`,
		p.GatewayPaymentID, p.GatewaySubscriptionID, nullString(p.UserUID), p.BillingType, p.Status,
		p.ValueCents, p.DueDate, p.PaidAt, p.InvoiceURL)
	if err != nil {
		return wrap(op, err)
	}
	return nil
}

// ListPaymentsByUser возвращает платежи пользователя, новые первыми.
func (s *Storage) ListPaymentsByUser(ctx context.Context, uid string, page models.Page) ([]models.Payment, error) {
	const op = "storage.ListPaymentsByUser"
	page = page.Normalize()
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE user_uid = $1
		 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`, uid, page.Limit, page.Offset)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	result := make([]models.Payment, 0)
	for rows.Next() {
		var p models.Payment
		var due, paid sql.NullTime
		if err := rows.Scan(&p.ID, &p.GatewayPaymentID, &p.GatewaySubscriptionID, &p.UserUID, &p.BillingType,
			&p.Status, &p.ValueCents, &due, &paid, &p.InvoiceURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		p.DueDate = timePtr(due)
		p.PaidAt = timePtr(paid)
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// SaveWebhookEvent сохраняет событие шлюза как есть и возвращает его id.
func (s *Storage) SaveWebhookEvent(ctx context.Context, event, objectID string, payload json.RawMessage) (int64, error) {
	const op = "storage.SaveWebhookEvent"
	var id int64
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO webhook_events (event, gateway_object_id, payload) VALUES ($1, $2, $3) RETURNING id`,
		event, objectID, []byte(payload)).Scan(&id)
	if err != nil {
		return 0, wrap(op, err)
	}
	return id, nil
}

// MarkWebhookEventProcessed отмечает событие обработанным и сохраняет текст ошибки обработки.
func (s *Storage) MarkWebhookEventProcessed(ctx context.Context, id int64, processingError string) error {
	const op = "storage.MarkWebhookEventProcessed"
	res, err := s.DB.ExecContext(ctx,
		`UPDATE webhook_events SET processed_at = $2, processing_error = $3 WHERE id = $1`,
		id, time.Now().UTC(), processingError)
	if err != nil {
		return wrap(op, err)
	}
	return expectRows(op, res)
}

// GetWebhookEvent возвращает сохранённое событие.
func (s *Storage) GetWebhookEvent(ctx context.Context, id int64) (*models.WebhookEvent, error) {
	const op = "storage.GetWebhookEvent"
	e := &models.WebhookEvent{}
	var payload []byte
	var processed sql.NullTime
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, event, gateway_object_id, payload, processed_at, processing_error, created_at
		 FROM webhook_events WHERE id = $1`, id).
		Scan(&e.ID, &e.Event, &e.GatewayObjectID, &payload, &processed, &e.ProcessingError, &e.CreatedAt)
	if err != nil {
		return nil, wrap(op, err)
	}
	e.Payload = payload
	e.ProcessedAt = timePtr(processed)
	return e, nil
}
