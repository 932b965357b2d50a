// Package services принимает и обрабатывает события платёжного шлюза.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/buscaaqui/internal/asaas"
	"github.com/magabrotheeeer/buscaaqui/internal/lib/signature"
	"github.com/magabrotheeeer/buscaaqui/internal/lib/sl"
	"github.com/magabrotheeeer/buscaaqui/internal/metrics"
	"github.com/magabrotheeeer/buscaaqui/internal/models"
)

// Repository описывает хранилище, которое изменяют события шлюза.
type Repository interface {
	SaveWebhookEvent(ctx context.Context, event, objectID string, payload json.RawMessage) (int64, error)
	MarkWebhookEventProcessed(ctx context.Context, id int64, processingError string) error
	UpsertPayment(ctx context.Context, p models.Payment) error
	GetGatewaySubscription(ctx context.Context, gatewaySubscriptionID string) (*models.GatewaySubscription, error)
	UpsertGatewaySubscription(ctx context.Context, g models.GatewaySubscription) error
	SetGatewaySubscriptionStatus(ctx context.Context, gatewaySubscriptionID, status string) error
	SetStatusByGatewaySubscription(ctx context.Context, gatewaySubscriptionID, status string) (int64, error)
	GetUser(ctx context.Context, uid string) (*models.User, error)
	GetUserByCustomerID(ctx context.Context, customerID string) (*models.User, error)
	GetActiveSubscription(ctx context.Context, uid string) (*models.Subscription, error)
	SetSubscriptionStatus(ctx context.Context, id int64, status string) error
}

// Reconciler сверяет подписки пользователя со шлюзом.
type Reconciler interface {
	ReconcileUser(ctx context.Context, uid string) (*models.ReconcileReport, error)
}

// Notifier публикует уведомления пользователям.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification)
}

// Gateway читает подписку из шлюза, если её нет в зеркале.
type Gateway interface {
	GetSubscription(ctx context.Context, id string) (*asaas.Subscription, error)
}

// WebhookService проверяет подпись, сохраняет и обрабатывает события шлюза.
type WebhookService struct {
	repo       Repository
	reconciler Reconciler
	notifier   Notifier
	gateway    Gateway
	secret     string
	log        *slog.Logger
}

// NewWebhookService создает новый экземпляр WebhookService.
func NewWebhookService(repo Repository, reconciler Reconciler, notifier Notifier, gateway Gateway, secret string, log *slog.Logger) *WebhookService {
	return &WebhookService{
		repo:       repo,
		reconciler: reconciler,
		notifier:   notifier,
		gateway:    gateway,
		secret:     secret,
		log:        log,
	}
}

// Verify проверяет подпись тела запроса.
func (s *WebhookService) Verify(body []byte, header string) error {
	if err := signature.Verify(s.secret, body, header); err != nil {
		metrics.WebhookEvents.WithLabelValues("unknown", "unauthorized").Inc()
		return fmt.Errorf("%w: %w", models.ErrUnauthorized, err)
	}
	return nil
}

// Handle сохраняет событие и обрабатывает его. Ошибка обработчика сохраняется
// в записи события и не возвращается; ошибка возвращается только для
// некорректного тела и при невозможности сохранить событие.
func (s *WebhookService) Handle(ctx context.Context, body []byte) error {
	const op = "services.webhook.Handle"

	var ev asaas.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		metrics.WebhookEvents.WithLabelValues("unknown", "invalid").Inc()
		return fmt.Errorf("%s: %w: %w", op, models.ErrInvalidInput, err)
	}
	if ev.Event == "" {
		metrics.WebhookEvents.WithLabelValues("unknown", "invalid").Inc()
		return fmt.Errorf("%s: %w: event type is empty", op, models.ErrInvalidInput)
	}

	log := s.log.With(
		slog.String("op", op),
		slog.String("event", ev.Event),
		slog.String("object_id", ev.ObjectID()),
	)

	id, err := s.repo.SaveWebhookEvent(ctx, ev.Event, ev.ObjectID(), json.RawMessage(body))
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(ev.Event, "error").Inc()
		return fmt.Errorf("%s: %w", op, err)
	}

	result := "ok"
	var handleErr error
	switch {
	case strings.HasPrefix(ev.Event, "PAYMENT_"):
		handleErr = s.handlePayment(ctx, &ev)
	case strings.HasPrefix(ev.Event, "SUBSCRIPTION_"):
		handleErr = s.handleSubscription(ctx, &ev)
	default:
		result = "ignored"
		log.Debug("event ignored")
	}

	processingError := ""
	if handleErr != nil {
		result = "error"
		processingError = handleErr.Error()
		log.Error("failed to process webhook event", sl.Err(handleErr))
	}
	if err := s.repo.MarkWebhookEventProcessed(ctx, id, processingError); err != nil {
		log.Error("failed to mark webhook event processed", sl.Err(err))
	}
	metrics.WebhookEvents.WithLabelValues(ev.Event, result).Inc()
	return nil
}

func (s *WebhookService) handlePayment(ctx context.Context, ev *asaas.Event) error {
	p := ev.Payment
	if p == nil {
		return errors.New("payment object is missing")
	}

	var mirror *models.GatewaySubscription
	if p.Subscription != "" {
		m, err := s.repo.GetGatewaySubscription(ctx, p.Subscription)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return err
		}
		mirror = m
	}

	settled := models.IsPaymentSettled(p.Status) && p.Subscription != ""
	var remote *asaas.Subscription
	if settled && mirror == nil && s.gateway != nil {
		r, err := s.gateway.GetSubscription(ctx, p.Subscription)
		if err != nil {
			s.log.Warn("failed to load subscription from gateway",
				slog.String("gateway_subscription_id", p.Subscription), sl.Err(err))
		} else {
			remote = r
		}
	}

	customerID := p.Customer
	if customerID == "" && mirror != nil {
		customerID = mirror.GatewayCustomerID
	}
	if customerID == "" && remote != nil {
		customerID = remote.Customer
	}

	uid, err := s.resolveUser(ctx, mirror, customerID)
	if err != nil {
		return err
	}

	err = s.repo.UpsertPayment(ctx, models.Payment{
		GatewayPaymentID:      p.ID,
		GatewaySubscriptionID: p.Subscription,
		UserUID:               uid,
		BillingType:           models.NormalizeBillingType(p.BillingType),
		Status:                p.Status,
		ValueCents:            asaas.Cents(p.Value),
		DueDate:               asaas.ParseDate(p.DueDate),
		PaidAt:                p.PaidDate(),
		InvoiceURL:            p.InvoiceURL,
	})
	if err != nil {
		return err
	}

	switch {
	case settled:
		return s.confirmPayment(ctx, p, remote, customerID, uid)
	case p.Status == models.PaymentOverdue:
		return s.markOverdue(ctx, p, uid)
	}
	return nil
}

// confirmPayment единственное место, где зеркальная запись становится ACTIVE.
func (s *WebhookService) confirmPayment(ctx context.Context, p *asaas.Payment, remote *asaas.Subscription, customerID, uid string) error {
	g := models.GatewaySubscription{
		GatewaySubscriptionID: p.Subscription,
		GatewayCustomerID:     customerID,
		UserUID:               uid,
		Status:                models.GatewayActive,
		BillingType:           models.NormalizeBillingType(p.BillingType),
	}
	if remote != nil {
		g.PlanCode = remote.ExternalReference
		g.ValueCents = asaas.Cents(remote.Value)
		g.NextDueDate = asaas.ParseDate(remote.NextDueDate)
		g.StartedAt = asaas.ParseDate(remote.DateCreated)
	}
	if err := s.repo.UpsertGatewaySubscription(ctx, g); err != nil {
		return err
	}

	if uid == "" {
		return fmt.Errorf("no user for gateway customer %q", customerID)
	}
	report, err := s.reconciler.ReconcileUser(ctx, uid)
	if err != nil {
		return err
	}
	for _, res := range report.Results {
		if !res.Success {
			return fmt.Errorf("reconcile %s: %s", res.GatewaySubscriptionID, res.Error)
		}
	}

	user, err := s.repo.GetUser(ctx, uid)
	if err != nil {
		s.log.Warn("payment confirmed for unknown user", sl.UID(uid), sl.Err(err))
		return nil
	}
	s.notifier.Notify(ctx, models.Notification{
		Type:    models.NotificationPaymentConfirmed,
		UserUID: uid,
		Email:   user.Email,
		Name:    user.Name,
		Data: map[string]string{
			"payment_id":  p.ID,
			"value":       fmt.Sprintf("%.2f", p.Value),
			"invoice_url": p.InvoiceURL,
		},
	})
	return nil
}

func (s *WebhookService) markOverdue(ctx context.Context, p *asaas.Payment, uid string) error {
	if p.Subscription != "" {
		err := s.repo.SetGatewaySubscriptionStatus(ctx, p.Subscription, models.GatewayOverdue)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return err
		}
	}
	if uid == "" {
		return nil
	}
	active, err := s.repo.GetActiveSubscription(ctx, uid)
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.repo.SetSubscriptionStatus(ctx, active.ID, models.SubscriptionPastDue)
}

func (s *WebhookService) handleSubscription(ctx context.Context, ev *asaas.Event) error {
	sub := ev.Subscription
	if sub == nil {
		return errors.New("subscription object is missing")
	}

	switch ev.Event {
	case "SUBSCRIPTION_CREATED", "SUBSCRIPTION_UPDATED":
		uid, err := s.resolveUser(ctx, nil, sub.Customer)
		if err != nil {
			return err
		}
		status := sub.Status
		if sub.Deleted {
			status = models.GatewayDeleted
		}
		if status == "" {
			status = models.GatewayActive
		}
		if status == models.GatewayActive {
			paid, err := s.paymentConfirmed(ctx, sub.ID)
			if err != nil {
				return err
			}
			status = models.MirrorStatus(status, paid)
		}
		return s.repo.UpsertGatewaySubscription(ctx, models.GatewaySubscription{
			GatewaySubscriptionID: sub.ID,
			GatewayCustomerID:     sub.Customer,
			UserUID:               uid,
			PlanCode:              sub.ExternalReference,
			Status:                status,
			BillingType:           models.NormalizeBillingType(sub.BillingType),
			ValueCents:            asaas.Cents(sub.Value),
			NextDueDate:           asaas.ParseDate(sub.NextDueDate),
			StartedAt:             asaas.ParseDate(sub.DateCreated),
		})
	case "SUBSCRIPTION_DELETED", "SUBSCRIPTION_INACTIVATED":
		status := models.GatewayInactive
		if ev.Event == "SUBSCRIPTION_DELETED" {
			status = models.GatewayDeleted
		}
		err := s.repo.SetGatewaySubscriptionStatus(ctx, sub.ID, status)
		if errors.Is(err, models.ErrNotFound) {
			err = s.repo.UpsertGatewaySubscription(ctx, models.GatewaySubscription{
				GatewaySubscriptionID: sub.ID,
				GatewayCustomerID:     sub.Customer,
				PlanCode:              sub.ExternalReference,
				Status:                status,
				BillingType:           models.NormalizeBillingType(sub.BillingType),
			})
		}
		if err != nil {
			return err
		}
		n, err := s.repo.SetStatusByGatewaySubscription(ctx, sub.ID, models.SubscriptionCancelled)
		if err != nil {
			return err
		}
		s.log.Info("local subscriptions cancelled",
			slog.String("gateway_subscription_id", sub.ID), slog.Int64("count", n))
		return nil
	}
	s.log.Debug("subscription event ignored", slog.String("event", ev.Event))
	return nil
}

// paymentConfirmed сообщает, была ли подписка уже активирована платёжным событием.
func (s *WebhookService) paymentConfirmed(ctx context.Context, gatewaySubscriptionID string) (bool, error) {
	existing, err := s.repo.GetGatewaySubscription(ctx, gatewaySubscriptionID)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return existing.Status == models.GatewayActive || existing.Status == models.GatewayOverdue, nil
}

// resolveUser ищет пользователя через зеркальную запись или id клиента шлюза.
// Пустой uid без ошибки означает, что пользователь не найден.
func (s *WebhookService) resolveUser(ctx context.Context, mirror *models.GatewaySubscription, customerID string) (string, error) {
	if mirror != nil && mirror.UserUID != "" {
		return mirror.UserUID, nil
	}
	if customerID == "" {
		return "", nil
	}
	user, err := s.repo.GetUserByCustomerID(ctx, customerID)
	if errors.Is(err, models.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return user.UID, nil
}
