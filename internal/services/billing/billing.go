// Package services оформляет и отменяет платные подписки через платёжный шлюз.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/buscaaqui/internal/asaas"
	"github.com/magabrotheeeer/buscaaqui/internal/lib/sl"
	"github.com/magabrotheeeer/buscaaqui/internal/models"
	"github.com/magabrotheeeer/buscaaqui/internal/plancode"
)

// Repository описывает хранилище пользователей, тарифов, подписок и платежей.
type Repository interface {
	GetUser(ctx context.Context, uid string) (*models.User, error)
	SetGatewayCustomerID(ctx context.Context, uid, customerID string) error
	ListUsersWithCustomer(ctx context.Context) ([]models.User, error)
	GetPlan(ctx context.Context, id int64) (*models.Plan, error)
	GetPlanBySlug(ctx context.Context, slug string) (*models.Plan, error)
	GetActiveSubscription(ctx context.Context, uid string) (*models.Subscription, error)
	UpsertGatewaySubscription(ctx context.Context, g models.GatewaySubscription) error
	ListGatewaySubscriptionsByUser(ctx context.Context, uid string) ([]models.GatewaySubscription, error)
	SetGatewaySubscriptionStatus(ctx context.Context, gatewaySubscriptionID, status string) error
	SetStatusByGatewaySubscription(ctx context.Context, gatewaySubscriptionID, status string) (int64, error)
	UpsertPayment(ctx context.Context, p models.Payment) error
	ListPaymentsByUser(ctx context.Context, uid string, page models.Page) ([]models.Payment, error)
}

// Gateway операции платёжного шлюза.
type Gateway interface {
	CreateCustomer(ctx context.Context, req asaas.CustomerRequest) (*asaas.Customer, error)
	CreateSubscription(ctx context.Context, req asaas.SubscriptionRequest) (*asaas.Subscription, error)
	CancelSubscription(ctx context.Context, id string) error
	ListSubscriptions(ctx context.Context, customerID string) ([]asaas.Subscription, error)
	ListSubscriptionPayments(ctx context.Context, subscriptionID string) ([]asaas.Payment, error)
}

// BillingService работает с платными подписками пользователей.
type BillingService struct {
	repo    Repository
	gateway Gateway
	log     *slog.Logger
	now     func() time.Time
}

// NewBillingService создает новый экземпляр BillingService.
func NewBillingService(repo Repository, gateway Gateway, log *slog.Logger) *BillingService {
	return &BillingService{
		repo:    repo,
		gateway: gateway,
		log:     log,
		now:     time.Now,
	}
}

func gatewayErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, models.ErrGateway, err)
}

// CurrentPlan возвращает тариф активной подписки пользователя или бесплатный тариф.
func (s *BillingService) CurrentPlan(ctx context.Context, uid string) (*models.Plan, error) {
	current, err := s.Current(ctx, uid)
	if err != nil {
		return nil, err
	}
	return &current.Plan, nil
}

// Current возвращает действующий тариф и подписку пользователя.
func (s *BillingService) Current(ctx context.Context, uid string) (*models.CurrentSubscription, error) {
	const op = "services.billing.Current"

	sub, err := s.repo.GetActiveSubscription(ctx, uid)
	if errors.Is(err, models.ErrNotFound) {
		plan, err := s.repo.GetPlanBySlug(ctx, models.PlanFree)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return &models.CurrentSubscription{Plan: *plan}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	plan, err := s.repo.GetPlan(ctx, sub.PlanID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sub.PlanSlug = plan.Slug
	return &models.CurrentSubscription{Plan: *plan, Subscription: sub}, nil
}

// Checkout оформляет подписку на платный тариф. Локальная подписка появится
// после сверки с подтверждённым платежом.
func (s *BillingService) Checkout(ctx context.Context, uid string, req models.CheckoutRequest) (*models.CheckoutResult, error) {
	const op = "services.billing.Checkout"
	log := s.log.With(slog.String("op", op), sl.UID(uid), slog.String("plan", req.Plan))

	plan, err := s.repo.GetPlanBySlug(ctx, req.Plan)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w: unknown plan %q", op, models.ErrInvalidInput, req.Plan)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !plan.IsActive || !plan.IsPaid() {
		return nil, fmt.Errorf("%s: %w: plan %q is not available for checkout", op, models.ErrInvalidInput, req.Plan)
	}

	mirrors, err := s.repo.ListGatewaySubscriptionsByUser(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if open := openSubscription(mirrors); open != nil {
		return nil, fmt.Errorf("%s: %w: subscription %s is still open", op, models.ErrAlreadyExists, open.GatewaySubscriptionID)
	}

	user, err := s.repo.GetUser(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	customerID, err := s.ensureCustomer(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now().UTC()
	code := plancode.CheckoutCode(plan.Slug)
	sub, err := s.gateway.CreateSubscription(ctx, asaas.SubscriptionRequest{
		Customer:          customerID,
		BillingType:       req.BillingType,
		Value:             asaas.Reais(plan.PriceCents),
		NextDueDate:       now.Format(asaas.DateLayout),
		Cycle:             asaas.CycleMonthly,
		Description:       "BuscaAqui " + plan.Name,
		ExternalReference: code,
	})
	if err != nil {
		return nil, gatewayErr(op, err)
	}

	// Новая подписка ещё не оплачена: локальная запись появится после подтверждения платежа.
	status := models.MirrorStatus(sub.Status, false)
	err = s.repo.UpsertGatewaySubscription(ctx, models.GatewaySubscription{
		GatewaySubscriptionID: sub.ID,
		GatewayCustomerID:     customerID,
		UserUID:               uid,
		PlanCode:              code,
		Status:                status,
		BillingType:           models.NormalizeBillingType(req.BillingType),
		ValueCents:            plan.PriceCents,
		NextDueDate:           asaas.ParseDate(sub.NextDueDate),
		StartedAt:             &now,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := &models.CheckoutResult{GatewaySubscriptionID: sub.ID, Status: status}
	payments, err := s.gateway.ListSubscriptionPayments(ctx, sub.ID)
	if err != nil {
		log.Warn("failed to load first payment", sl.Err(err))
		return result, nil
	}
	for _, p := range payments {
		if err := s.repo.UpsertPayment(ctx, paymentFromGateway(p, uid)); err != nil {
			log.Warn("failed to store payment", slog.String("payment_id", p.ID), sl.Err(err))
		}
		if result.InvoiceURL == "" {
			result.InvoiceURL = p.InvoiceURL
		}
	}

	log.Info("checkout created", slog.String("gateway_subscription_id", sub.ID))
	return result, nil
}

func (s *BillingService) ensureCustomer(ctx context.Context, user *models.User) (string, error) {
	if user.GatewayCustomerID != "" {
		return user.GatewayCustomerID, nil
	}
	name := user.Name
	if user.AccountType == models.AccountBusiness && user.BusinessName != "" {
		name = user.BusinessName
	}
	customer, err := s.gateway.CreateCustomer(ctx, asaas.CustomerRequest{
		Name:              name,
		Email:             user.Email,
		CpfCnpj:           user.Document,
		MobilePhone:       user.Phone,
		ExternalReference: user.UID,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrGateway, err)
	}
	if err := s.repo.SetGatewayCustomerID(ctx, user.UID, customer.ID); err != nil {
		return "", err
	}
	return customer.ID, nil
}

// Cancel отменяет открытую подписку пользователя в шлюзе и локально.
func (s *BillingService) Cancel(ctx context.Context, uid string) error {
	const op = "services.billing.Cancel"

	mirrors, err := s.repo.ListGatewaySubscriptionsByUser(ctx, uid)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	open := openSubscription(mirrors)
	if open == nil {
		return fmt.Errorf("%s: %w: no open subscription", op, models.ErrNotFound)
	}

	if err := s.gateway.CancelSubscription(ctx, open.GatewaySubscriptionID); err != nil {
		return gatewayErr(op, err)
	}
	if err := s.repo.SetGatewaySubscriptionStatus(ctx, open.GatewaySubscriptionID, models.GatewayInactive); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := s.repo.SetStatusByGatewaySubscription(ctx, open.GatewaySubscriptionID, models.SubscriptionCancelled); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("subscription cancelled",
		slog.String("op", op), sl.UID(uid),
		slog.String("gateway_subscription_id", open.GatewaySubscriptionID))
	return nil
}

// ListPayments возвращает платежи пользователя.
func (s *BillingService) ListPayments(ctx context.Context, uid string, page models.Page) ([]models.Payment, error) {
	const op = "services.billing.ListPayments"
	payments, err := s.repo.ListPaymentsByUser(ctx, uid, page.Normalize())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return payments, nil
}

// SyncFromGateway загружает подписки известных клиентов шлюза в зеркальную таблицу.
func (s *BillingService) SyncFromGateway(ctx context.Context) (*models.SyncReport, error) {
	const op = "services.billing.SyncFromGateway"

	users, err := s.repo.ListUsersWithCustomer(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	report := &models.SyncReport{}
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("%s: %w", op, err)
		}
		report.Customers++
		subs, err := s.gateway.ListSubscriptions(ctx, u.GatewayCustomerID)
		if err != nil {
			report.Failed++
			s.log.Error("failed to list gateway subscriptions",
				slog.String("op", op), sl.UID(u.UID), sl.Err(err))
			continue
		}
		for _, sub := range subs {
			status := sub.Status
			if sub.Deleted {
				status = models.GatewayDeleted
			}
			if status == models.GatewayActive {
				paid, err := s.syncPayments(ctx, sub.ID, u.UID)
				if err != nil {
					report.Failed++
					s.log.Error("failed to list subscription payments",
						slog.String("op", op), slog.String("gateway_subscription_id", sub.ID), sl.Err(err))
					continue
				}
				status = models.MirrorStatus(status, paid)
			}
			err := s.repo.UpsertGatewaySubscription(ctx, models.GatewaySubscription{
				GatewaySubscriptionID: sub.ID,
				GatewayCustomerID:     u.GatewayCustomerID,
				UserUID:               u.UID,
				PlanCode:              sub.ExternalReference,
				Status:                status,
				BillingType:           models.NormalizeBillingType(sub.BillingType),
				ValueCents:            asaas.Cents(sub.Value),
				NextDueDate:           asaas.ParseDate(sub.NextDueDate),
				StartedAt:             asaas.ParseDate(sub.DateCreated),
			})
			if err != nil {
				report.Failed++
				s.log.Error("failed to store gateway subscription",
					slog.String("op", op), slog.String("gateway_subscription_id", sub.ID), sl.Err(err))
				continue
			}
			report.Upserted++
		}
	}
	return report, nil
}

// syncPayments сохраняет платежи подписки и сообщает, поступила ли хоть одна оплата.
func (s *BillingService) syncPayments(ctx context.Context, subscriptionID, uid string) (bool, error) {
	payments, err := s.gateway.ListSubscriptionPayments(ctx, subscriptionID)
	if err != nil {
		return false, err
	}
	paid := false
	for _, p := range payments {
		if err := s.repo.UpsertPayment(ctx, paymentFromGateway(p, uid)); err != nil {
			return false, err
		}
		if models.IsPaymentSettled(p.Status) {
			paid = true
		}
	}
	return paid, nil
}

// openSubscription возвращает самую новую подписку шлюза, которая списывает деньги или ждёт оплаты.
// Записи приходят отсортированными от новых к старым.
func openSubscription(mirrors []models.GatewaySubscription) *models.GatewaySubscription {
	for i := range mirrors {
		if models.IsGatewayOpen(mirrors[i].Status) {
			return &mirrors[i]
		}
	}
	return nil
}

func paymentFromGateway(p asaas.Payment, uid string) models.Payment {
	return models.Payment{
		GatewayPaymentID:      p.ID,
		GatewaySubscriptionID: p.Subscription,
		UserUID:               uid,
		BillingType:           models.NormalizeBillingType(p.BillingType),
		Status:                p.Status,
		ValueCents:            asaas.Cents(p.Value),
		DueDate:               asaas.ParseDate(p.DueDate),
		PaidAt:                p.PaidDate(),
		InvoiceURL:            p.InvoiceURL,
	}
}
