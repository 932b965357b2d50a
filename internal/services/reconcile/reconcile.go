// Package services сверяет подписки платёжного шлюза с локальными подписками.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/magabrotheeeer/buscaaqui/internal/lib/period"
	"github.com/magabrotheeeer/buscaaqui/internal/lib/sl"
	"github.com/magabrotheeeer/buscaaqui/internal/metrics"
	"github.com/magabrotheeeer/buscaaqui/internal/models"
	"github.com/magabrotheeeer/buscaaqui/internal/plancode"
)

// Repository описывает данные, нужные для сверки.
type Repository interface {
	// PlanIDs возвращает id тарифов по slug.
	PlanIDs(ctx context.Context) (map[string]int64, error)
	// ListGatewaySubscriptions возвращает все зеркальные записи шлюза.
	ListGatewaySubscriptions(ctx context.Context) ([]models.GatewaySubscription, error)
	// ListGatewaySubscriptionsByUser возвращает зеркальные записи одного пользователя.
	ListGatewaySubscriptionsByUser(ctx context.Context, uid string) ([]models.GatewaySubscription, error)
	GetUserByCustomerID(ctx context.Context, customerID string) (*models.User, error)
	GetActiveSubscription(ctx context.Context, uid string) (*models.Subscription, error)
	// UpsertSubscription создаёт подписку или обновляет строку с той же парой (user_uid, gateway_subscription_id).
	UpsertSubscription(ctx context.Context, sub models.Subscription) (int64, bool, error)
	UpdateSubscriptionPlan(ctx context.Context, sub models.Subscription) error
}

// ReconcileService приводит локальные подписки в соответствие со шлюзом.
type ReconcileService struct {
	repo Repository
	log  *slog.Logger
	now  func() time.Time
}

// NewReconcileService создает новый экземпляр ReconcileService.
func NewReconcileService(repo Repository, log *slog.Logger) *ReconcileService {
	return &ReconcileService{
		repo: repo,
		log:  log,
		now:  time.Now,
	}
}

// ReconcileAll сверяет все записи шлюза. Ошибка одной записи попадает в отчёт и не прерывает сверку.
func (s *ReconcileService) ReconcileAll(ctx context.Context) (*models.ReconcileReport, error) {
	const op = "services.reconcile.ReconcileAll"

	records, err := s.repo.ListGatewaySubscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	report, err := s.reconcile(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("reconciliation finished",
		slog.String("op", op),
		slog.Int("total", report.Total),
		slog.Any("counts", report.Counts))
	return report, nil
}

// ReconcileUser сверяет записи шлюза одного пользователя.
func (s *ReconcileService) ReconcileUser(ctx context.Context, uid string) (*models.ReconcileReport, error) {
	const op = "services.reconcile.ReconcileUser"

	records, err := s.repo.ListGatewaySubscriptionsByUser(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	report, err := s.reconcile(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Debug("user reconciled", slog.String("op", op), sl.UID(uid), slog.Any("counts", report.Counts))
	return report, nil
}

func (s *ReconcileService) reconcile(ctx context.Context, records []models.GatewaySubscription) (*models.ReconcileReport, error) {
	planIDs, err := s.repo.PlanIDs(ctx)
	if err != nil {
		return nil, err
	}

	// более поздние записи применяются последними
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})

	report := &models.ReconcileReport{Counts: map[string]int{}, Results: []models.ReconcileResult{}}
	now := s.now().UTC()
	for _, rec := range records {
		res := s.reconcileRecord(ctx, rec, planIDs, now)
		metrics.ReconcileOutcomes.WithLabelValues(res.Outcome).Inc()
		if res.Outcome == models.OutcomeError {
			s.log.Error("reconcile record failed",
				slog.String("gateway_subscription_id", rec.GatewaySubscriptionID),
				slog.String("error", res.Error))
		}
		report.Add(res)
	}
	return report, nil
}

func (s *ReconcileService) reconcileRecord(ctx context.Context, rec models.GatewaySubscription, planIDs map[string]int64, now time.Time) models.ReconcileResult {
	res := models.ReconcileResult{GatewaySubscriptionID: rec.GatewaySubscriptionID, UserUID: rec.UserUID}
	skip := func(reason string) models.ReconcileResult {
		res.Outcome, res.Success, res.Reason = models.OutcomeSkipped, true, reason
		return res
	}
	fail := func(err error) models.ReconcileResult {
		res.Outcome, res.Success, res.Error = models.OutcomeError, false, err.Error()
		return res
	}

	if rec.GatewayCustomerID == "" {
		return skip("missing gateway customer id")
	}
	if res.UserUID == "" {
		user, err := s.repo.GetUserByCustomerID(ctx, rec.GatewayCustomerID)
		if errors.Is(err, models.ErrNotFound) {
			return skip("no user for gateway customer " + rec.GatewayCustomerID)
		}
		if err != nil {
			return fail(err)
		}
		res.UserUID = user.UID
	}
	if rec.Status != models.GatewayActive {
		return skip("gateway status " + rec.Status)
	}

	slug, known := plancode.Resolve(rec.PlanCode)
	if !known {
		s.log.Warn("unknown plan code, using free plan",
			slog.String("plan_code", rec.PlanCode),
			slog.String("gateway_subscription_id", rec.GatewaySubscriptionID))
	}
	planID, ok := planIDs[slug]
	if !ok {
		return fail(fmt.Errorf("plan %q not found", slug))
	}

	active, err := s.repo.GetActiveSubscription(ctx, res.UserUID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return fail(err)
	}

	if active == nil {
		var startedAt time.Time
		if rec.StartedAt != nil {
			startedAt = *rec.StartedAt
		}
		startsAt, endsAt := period.CurrentWindow(startedAt, now)
		_, created, err := s.repo.UpsertSubscription(ctx, models.Subscription{
			UserUID:               res.UserUID,
			PlanID:                planID,
			Status:                models.SubscriptionActive,
			BillingType:           models.NormalizeBillingType(rec.BillingType),
			GatewaySubscriptionID: rec.GatewaySubscriptionID,
			StartsAt:              startsAt,
			EndsAt:                endsAt,
		})
		if err != nil {
			return fail(err)
		}
		res.Success = true
		res.Outcome = models.OutcomeUpdated
		if created {
			res.Outcome = models.OutcomeCreated
		}
		return res
	}

	if active.PlanID == planID {
		res.Outcome, res.Success = models.OutcomeAlreadySynced, true
		return res
	}

	startsAt, endsAt := period.SubscriptionWindow(now, now)
	err = s.repo.UpdateSubscriptionPlan(ctx, models.Subscription{
		ID:                    active.ID,
		PlanID:                planID,
		BillingType:           models.NormalizeBillingType(rec.BillingType),
		GatewaySubscriptionID: rec.GatewaySubscriptionID,
		StartsAt:              startsAt,
		EndsAt:                endsAt,
	})
	if err != nil {
		return fail(err)
	}
	res.Outcome, res.Success = models.OutcomeUpdated, true
	return res
}
