// Package services содержит периодические задачи: истечение объявлений и подписок,
// напоминания об окончании подписки и полную сверку со шлюзом.
package services

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/magabrotheeeer/buscaaqui/internal/lib/sl"
	"github.com/magabrotheeeer/buscaaqui/internal/models"
	"golang.org/x/sync/errgroup"
)

// expiringLead за сколько до конца окна подписки отправляется напоминание.
const expiringLead = 24 * time.Hour

// SubscriptionRepository определяет методы для работы с подписками в хранилище.
type SubscriptionRepository interface {
	ExpireSubscriptions(ctx context.Context, now time.Time) (int64, error)
	ListExpiringSubscriptions(ctx context.Context, from, to time.Time) ([]models.ExpiringSubscription, error)
}

// AdExpirer переводит просроченные объявления в expired.
type AdExpirer interface {
	Expire(ctx context.Context) (int, error)
}

// Reconciler выполняет полную сверку подписок.
type Reconciler interface {
	ReconcileAll(ctx context.Context) (*models.ReconcileReport, error)
}

// Notifier публикует уведомления пользователям.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification)
}

// Intervals периоды запуска задач.
type Intervals struct {
	Expire    time.Duration
	Notify    time.Duration
	Reconcile time.Duration
}

// SchedulerService запускает периодические задачи до отмены контекста.
type SchedulerService struct {
	repo       SubscriptionRepository
	ads        AdExpirer
	reconciler Reconciler
	notifier   Notifier
	intervals  Intervals
	log        *slog.Logger
	now        func() time.Time
}

// NewSchedulerService создает новый экземпляр SchedulerService.
func NewSchedulerService(
	repo SubscriptionRepository,
	ads AdExpirer,
	reconciler Reconciler,
	notifier Notifier,
	intervals Intervals,
	log *slog.Logger,
) *SchedulerService {
	return &SchedulerService{
		repo:       repo,
		ads:        ads,
		reconciler: reconciler,
		notifier:   notifier,
		intervals:  intervals,
		log:        log,
		now:        time.Now,
	}
}

// Run запускает все задачи. Каждая выполняется сразу и затем по своему таймеру.
// Возвращает управление после отмены ctx.
func (s *SchedulerService) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.every(ctx, "expire", s.intervals.Expire, s.RunExpire)
		return nil
	})
	g.Go(func() error {
		s.every(ctx, "notify_expiring", s.intervals.Notify, s.RunNotifyExpiring)
		return nil
	})
	g.Go(func() error {
		s.every(ctx, "reconcile", s.intervals.Reconcile, s.RunReconcile)
		return nil
	})
	return g.Wait()
}

func (s *SchedulerService) every(ctx context.Context, name string, interval time.Duration, job func(context.Context)) {
	if interval <= 0 {
		s.log.Warn("job disabled", slog.String("job", name))
		return
	}
	job(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("job stopped", slog.String("job", name))
			return
		case <-ticker.C:
			job(ctx)
		}
	}
}

// RunExpire переводит просроченные объявления и подписки в expired.
func (s *SchedulerService) RunExpire(ctx context.Context) {
	ads, err := s.ads.Expire(ctx)
	if err != nil {
		s.log.Error("failed to expire ads", sl.Err(err))
	}
	subs, err := s.repo.ExpireSubscriptions(ctx, s.now())
	if err != nil {
		s.log.Error("failed to expire subscriptions", sl.Err(err))
	}
	s.log.Info("expiration finished", slog.Int("ads", ads), slog.Int64("subscriptions", subs))
}

// RunNotifyExpiring уведомляет владельцев подписок, окно которых заканчивается
// через сутки. Интервал поиска равен периоду задачи, поэтому каждая подписка
// попадает в выборку один раз.
func (s *SchedulerService) RunNotifyExpiring(ctx context.Context) {
	now := s.now()
	to := now.Add(expiringLead)
	from := to.Add(-s.intervals.Notify)

	subs, err := s.repo.ListExpiringSubscriptions(ctx, from, to)
	if err != nil {
		s.log.Error("failed to find expiring subscriptions", sl.Err(err))
		return
	}
	if len(subs) == 0 {
		s.log.Info("no expiring subscriptions found")
		return
	}
	s.log.Info("found expiring subscriptions", slog.Int("count", len(subs)))
	for _, sub := range subs {
		s.notifier.Notify(ctx, models.Notification{
			Type:    models.NotificationSubscriptionExpiring,
			UserUID: sub.UserUID,
			Email:   sub.Email,
			Name:    sub.Name,
			Data: map[string]string{
				"subscription_id": strconv.FormatInt(sub.SubscriptionID, 10),
				"plan":            sub.PlanName,
				"ends_at":         sub.EndsAt.Format(time.DateOnly),
			},
		})
	}
}

// RunReconcile запускает полную сверку подписок.
func (s *SchedulerService) RunReconcile(ctx context.Context) {
	report, err := s.reconciler.ReconcileAll(ctx)
	if err != nil {
		s.log.Error("reconciliation failed", sl.Err(err))
		return
	}
	s.log.Info("reconciliation finished",
		slog.Int("total", report.Total),
		slog.Any("counts", report.Counts),
	)
}
