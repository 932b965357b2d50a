// Package services содержит бизнес-логику объявлений: квоты тарифа, модерацию и выделение.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/magabrotheeeer/buscaaqui/internal/cache"
	"github.com/magabrotheeeer/buscaaqui/internal/lib/period"
	"github.com/magabrotheeeer/buscaaqui/internal/lib/sl"
	"github.com/magabrotheeeer/buscaaqui/internal/models"
)

const adCacheTTL = 10 * time.Minute

// quotaStatuses статусы объявлений, которые занимают место в лимите тарифа.
var quotaStatuses = []string{models.AdPending, models.AdApproved}

// AdRepository описывает контракт хранилища объявлений.
type AdRepository interface {
	CreateAd(ctx context.Context, ad models.Ad) (*models.Ad, error)
	GetAd(ctx context.Context, id int64) (*models.Ad, error)
	ListAds(ctx context.Context, f models.AdFilter) ([]models.Ad, int, error)
	UpdateAdContent(ctx context.Context, ad models.Ad) (*models.Ad, error)
	SetAdStatus(ctx context.Context, id int64, status, reason string, expiresAt *time.Time) error
	SetAdHighlight(ctx context.Context, id int64, until time.Time) error
	DeleteAd(ctx context.Context, id int64) error
	CountUserAds(ctx context.Context, uid string, statuses []string) (int, error)
	CountActiveHighlights(ctx context.Context, uid string, now time.Time) (int, error)
	ExpireAds(ctx context.Context, now time.Time) ([]int64, error)
	GetUser(ctx context.Context, uid string) (*models.User, error)
}

// PlanProvider возвращает действующий тариф пользователя.
type PlanProvider interface {
	CurrentPlan(ctx context.Context, uid string) (*models.Plan, error)
}

// Cache описывает методы для кеширования данных.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// Notifier публикует уведомления пользователям.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification)
}

// AdService реализует операции над объявлениями.
type AdService struct {
	repo     AdRepository
	plans    PlanProvider
	cache    Cache
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time
}

// NewAdService создает новый экземпляр AdService.
func NewAdService(repo AdRepository, plans PlanProvider, cache Cache, notifier Notifier, log *slog.Logger) *AdService {
	return &AdService{
		repo:     repo,
		plans:    plans,
		cache:    cache,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

func normalizeInput(in models.AdInput) models.AdInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.City = strings.TrimSpace(in.City)
	if in.Photos == nil {
		in.Photos = []string{}
	}
	return in
}

// Create создает объявление в статусе pending, если лимит тарифа не исчерпан.
func (s *AdService) Create(ctx context.Context, owner models.Viewer, in models.AdInput) (*models.Ad, error) {
	const op = "services.ads.Create"

	if err := s.checkQuota(ctx, owner.UID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	in = normalizeInput(in)
	ad, err := s.repo.CreateAd(ctx, models.Ad{
		UserUID:     owner.UID,
		CategoryID:  in.CategoryID,
		Title:       in.Title,
		Description: in.Description,
		PriceCents:  in.PriceCents,
		City:        in.City,
		Photos:      in.Photos,
		Status:      models.AdPending,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("ad created", slog.String("op", op), slog.Int64("id", ad.ID), sl.UID(owner.UID))
	return ad, nil
}

// load читает объявление из кеша или из хранилища.
func (s *AdService) load(ctx context.Context, id int64) (*models.Ad, error) {
	key := cache.AdKey(id)
	var cached models.Ad
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.log.Warn("failed to read ad from cache", slog.String("key", key), sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	ad, err := s.repo.GetAd(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, ad, adCacheTTL); err != nil {
		s.log.Warn("failed to cache ad", slog.String("key", key), sl.Err(err))
	}
	return ad, nil
}

func (s *AdService) invalidate(ctx context.Context, id int64) {
	key := cache.AdKey(id)
	if err := s.cache.Invalidate(ctx, key); err != nil {
		s.log.Warn("failed to invalidate ad", slog.String("key", key), sl.Err(err))
	}
}

// Get возвращает объявление. Неодобренные объявления видят только владелец и администратор,
// остальным они отдаются как ErrNotFound.
func (s *AdService) Get(ctx context.Context, viewer *models.Viewer, id int64) (*models.Ad, error) {
	const op = "services.ads.Get"
	ad, err := s.load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if ad.Status != models.AdApproved && (viewer == nil || !viewer.CanManage(ad.UserUID)) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return ad, nil
}

func (s *AdService) list(ctx context.Context, f models.AdFilter) (*models.AdList, error) {
	f.Page = f.Page.Normalize()
	items, total, err := s.repo.ListAds(ctx, f)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Ad{}
	}
	return &models.AdList{Items: items, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}

// List публичный поиск. Статус всегда approved, кроме запроса администратора.
func (s *AdService) List(ctx context.Context, viewer *models.Viewer, f models.AdFilter) (*models.AdList, error) {
	const op = "services.ads.List"
	if viewer == nil || !viewer.IsAdmin() {
		f.Status = models.AdApproved
	}
	result, err := s.list(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// Mine возвращает объявления владельца в любом статусе.
func (s *AdService) Mine(ctx context.Context, owner models.Viewer, f models.AdFilter) (*models.AdList, error) {
	const op = "services.ads.Mine"
	f.UserUID = owner.UID
	result, err := s.list(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

func (s *AdService) owned(ctx context.Context, viewer models.Viewer, id int64) (*models.Ad, error) {
	ad, err := s.repo.GetAd(ctx, id)
	if err != nil {
		return nil, err
	}
	if ad.UserUID != viewer.UID {
		return nil, models.ErrForbidden
	}
	return ad, nil
}

func contentChanged(ad *models.Ad, in models.AdInput) bool {
	return ad.CategoryID != in.CategoryID ||
		ad.Title != in.Title ||
		ad.Description != in.Description ||
		ad.PriceCents != in.PriceCents ||
		ad.City != in.City ||
		!slices.Equal(ad.Photos, in.Photos)
}

// checkQuota проверяет, что у пользователя есть место для ещё одного объявления в лимите тарифа.
func (s *AdService) checkQuota(ctx context.Context, uid string) error {
	plan, err := s.plans.CurrentPlan(ctx, uid)
	if err != nil {
		return err
	}
	count, err := s.repo.CountUserAds(ctx, uid, quotaStatuses)
	if err != nil {
		return err
	}
	if count >= plan.MaxAds {
		return fmt.Errorf("%w: plan %s allows %d ads", models.ErrQuotaExceeded, plan.Slug, plan.MaxAds)
	}
	return nil
}

// Update меняет содержимое объявления владельца. Любое изменение отправляет
// объявление на повторную модерацию.
func (s *AdService) Update(ctx context.Context, owner models.Viewer, id int64, in models.AdInput) (*models.Ad, error) {
	const op = "services.ads.Update"

	ad, err := s.owned(ctx, owner, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	in = normalizeInput(in)
	if !contentChanged(ad, in) {
		return ad, nil
	}
	// expired и rejected вне лимита, правка возвращает их в pending
	if !slices.Contains(quotaStatuses, ad.Status) {
		if err := s.checkQuota(ctx, owner.UID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	updated, err := s.repo.UpdateAdContent(ctx, models.Ad{
		ID:          id,
		CategoryID:  in.CategoryID,
		Title:       in.Title,
		Description: in.Description,
		PriceCents:  in.PriceCents,
		City:        in.City,
		Photos:      in.Photos,
		Status:      models.AdPending,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, id)
	s.log.Info("ad updated", slog.String("op", op), slog.Int64("id", id), slog.String("previous_status", ad.Status))
	return updated, nil
}

// Remove удаляет объявление. Разрешено владельцу и администратору.
func (s *AdService) Remove(ctx context.Context, actor models.Viewer, id int64) error {
	const op = "services.ads.Remove"

	ad, err := s.repo.GetAd(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !actor.CanManage(ad.UserUID) {
		return fmt.Errorf("%s: %w", op, models.ErrForbidden)
	}
	if err := s.repo.DeleteAd(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, id)
	s.log.Info("ad removed", slog.String("op", op), slog.Int64("id", id), slog.String("by", actor.UID))
	return nil
}

// Highlight выделяет одобренное объявление владельца на 7 дней.
// Продление уже выделенного объявления не занимает новое место в лимите.
func (s *AdService) Highlight(ctx context.Context, owner models.Viewer, id int64) (*models.Ad, error) {
	const op = "services.ads.Highlight"
	now := s.now()

	ad, err := s.owned(ctx, owner, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if ad.Status != models.AdApproved {
		return nil, fmt.Errorf("%s: %w: only approved ads can be highlighted", op, models.ErrInvalidState)
	}

	if !ad.IsHighlighted(now) {
		plan, err := s.plans.CurrentPlan(ctx, owner.UID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		active, err := s.repo.CountActiveHighlights(ctx, owner.UID, now)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if active >= plan.MaxHighlights {
			return nil, fmt.Errorf("%s: %w: plan %s allows %d highlights", op, models.ErrQuotaExceeded, plan.Slug, plan.MaxHighlights)
		}
	}

	until := period.HighlightUntil(now)
	if err := s.repo.SetAdHighlight(ctx, id, until); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, id)
	ad.HighlightedUntil = &until
	return ad, nil
}

// Moderate одобряет или отклоняет объявление и уведомляет владельца.
func (s *AdService) Moderate(ctx context.Context, id int64, req models.ModerationRequest) (*models.Ad, error) {
	const op = "services.ads.Moderate"
	now := s.now()

	ad, err := s.repo.GetAd(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	reason := strings.TrimSpace(req.Reason)
	switch req.Action {
	case "approve":
		expiresAt := period.AdExpiry(now)
		if err := s.repo.SetAdStatus(ctx, id, models.AdApproved, "", &expiresAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ad.Status = models.AdApproved
		ad.RejectionReason = ""
		ad.ExpiresAt = &expiresAt
	case "reject":
		if reason == "" {
			return nil, fmt.Errorf("%s: %w: reason is required to reject", op, models.ErrInvalidInput)
		}
		if err := s.repo.SetAdStatus(ctx, id, models.AdRejected, reason, nil); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ad.Status = models.AdRejected
		ad.RejectionReason = reason
	default:
		return nil, fmt.Errorf("%s: %w: unknown action %q", op, models.ErrInvalidInput, req.Action)
	}
	s.invalidate(ctx, id)
	s.log.Info("ad moderated", slog.String("op", op), slog.Int64("id", id), slog.String("status", ad.Status))

	s.notifyOwner(ctx, ad)
	return ad, nil
}

func (s *AdService) notifyOwner(ctx context.Context, ad *models.Ad) {
	const op = "services.ads.notifyOwner"
	owner, err := s.repo.GetUser(ctx, ad.UserUID)
	if err != nil {
		s.log.Warn("owner lookup failed, notification dropped", slog.String("op", op), sl.UID(ad.UserUID), sl.Err(err))
		return
	}
	data := map[string]string{
		"ad_id":  strconv.FormatInt(ad.ID, 10),
		"title":  ad.Title,
		"status": ad.Status,
	}
	if ad.RejectionReason != "" {
		data["reason"] = ad.RejectionReason
	}
	s.notifier.Notify(ctx, models.Notification{
		Type:    models.NotificationAdModerated,
		UserUID: owner.UID,
		Email:   owner.Email,
		Name:    owner.Name,
		Data:    data,
	})
}

// Expire переводит просроченные объявления в expired и возвращает их количество.
func (s *AdService) Expire(ctx context.Context) (int, error) {
	const op = "services.ads.Expire"
	ids, err := s.repo.ExpireAds(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, cache.AdKey(id))
	}
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.log.Warn("failed to invalidate expired ads", sl.Err(err))
	}
	s.log.Info("ads expired", slog.String("op", op), slog.Int("count", len(ids)))
	return len(ids), nil
}
