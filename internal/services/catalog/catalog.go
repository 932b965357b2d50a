// Package services содержит справочники: категории объявлений и тарифы.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/magabrotheeeer/buscaaqui/internal/cache"
	"github.com/magabrotheeeer/buscaaqui/internal/lib/sl"
	"github.com/magabrotheeeer/buscaaqui/internal/models"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const catalogCacheTTL = time.Hour

// Repository описывает контракт хранилища справочников.
type Repository interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	CreateCategory(ctx context.Context, name, slug string) (*models.Category, error)
	ListPlans(ctx context.Context, activeOnly bool) ([]models.Plan, error)
}

// Cache описывает методы для кеширования данных.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// CatalogService отдаёт справочники с кешированием в redis.
type CatalogService struct {
	repo  Repository
	cache Cache
	log   *slog.Logger
}

// NewCatalogService создает новый экземпляр CatalogService.
func NewCatalogService(repo Repository, cache Cache, log *slog.Logger) *CatalogService {
	return &CatalogService{repo: repo, cache: cache, log: log}
}

// Slugify переводит название в slug: нижний регистр, без диакритики, слова через дефис.
func Slugify(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, name)
	if err != nil {
		plain = name
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(plain) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// Categories возвращает все категории.
func (s *CatalogService) Categories(ctx context.Context) ([]models.Category, error) {
	const op = "services.catalog.Categories"

	var cached []models.Category
	found, err := s.cache.Get(ctx, cache.KeyCategories, &cached)
	if err != nil {
		s.log.Warn("failed to read categories from cache", sl.Err(err))
	}
	if found {
		return cached, nil
	}

	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Set(ctx, cache.KeyCategories, categories, catalogCacheTTL); err != nil {
		s.log.Warn("failed to cache categories", sl.Err(err))
	}
	return categories, nil
}

// CreateCategory добавляет категорию. Без явного slug он строится из названия.
func (s *CatalogService) CreateCategory(ctx context.Context, in models.CategoryInput) (*models.Category, error) {
	const op = "services.catalog.CreateCategory"

	name := strings.TrimSpace(in.Name)
	slug := Slugify(in.Slug)
	if slug == "" {
		slug = Slugify(name)
	}
	if name == "" || slug == "" {
		return nil, fmt.Errorf("%s: %w: category name has no usable characters", op, models.ErrInvalidInput)
	}

	category, err := s.repo.CreateCategory(ctx, name, slug)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Invalidate(ctx, cache.KeyCategories); err != nil {
		s.log.Warn("failed to invalidate categories", sl.Err(err))
	}
	s.log.Info("category created", slog.String("op", op), slog.String("slug", slug))
	return category, nil
}

// Plans возвращает активные тарифы.
func (s *CatalogService) Plans(ctx context.Context) ([]models.Plan, error) {
	const op = "services.catalog.Plans"

	var cached []models.Plan
	found, err := s.cache.Get(ctx, cache.KeyPlans, &cached)
	if err != nil {
		s.log.Warn("failed to read plans from cache", sl.Err(err))
	}
	if found {
		return cached, nil
	}

	plans, err := s.repo.ListPlans(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Set(ctx, cache.KeyPlans, plans, catalogCacheTTL); err != nil {
		s.log.Warn("failed to cache plans", sl.Err(err))
	}
	return plans, nil
}
