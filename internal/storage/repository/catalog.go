package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/buscaaqui/internal/models"
)

// ListCategories возвращает все категории по алфавиту.
func (s *Storage) ListCategories(ctx context.Context) ([]models.Category, error) {
	const op = "storage.ListCategories"
	rows, err := s.DB.QueryContext(ctx, `SELECT id, name, slug, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	result := make([]models.Category, 0)
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CreateCategory добавляет категорию. Занятый slug даёт ErrAlreadyExists.
func (s *Storage) CreateCategory(ctx context.Context, name, slug string) (*models.Category, error) {
	const op = "storage.CreateCategory"
	c := &models.Category{}
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO categories (name, slug) VALUES ($1, $2) RETURNING id, name, slug, created_at`,
		name, slug).Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt)
	if err != nil {
		return nil, wrap(op, err)
	}
	return c, nil
}

const planColumns = `id, slug, name, price_cents, max_ads, max_highlights, features, is_active`

func scanPlan(row rowScanner) (*models.Plan, error) {
	p := &models.Plan{}
	var features []byte
	if err := row.Scan(&p.ID, &p.Slug, &p.Name, &p.PriceCents, &p.MaxAds, &p.MaxHighlights,
		&features, &p.IsActive); err != nil {
		return nil, err
	}
	p.Features = features
	return p, nil
}

// ListPlans возвращает тарифы по возрастанию цены.
func (s *Storage) ListPlans(ctx context.Context, activeOnly bool) ([]models.Plan, error) {
	const op = "storage.ListPlans"
	query := `SELECT ` + planColumns + ` FROM plans WHERE ($1 = false OR is_active) ORDER BY price_cents, id`
	rows, err := s.DB.QueryContext(ctx, query, activeOnly)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	result := make([]models.Plan, 0, 4)
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// GetPlanBySlug возвращает тариф по slug.
func (s *Storage) GetPlanBySlug(ctx context.Context, slug string) (*models.Plan, error) {
	const op = "storage.GetPlanBySlug"
	p, err := scanPlan(s.DB.QueryRowContext(ctx, `SELECT `+planColumns+` FROM plans WHERE slug = $1`, slug))
	if err != nil {
		return nil, wrap(op, err)
	}
	return p, nil
}

// GetPlan возвращает тариф по id.
func (s *Storage) GetPlan(ctx context.Context, id int64) (*models.Plan, error) {
	const op = "storage.GetPlan"
	p, err := scanPlan(s.DB.QueryRowContext(ctx, `SELECT `+planColumns+` FROM plans WHERE id = $1`, id))
	if err != nil {
		return nil, wrap(op, err)
	}
	return p, nil
}

// PlanIDs возвращает соответствие slug тарифа и его id.
func (s *Storage) PlanIDs(ctx context.Context) (map[string]int64, error) {
	const op = "storage.PlanIDs"
	plans, err := s.ListPlans(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ids := make(map[string]int64, len(plans))
	for _, p := range plans {
		ids[p.Slug] = p.ID
	}
	return ids, nil
}
