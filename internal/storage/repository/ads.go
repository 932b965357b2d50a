package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/magabrotheeeer/buscaaqui/internal/models"
)

var adColumns = []string{
	"id", "user_uid", "category_id", "title", "description", "price_cents", "city", "photos",
	"status", "rejection_reason", "highlighted_until", "expires_at", "created_at", "updated_at",
}

func scanAd(row rowScanner) (*models.Ad, error) {
	a := &models.Ad{}
	var photos []byte
	var highlighted, expires sql.NullTime
	if err := row.Scan(&a.ID, &a.UserUID, &a.CategoryID, &a.Title, &a.Description, &a.PriceCents,
		&a.City, &photos, &a.Status, &a.RejectionReason, &highlighted, &expires,
		&a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Photos = []string{}
	if len(photos) > 0 {
		if err := json.Unmarshal(photos, &a.Photos); err != nil {
			return nil, err
		}
	}
	a.HighlightedUntil = timePtr(highlighted)
	a.ExpiresAt = timePtr(expires)
	return a, nil
}

func encodePhotos(photos []string) ([]byte, error) {
	if photos == nil {
		photos = []string{}
	}
	return json.Marshal(photos)
}

// CreateAd сохраняет объявление и возвращает его с присвоенным id.
func (s *Storage) CreateAd(ctx context.Context, ad models.Ad) (*models.Ad, error) {
	const op = "storage.CreateAd"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	photos, err := encodePhotos(ad.Photos)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	query, args, err := psql.Insert("ads").
		Columns("user_uid", "category_id", "title", "description", "price_cents", "city", "photos", "status").
		Values(ad.UserUID, ad.CategoryID, ad.Title, ad.Description, ad.PriceCents, ad.City, photos, ad.Status).
		Suffix("RETURNING " + strings.Join(adColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	created, err := scanAd(s.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, wrap(op, err)
	}
	return created, nil
}

// GetAd возвращает объявление по id.
func (s *Storage) GetAd(ctx context.Context, id int64) (*models.Ad, error) {
	const op = "storage.GetAd"
	query, args, err := psql.Select(adColumns...).From("ads").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ad, err := scanAd(s.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, wrap(op, err)
	}
	return ad, nil
}

// escapeLike экранирует спецсимволы шаблона LIKE.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func applyAdFilter(b sq.SelectBuilder, f models.AdFilter) sq.SelectBuilder {
	if f.Status != "" {
		b = b.Where(sq.Eq{"status": f.Status})
	}
	if f.UserUID != "" {
		b = b.Where(sq.Eq{"user_uid": f.UserUID})
	}
	if f.CategoryID > 0 {
		b = b.Where(sq.Eq{"category_id": f.CategoryID})
	}
	if f.City != "" {
		b = b.Where(sq.Expr("lower(city) = lower(?)", f.City))
	}
	if f.MinPrice != nil {
		b = b.Where(sq.GtOrEq{"price_cents": *f.MinPrice})
	}
	if f.MaxPrice != nil {
		b = b.Where(sq.LtOrEq{"price_cents": *f.MaxPrice})
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		pattern := "%" + escapeLike(q) + "%"
		b = b.Where(sq.Or{
			sq.ILike{"title": pattern},
			sq.ILike{"description": pattern},
		})
	}
	return b
}

// ListAds ищет объявления по фильтру: выделенные первыми, затем новые.
// Возвращает страницу и общее количество подходящих объявлений.
func (s *Storage) ListAds(ctx context.Context, f models.AdFilter) ([]models.Ad, int, error) {
	const op = "storage.ListAds"
	f.Page = f.Page.Normalize()

	query, args, err := applyAdFilter(psql.Select(adColumns...).From("ads"), f).
		OrderBy("(highlighted_until IS NOT NULL AND highlighted_until > now()) DESC", "created_at DESC", "id DESC").
		Limit(uint64(f.Limit)).
		Offset(uint64(f.Offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, wrap(op, err)
	}
	defer rows.Close()

	result := make([]models.Ad, 0, f.Limit)
	for rows.Next() {
		ad, err := scanAd(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, *ad)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	countQuery, countArgs, err := applyAdFilter(psql.Select("COUNT(*)").From("ads"), f).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	var total int
	if err := s.DB.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, wrap(op, err)
	}
	return result, total, nil
}

// UpdateAdContent меняет содержимое объявления и переводит его в указанный статус.
func (s *Storage) UpdateAdContent(ctx context.Context, ad models.Ad) (*models.Ad, error) {
	const op = "storage.UpdateAdContent"
	photos, err := encodePhotos(ad.Photos)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	query, args, err := psql.Update("ads").
		Set("category_id", ad.CategoryID).
		Set("title", ad.Title).
		Set("description", ad.Description).
		Set("price_cents", ad.PriceCents).
		Set("city", ad.City).
		Set("photos", photos).
		Set("status", ad.Status).
		Set("rejection_reason", "").
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": ad.ID}).
		Suffix("RETURNING " + strings.Join(adColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	updated, err := scanAd(s.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, wrap(op, err)
	}
	return updated, nil
}

// SetAdStatus меняет статус объявления при модерации.
// expiresAt nil сохраняет текущее значение срока.
func (s *Storage) SetAdStatus(ctx context.Context, id int64, status, reason string, expiresAt *time.Time) error {
	const op = "storage.SetAdStatus"
	b := psql.Update("ads").
		Set("status", status).
		Set("rejection_reason", reason).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id})
	if expiresAt != nil {
		b = b.Set("expires_at", *expiresAt)
	}
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	res, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return wrap(op, err)
	}
	return expectRows(op, res)
}

// SetAdHighlight выделяет объявление до указанного момента.
func (s *Storage) SetAdHighlight(ctx context.Context, id int64, until time.Time) error {
	const op = "storage.SetAdHighlight"
	res, err := s.DB.ExecContext(ctx,
		`UPDATE ads SET highlighted_until = $2, updated_at = now() WHERE id = $1`, id, until)
	if err != nil {
		return wrap(op, err)
	}
	return expectRows(op, res)
}

// DeleteAd удаляет объявление.
func (s *Storage) DeleteAd(ctx context.Context, id int64) error {
	const op = "storage.DeleteAd"
	res, err := s.DB.ExecContext(ctx, `DELETE FROM ads WHERE id = $1`, id)
	if err != nil {
		return wrap(op, err)
	}
	return expectRows(op, res)
}

// CountUserAds считает объявления пользователя в указанных статусах.
func (s *Storage) CountUserAds(ctx context.Context, uid string, statuses []string) (int, error) {
	const op = "storage.CountUserAds"
	query, args, err := psql.Select("COUNT(*)").From("ads").
		Where(sq.Eq{"user_uid": uid, "status": statuses}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	var n int
	if err := s.DB.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, wrap(op, err)
	}
	return n, nil
}

// CountActiveHighlights считает объявления пользователя, выделенные на момент now.
func (s *Storage) CountActiveHighlights(ctx context.Context, uid string, now time.Time) (int, error) {
	const op = "storage.CountActiveHighlights"
	var n int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ads WHERE user_uid = $1 AND highlighted_until > $2`, uid, now).Scan(&n)
	if err != nil {
		return 0, wrap(op, err)
	}
	return n, nil
}

// ExpireAds переводит одобренные объявления с истёкшим сроком в expired.
func (s *Storage) ExpireAds(ctx context.Context, now time.Time) ([]int64, error) {
	const op = "storage.ExpireAds"
	rows, err := s.DB.QueryContext(ctx,
		`UPDATE ads SET status = 'expired', updated_at = now()
		 WHERE status = 'approved' AND expires_at IS NOT NULL AND expires_at < $1
		 RETURNING id`, now)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ids, nil
}
