package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/magabrotheeeer/buscaaqui/internal/models"
)

var reportColumns = []string{
	"id", "ad_id", "COALESCE(reporter_uid::text, '')", "reason", "details", "status", "reviewer_notes",
	"COALESCE(reviewed_by::text, '')", "resolved_at", "created_at",
}

func scanReport(row rowScanner) (*models.Report, error) {
	r := &models.Report{}
	var resolved sql.NullTime
	if err := row.Scan(&r.ID, &r.AdID, &r.ReporterUID, &r.Reason, &r.Details, &r.Status, &r.ReviewerNotes,
		&r.ReviewedBy, &resolved, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.ResolvedAt = timePtr(resolved)
	return r, nil
}

// CreateReport сохраняет жалобу. Несуществующее объявление даёт ErrInvalidInput.
func (s *Storage) CreateReport(ctx context.Context, r models.Report) (*models.Report, error) {
	const op = "storage.CreateReport"
	query, args, err := psql.Insert("reports").
		Columns("ad_id", "reporter_uid", "reason", "details").
		Values(r.AdID, sq.Expr("?::uuid", nullString(r.ReporterUID)), r.Reason, r.Details).
		Suffix("RETURNING " + strings.Join(reportColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	created, err := scanReport(s.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, wrap(op, err)
	}
	return created, nil
}

// GetReport возвращает жалобу по id.
func (s *Storage) GetReport(ctx context.Context, id int64) (*models.Report, error) {
	const op = "storage.GetReport"
	query, args, err := psql.Select(reportColumns...).From("reports").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	r, err := scanReport(s.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, wrap(op, err)
	}
	return r, nil
}

// ListReports возвращает жалобы с фильтром по статусу (пустой статус означает все).
func (s *Storage) ListReports(ctx context.Context, status string, page models.Page) ([]models.Report, error) {
	const op = "storage.ListReports"
	page = page.Normalize()
	b := psql.Select(reportColumns...).From("reports")
	if status != "" {
		b = b.Where(sq.Eq{"status": status})
	}
	query, args, err := b.OrderBy("created_at DESC", "id DESC").
		Limit(uint64(page.Limit)).
		Offset(uint64(page.Offset)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	result := make([]models.Report, 0)
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ResolveReport закрывает открытую жалобу. Уже закрытая жалоба даёт ErrInvalidState.
func (s *Storage) ResolveReport(ctx context.Context, id int64, status, notes, reviewerUID string, at time.Time) (*models.Report, error) {
	const op = "storage.ResolveReport"
	query, args, err := psql.Update("reports").
		Set("status", status).
		Set("reviewer_notes", notes).
		Set("reviewed_by", sq.Expr("?::uuid", nullString(reviewerUID))).
		Set("resolved_at", at).
		Where(sq.Eq{"id": id, "status": models.ReportOpen}).
		Suffix("RETURNING " + strings.Join(reportColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	r, err := scanReport(s.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := s.GetReport(ctx, id); getErr != nil {
			return nil, fmt.Errorf("%s: %w", op, getErr)
		}
		return nil, fmt.Errorf("%s: %w", op, models.ErrInvalidState)
	}
	if err != nil {
		return nil, wrap(op, err)
	}
	return r, nil
}
