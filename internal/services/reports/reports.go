// Package services содержит жалобы на объявления и их разбор администратором.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/buscaaqui/internal/models"
)

// Repository описывает контракт хранилища жалоб.
type Repository interface {
	CreateReport(ctx context.Context, r models.Report) (*models.Report, error)
	GetReport(ctx context.Context, id int64) (*models.Report, error)
	ListReports(ctx context.Context, status string, page models.Page) ([]models.Report, error)
	ResolveReport(ctx context.Context, id int64, status, notes, reviewerUID string, at time.Time) (*models.Report, error)
	GetAd(ctx context.Context, id int64) (*models.Ad, error)
}

// Moderator отклоняет объявление по итогам жалобы.
type Moderator interface {
	Moderate(ctx context.Context, id int64, req models.ModerationRequest) (*models.Ad, error)
}

// ReportService реализует работу с жалобами.
type ReportService struct {
	repo      Repository
	moderator Moderator
	log       *slog.Logger
	now       func() time.Time
}

// NewReportService создает новый экземпляр ReportService.
func NewReportService(repo Repository, moderator Moderator, log *slog.Logger) *ReportService {
	return &ReportService{repo: repo, moderator: moderator, log: log, now: time.Now}
}

// Create сохраняет жалобу. reporter nil для анонимной жалобы.
func (s *ReportService) Create(ctx context.Context, reporter *models.Viewer, in models.ReportInput) (*models.Report, error) {
	const op = "services.reports.Create"

	if _, err := s.repo.GetAd(ctx, in.AdID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	r := models.Report{
		AdID:    in.AdID,
		Reason:  in.Reason,
		Details: strings.TrimSpace(in.Details),
		Status:  models.ReportOpen,
	}
	if reporter != nil {
		r.ReporterUID = reporter.UID
	}

	created, err := s.repo.CreateReport(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("report created", slog.String("op", op), slog.Int64("id", created.ID), slog.Int64("ad_id", in.AdID))
	return created, nil
}

// List возвращает жалобы в статусе status. Пустой статус означает все.
func (s *ReportService) List(ctx context.Context, status string, page models.Page) ([]models.Report, error) {
	const op = "services.reports.List"
	switch status {
	case "", models.ReportOpen, models.ReportResolved, models.ReportDismissed:
	default:
		return nil, fmt.Errorf("%s: %w: unknown status %q", op, models.ErrInvalidInput, status)
	}
	reports, err := s.repo.ListReports(ctx, status, page.Normalize())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return reports, nil
}

// Resolve закрывает жалобу. При RejectAd и статусе resolved объявление
// отклоняется до закрытия, чтобы ошибка модерации оставила жалобу открытой.
func (s *ReportService) Resolve(ctx context.Context, reviewer models.Viewer, id int64, req models.ResolveReportRequest) (*models.Report, error) {
	const op = "services.reports.Resolve"

	report, err := s.repo.GetReport(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if report.Status != models.ReportOpen {
		return nil, fmt.Errorf("%s: %w: report already %s", op, models.ErrInvalidState, report.Status)
	}

	notes := strings.TrimSpace(req.Notes)
	if req.RejectAd && req.Status == models.ReportResolved {
		reason := notes
		if reason == "" {
			reason = "denúncia procedente: " + report.Reason
		}
		_, err := s.moderator.Moderate(ctx, report.AdID, models.ModerationRequest{Action: "reject", Reason: reason})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	resolved, err := s.repo.ResolveReport(ctx, id, req.Status, notes, reviewer.UID, s.now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("report resolved",
		slog.String("op", op),
		slog.Int64("id", id),
		slog.String("status", req.Status),
		slog.Bool("ad_rejected", req.RejectAd && req.Status == models.ReportResolved),
	)
	return resolved, nil
}
