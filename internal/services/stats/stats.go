// Package services собирает сводку для административной панели.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/buscaaqui/internal/models"
)

// Repository источник счётчиков.
type Repository interface {
	Stats(ctx context.Context, now time.Time) (*models.Stats, error)
}

// StatsService отдаёт сводку.
type StatsService struct {
	repo Repository
	now  func() time.Time
}

// NewStatsService создает новый экземпляр StatsService.
func NewStatsService(repo Repository) *StatsService {
	return &StatsService{repo: repo, now: time.Now}
}

// Stats возвращает счётчики. Пустые группы отдаются пустыми объектами, а не null.
func (s *StatsService) Stats(ctx context.Context) (*models.Stats, error) {
	const op = "services.stats.Stats"
	st, err := s.repo.Stats(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if st.UsersByAccountType == nil {
		st.UsersByAccountType = map[string]int{}
	}
	if st.AdsByStatus == nil {
		st.AdsByStatus = map[string]int{}
	}
	if st.ActiveSubscriptionsByPlan == nil {
		st.ActiveSubscriptionsByPlan = map[string]int{}
	}
	return st, nil
}
