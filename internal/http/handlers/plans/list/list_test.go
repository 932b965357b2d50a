package list

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/magabrotheeeer/buscaaqui/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Plans(ctx context.Context) ([]models.Plan, error) {
	args := m.Called(ctx)
	if res := args.Get(0); res != nil {
		return res.([]models.Plan), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestListHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))

	t.Run("список тарифов", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Plans", mock.Anything).Return([]models.Plan{
			{Slug: models.PlanFree, MaxAds: 3},
			{Slug: models.PlanBasic, PriceCents: 1990, MaxAds: 10, MaxHighlights: 1},
		}, nil).Once()

		w := httptest.NewRecorder()
		New(logger, svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/plans/list", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"slug":"basic"`)
		svc.AssertExpectations(t)
	})

	t.Run("ошибка хранилища", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Plans", mock.Anything).Return(nil, errors.New("db down")).Once()

		w := httptest.NewRecorder()
		New(logger, svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/plans/list", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "db down")
	})
}
