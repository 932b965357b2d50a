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

func (m *MockService) Categories(ctx context.Context) ([]models.Category, error) {
	args := m.Called(ctx)
	if res := args.Get(0); res != nil {
		return res.([]models.Category), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestListHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))

	t.Run("список категорий", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Categories", mock.Anything).Return([]models.Category{
			{ID: 1, Name: "Imóveis", Slug: "imoveis"},
			{ID: 2, Name: "Veículos", Slug: "veiculos"},
		}, nil).Once()

		w := httptest.NewRecorder()
		New(logger, svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/categories/list", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"slug":"veiculos"`)
		svc.AssertExpectations(t)
	})

	t.Run("ошибка хранилища", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Categories", mock.Anything).Return(nil, errors.New("db down")).Once()

		w := httptest.NewRecorder()
		New(logger, svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/categories/list", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "db down")
	})
}
