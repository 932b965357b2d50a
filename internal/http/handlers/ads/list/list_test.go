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

func (m *MockService) List(ctx context.Context, viewer *models.Viewer, f models.AdFilter) (*models.AdList, error) {
	args := m.Called(ctx, viewer, f)
	if res := args.Get(0); res != nil {
		return res.(*models.AdList), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestListHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))

	tests := []struct {
		name           string
		query          string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:  "поиск с фильтрами",
			query: "?q=bicicleta&city=Curitiba&category=3&min_price=100&max_price=5000",
			setupMock: func(m *MockService) {
				m.On("List", mock.Anything, (*models.Viewer)(nil), mock.MatchedBy(func(f models.AdFilter) bool {
					return f.Query == "bicicleta" && f.City == "Curitiba" && f.CategoryID == 3 &&
						*f.MinPrice == 100 && *f.MaxPrice == 5000 && f.Limit == models.DefaultLimit
				})).Return(&models.AdList{Items: []models.Ad{{ID: 1}}, Total: 1, Limit: 20}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"total":1`,
		},
		{
			name:           "минимальная цена больше максимальной",
			query:          "?min_price=500&max_price=100",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "min_price is greater than max_price",
		},
		{
			name:           "неизвестный статус",
			query:          "?status=deleted",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:  "ошибка сервиса",
			query: "",
			setupMock: func(m *MockService) {
				m.On("List", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("db down")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   "could not list ads",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodGet, "/api/ads/list"+tt.query, nil)
			w := httptest.NewRecorder()
			New(logger, svc).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}
