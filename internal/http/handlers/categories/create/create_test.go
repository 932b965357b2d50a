package create

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/magabrotheeeer/buscaaqui/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) CreateCategory(ctx context.Context, in models.CategoryInput) (*models.Category, error) {
	args := m.Called(ctx, in)
	if res := args.Get(0); res != nil {
		return res.(*models.Category), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestCreateHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
	}{
		{
			name: "успешное создание",
			body: `{"name":"Eletrônicos"}`,
			setupMock: func(m *MockService) {
				m.On("CreateCategory", mock.Anything, models.CategoryInput{Name: "Eletrônicos"}).
					Return(&models.Category{ID: 1, Name: "Eletrônicos", Slug: "eletronicos"}, nil).Once()
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "без названия",
			body:           `{"slug":"x"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "slug занят",
			body: `{"name":"Eletrônicos"}`,
			setupMock: func(m *MockService) {
				m.On("CreateCategory", mock.Anything, mock.Anything).
					Return(nil, fmt.Errorf("storage.CreateCategory: %w", models.ErrAlreadyExists)).Once()
			},
			expectedStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/admin/categories/create", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			New(logger, svc).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}
