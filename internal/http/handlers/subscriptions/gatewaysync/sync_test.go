package gatewaysync

import (
	"context"
	"fmt"
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

func (m *MockService) SyncFromGateway(ctx context.Context) (*models.SyncReport, error) {
	args := m.Called(ctx)
	if res := args.Get(0); res != nil {
		return res.(*models.SyncReport), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestSyncHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))

	t.Run("успешная загрузка", func(t *testing.T) {
		svc := new(MockService)
		svc.On("SyncFromGateway", mock.Anything).Return(&models.SyncReport{}, nil).Once()

		w := httptest.NewRecorder()
		New(logger, svc).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/admin/subscriptions/sync", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("шлюз недоступен", func(t *testing.T) {
		svc := new(MockService)
		svc.On("SyncFromGateway", mock.Anything).
			Return(nil, fmt.Errorf("services.billing.SyncFromGateway: %w", models.ErrGateway)).Once()

		w := httptest.NewRecorder()
		New(logger, svc).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/admin/subscriptions/sync", nil))

		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}
