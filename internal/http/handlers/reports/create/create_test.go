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

	"github.com/magabrotheeeer/buscaaqui/internal/http/middlewarectx"
	"github.com/magabrotheeeer/buscaaqui/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Create(ctx context.Context, reporter *models.Viewer, in models.ReportInput) (*models.Report, error) {
	args := m.Called(ctx, reporter, in)
	if res := args.Get(0); res != nil {
		return res.(*models.Report), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestCreateHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	input := models.ReportInput{AdID: 4, Reason: "fraud"}

	t.Run("анонимная жалоба", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Create", mock.Anything, (*models.Viewer)(nil), input).
			Return(&models.Report{ID: 1, AdID: 4, Status: models.ReportOpen}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/reports/create", strings.NewReader(`{"ad_id":4,"reason":"fraud"}`))
		w := httptest.NewRecorder()
		New(logger, svc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("жалоба пользователя", func(t *testing.T) {
		viewer := &models.Viewer{UID: "u-1", Role: models.RoleUser}
		svc := new(MockService)
		svc.On("Create", mock.Anything, viewer, input).
			Return(&models.Report{ID: 2, AdID: 4, ReporterUID: "u-1"}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/reports/create", strings.NewReader(`{"ad_id":4,"reason":"fraud"}`))
		req = req.WithContext(middlewarectx.WithViewer(req.Context(), viewer))
		w := httptest.NewRecorder()
		New(logger, svc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("неизвестная причина", func(t *testing.T) {
		svc := new(MockService)

		req := httptest.NewRequest(http.MethodPost, "/api/reports/create", strings.NewReader(`{"ad_id":4,"reason":"boring"}`))
		w := httptest.NewRecorder()
		New(logger, svc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "must be one of")
	})

	t.Run("объявление не найдено", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Create", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("services.reports.Create: %w", models.ErrNotFound)).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/reports/create", strings.NewReader(`{"ad_id":99,"reason":"spam"}`))
		w := httptest.NewRecorder()
		New(logger, svc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
