package update

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/magabrotheeeer/buscaaqui/internal/http/middlewarectx"
	"github.com/magabrotheeeer/buscaaqui/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Update(ctx context.Context, owner models.Viewer, id int64, in models.AdInput) (*models.Ad, error) {
	args := m.Called(ctx, owner, id, in)
	if res := args.Get(0); res != nil {
		return res.(*models.Ad), args.Error(1)
	}
	return nil, args.Error(1)
}

const body = `{"category_id":1,"title":"Geladeira frost free","description":"Funcionando","price_cents":120000,"city":"Natal"}`

func serve(svc Service, viewer *models.Viewer, id, payload string) *httptest.ResponseRecorder {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	router := chi.NewRouter()
	router.Put("/api/ads/{id}", New(logger, svc).ServeHTTP)

	req := httptest.NewRequest(http.MethodPut, "/api/ads/"+id, strings.NewReader(payload))
	if viewer != nil {
		req = req.WithContext(middlewarectx.WithViewer(req.Context(), viewer))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUpdateHandler(t *testing.T) {
	owner := &models.Viewer{UID: "u-1", Role: models.RoleUser}

	t.Run("успешное изменение", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Update", mock.Anything, *owner, int64(4), mock.MatchedBy(func(in models.AdInput) bool {
			return in.Title == "Geladeira frost free"
		})).Return(&models.Ad{ID: 4, Status: models.AdPending}, nil).Once()

		w := serve(svc, owner, "4", body)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"pending"`)
		svc.AssertExpectations(t)
	})

	t.Run("чужое объявление", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Update", mock.Anything, *owner, int64(4), mock.Anything).
			Return(nil, fmt.Errorf("services.ads.Update: %w", models.ErrForbidden)).Once()

		w := serve(svc, owner, "4", body)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("некорректный id", func(t *testing.T) {
		svc := new(MockService)

		w := serve(svc, owner, "-1", body)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("пустой заголовок", func(t *testing.T) {
		svc := new(MockService)

		w := serve(svc, owner, "4", `{"category_id":1,"title":"","description":"x","city":"Natal"}`)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}
