package login

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/magabrotheeeer/buscaaqui/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Login(ctx context.Context, req models.LoginRequest) (*models.Session, error) {
	args := m.Called(ctx, req)
	if res := args.Get(0); res != nil {
		return res.(*models.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func newHandler(svc Service) *Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	return New(logger, svc, Cookie{Name: "buscaaqui_session", Secure: true})
}

func TestLoginHandler_Success(t *testing.T) {
	expires := time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)
	svc := new(MockService)
	svc.On("Login", mock.Anything, models.LoginRequest{Email: "ana@example.com", Password: "password123"}).
		Return(&models.Session{Token: "tok", ExpiresAt: expires, User: &models.User{UID: "u-1"}}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"ana@example.com","password":"password123"}`))
	w := httptest.NewRecorder()
	newHandler(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"token":"tok"`)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "buscaaqui_session", cookies[0].Name)
	assert.Equal(t, "tok", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	svc.AssertExpectations(t)
}

func TestLoginHandler_Errors(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
	}{
		{
			name:           "некорректный JSON",
			body:           `nope`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "email не указан",
			body:           `{"password":"password123"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "неверный пароль",
			body: `{"email":"ana@example.com","password":"wrong-password"}`,
			setupMock: func(m *MockService) {
				m.On("Login", mock.Anything, mock.Anything).
					Return(nil, fmt.Errorf("services.auth.Login: %w", models.ErrInvalidCredentials)).Once()
			},
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			newHandler(svc).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Empty(t, w.Result().Cookies())
			svc.AssertExpectations(t)
		})
	}
}
