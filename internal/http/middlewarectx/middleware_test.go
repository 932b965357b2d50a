package middlewarectx_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/magabrotheeeer/buscaaqui/internal/http/middlewarectx"
	"github.com/magabrotheeeer/buscaaqui/internal/models"
	"github.com/magabrotheeeer/buscaaqui/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type ValidatorMock struct {
	mock.Mock
}

func (m *ValidatorMock) ValidateToken(ctx context.Context, token string) (*models.Viewer, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Viewer), args.Error(1)
}

type LimiterMock struct {
	mock.Mock
}

func (m *LimiterMock) Allow(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

// echoViewer отвечает uid пользователя из контекста или "anonymous".
var echoViewer = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	if v := middlewarectx.ViewerFrom(r.Context()); v != nil {
		_, _ = w.Write([]byte(v.UID))
		return
	}
	_, _ = w.Write([]byte("anonymous"))
})

func TestAuthenticate(t *testing.T) {
	user := &models.Viewer{UID: "u-1", Role: models.RoleUser}

	tests := []struct {
		name       string
		prepare    func(r *http.Request)
		setupMocks func(m *ValidatorMock)
		wantBody   string
	}{
		{
			name:       "no token",
			prepare:    func(_ *http.Request) {},
			setupMocks: func(_ *ValidatorMock) {},
			wantBody:   "anonymous",
		},
		{
			name:    "bearer token",
			prepare: func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") },
			setupMocks: func(m *ValidatorMock) {
				m.On("ValidateToken", mock.Anything, "good").Return(user, nil).Once()
			},
			wantBody: "u-1",
		},
		{
			name:    "session cookie",
			prepare: func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "sid", Value: "from-cookie"}) },
			setupMocks: func(m *ValidatorMock) {
				m.On("ValidateToken", mock.Anything, "from-cookie").Return(user, nil).Once()
			},
			wantBody: "u-1",
		},
		{
			name:    "expired token is anonymous",
			prepare: func(r *http.Request) { r.Header.Set("Authorization", "Bearer expired") },
			setupMocks: func(m *ValidatorMock) {
				m.On("ValidateToken", mock.Anything, "expired").Return(nil, models.ErrUnauthorized).Once()
			},
			wantBody: "anonymous",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := new(ValidatorMock)
			tt.setupMocks(v)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.prepare(req)
			w := httptest.NewRecorder()

			middlewarectx.Authenticate(v, "sid", newNoopLogger())(echoViewer).ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.wantBody, w.Body.String())
			v.AssertExpectations(t)
		})
	}
}

func TestRequireAuthAndAdmin(t *testing.T) {
	tests := []struct {
		name      string
		viewer    *models.Viewer
		authCode  int
		adminCode int
	}{
		{name: "anonymous", viewer: nil, authCode: http.StatusUnauthorized, adminCode: http.StatusUnauthorized},
		{name: "user", viewer: &models.Viewer{UID: "u-1", Role: models.RoleUser}, authCode: http.StatusOK, adminCode: http.StatusForbidden},
		{name: "admin", viewer: &models.Viewer{UID: "a-1", Role: models.RoleAdmin}, authCode: http.StatusOK, adminCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			newReq := func() *http.Request {
				req := httptest.NewRequest(http.MethodGet, "/", nil)
				if tt.viewer != nil {
					req = req.WithContext(middlewarectx.WithViewer(req.Context(), tt.viewer))
				}
				return req
			}

			w := httptest.NewRecorder()
			middlewarectx.RequireAuth(echoViewer).ServeHTTP(w, newReq())
			assert.Equal(t, tt.authCode, w.Code)

			w = httptest.NewRecorder()
			middlewarectx.RequireAdmin(echoViewer).ServeHTTP(w, newReq())
			assert.Equal(t, tt.adminCode, w.Code)
		})
	}
}

func TestRateLimit_KeyedByCallerAndRoute(t *testing.T) {
	limiter := ratelimit.NewMemory(2, time.Hour)
	router := chi.NewRouter()
	router.With(middlewarectx.RateLimit(limiter, newNoopLogger())).Post("/api/reports/create", echoViewer)
	router.With(middlewarectx.RateLimit(limiter, newNoopLogger())).Post("/api/auth/login", echoViewer)

	send := func(path, ip string) int {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.RemoteAddr = ip + ":5555"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("/api/reports/create", "10.0.0.1"))
	assert.Equal(t, http.StatusOK, send("/api/reports/create", "10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("/api/reports/create", "10.0.0.1"))

	assert.Equal(t, http.StatusOK, send("/api/auth/login", "10.0.0.1"))
	assert.Equal(t, http.StatusOK, send("/api/reports/create", "10.0.0.2"))
}

func TestRateLimit_FailOpen(t *testing.T) {
	limiter := new(LimiterMock)
	limiter.On("Allow", mock.Anything, mock.Anything).Return(false, errors.New("redis down")).Once()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	middlewarectx.RateLimit(limiter, newNoopLogger())(echoViewer).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	limiter.AssertExpectations(t)
}

func TestRateLimit_UsesUIDForSignedInUsers(t *testing.T) {
	limiter := new(LimiterMock)
	limiter.On("Allow", mock.Anything, "uid:u-9:unknown").Return(true, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(middlewarectx.WithViewer(req.Context(), &models.Viewer{UID: "u-9"}))
	w := httptest.NewRecorder()
	middlewarectx.RateLimit(limiter, newNoopLogger())(echoViewer).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	limiter.AssertExpectations(t)
}
