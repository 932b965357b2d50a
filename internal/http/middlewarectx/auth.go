package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/magabrotheeeer/buscaaqui/internal/http/response"
	"github.com/magabrotheeeer/buscaaqui/internal/lib/sl"
	"github.com/magabrotheeeer/buscaaqui/internal/models"
)

// TokenValidator проверяет токен сессии.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*models.Viewer, error)
}

// TokenFromRequest достаёт токен из заголовка Authorization или из cookie сессии.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}

// Authenticate восстанавливает пользователя по токену и кладёт его в контекст.
// Запрос без токена или с недействительным токеном проходит как анонимный.
func Authenticate(validator TokenValidator, cookieName string, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r, cookieName)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			viewer, err := validator.ValidateToken(r.Context(), token)
			if err != nil {
				log.Debug("session token rejected",
					slog.String("op", "middlewarectx.Authenticate"),
					slog.String("request_id", middleware.GetReqID(r.Context())),
					sl.Err(err),
				)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithViewer(r.Context(), viewer)))
		})
	}
}

// RequireAuth пропускает только запросы с действующей сессией.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ViewerFrom(r.Context()) == nil {
			response.Fail(w, r, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin пропускает только администраторов.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		viewer := ViewerFrom(r.Context())
		if viewer == nil {
			response.Fail(w, r, http.StatusUnauthorized, "authentication required")
			return
		}
		if !viewer.IsAdmin() {
			response.Fail(w, r, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
