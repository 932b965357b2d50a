// Package logout реализует HTTP-обработчик выхода.
//
// Токены сессии не хранятся на сервере, выход удаляет cookie сессии.
package logout

import (
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/buscaaqui/internal/http/response"
)

// Handler обрабатывает запросы на выход.
type Handler struct {
	cookieName string
	secure     bool
}

// New создает новый Handler.
func New(cookieName string, secure bool) *Handler {
	return &Handler{cookieName: cookieName, secure: secure}
}

// ServeHTTP godoc
// @Summary Выход
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/auth/logout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"logged_out": true,
	}))
}
