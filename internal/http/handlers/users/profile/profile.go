// Package profile реализует HTTP-обработчик публичного профиля продавца.
package profile

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/buscaaqui/internal/http/request"
	"github.com/magabrotheeeer/buscaaqui/internal/http/response"
	"github.com/magabrotheeeer/buscaaqui/internal/lib/sl"
	"github.com/magabrotheeeer/buscaaqui/internal/models"
)

// Service описывает интерфейс получения публичного профиля.
type Service interface {
	PublicProfile(ctx context.Context, uid string) (*models.PublicProfile, error)
}

// Handler обрабатывает запросы публичного профиля.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Публичный профиль продавца
// @Description Возвращает профиль без контактных данных и одобренные объявления продавца.
// @Tags Users
// @Produce json
// @Param uid path string true "UID пользователя"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Некорректный uid"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Router /api/users/{uid}/profile [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.profile"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	uid, err := request.UID(r, "uid")
	if err != nil {
		log.Warn("invalid uid", sl.Err(err))
		response.Fail(w, r, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := h.service.PublicProfile(r.Context(), uid)
	if err != nil {
		log.Error("failed to load profile", sl.Err(err))
		response.ServiceError(w, r, err, "could not load profile")
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"profile": profile,
	}))
}
