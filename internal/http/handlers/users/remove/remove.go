// Package remove реализует HTTP-обработчик удаления пользователя администратором.
package remove

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/buscaaqui/internal/http/middlewarectx"
	"github.com/magabrotheeeer/buscaaqui/internal/http/request"
	"github.com/magabrotheeeer/buscaaqui/internal/http/response"
	"github.com/magabrotheeeer/buscaaqui/internal/lib/sl"
	"github.com/magabrotheeeer/buscaaqui/internal/models"
)

// Service описывает интерфейс удаления пользователя.
type Service interface {
	DeleteUser(ctx context.Context, actor models.Viewer, uid string) error
}

// Handler обрабатывает запросы удаления пользователя.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Удаление пользователя
// @Description Удаляет пользователя вместе с его объявлениями. Удалить самого себя нельзя.
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param uid path string true "UID пользователя"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Некорректный uid"
// @Failure 403 {object} response.ErrorResponse "Требуется роль admin"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Router /api/admin/users/{uid} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.remove"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	viewer := middlewarectx.ViewerFrom(r.Context())
	if viewer == nil {
		response.Fail(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	uid, err := request.UID(r, "uid")
	if err != nil {
		log.Warn("invalid uid", sl.Err(err))
		response.Fail(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.DeleteUser(r.Context(), *viewer, uid); err != nil {
		log.Error("failed to delete user", sl.Err(err))
		response.ServiceError(w, r, err, "could not delete user")
		return
	}

	log.Info("user deleted", sl.UID(uid), slog.String("actor", viewer.UID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"deleted": uid,
	}))
}
