// Package list реализует HTTP-обработчик списка пользователей для администратора.
package list

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

// Service описывает интерфейс получения списка пользователей.
type Service interface {
	ListUsers(ctx context.Context, page models.Page) ([]models.User, error)
}

// Handler обрабатывает запросы списка пользователей.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Список пользователей
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Количество записей" default(20)
// @Param offset query int false "Смещение" default(0)
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Некорректные параметры"
// @Failure 403 {object} response.ErrorResponse "Требуется роль admin"
// @Router /api/admin/users/list [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	page, err := request.Page(r)
	if err != nil {
		log.Warn("invalid pagination", sl.Err(err))
		response.Fail(w, r, http.StatusBadRequest, err.Error())
		return
	}

	users, err := h.service.ListUsers(r.Context(), page)
	if err != nil {
		log.Error("failed to list users", sl.Err(err))
		response.ServiceError(w, r, err, "could not list users")
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"users":  users,
		"limit":  page.Limit,
		"offset": page.Offset,
	}))
}
