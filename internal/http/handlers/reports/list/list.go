// Package list реализует HTTP-обработчик списка жалоб для администратора.
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

// Service описывает интерфейс получения жалоб.
type Service interface {
	List(ctx context.Context, status string, page models.Page) ([]models.Report, error)
}

// Handler обрабатывает запросы списка жалоб.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Список жалоб
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "open, resolved или dismissed"
// @Param limit query int false "Количество записей" default(20)
// @Param offset query int false "Смещение" default(0)
// @Success 200 {object} response.Response
// @Failure 422 {object} response.ErrorResponse "Неизвестный статус"
// @Router /api/admin/reports/list [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.reports.list"

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

	reports, err := h.service.List(r.Context(), r.URL.Query().Get("status"), page)
	if err != nil {
		log.Error("failed to list reports", sl.Err(err))
		response.ServiceError(w, r, err, "could not list reports")
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"reports": reports,
		"limit":   page.Limit,
		"offset":  page.Offset,
	}))
}
