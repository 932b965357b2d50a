// Package stats реализует HTTP-обработчик сводки для административной панели.
package stats

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/buscaaqui/internal/http/response"
	"github.com/magabrotheeeer/buscaaqui/internal/lib/sl"
	"github.com/magabrotheeeer/buscaaqui/internal/models"
)

// Service описывает интерфейс получения сводки.
type Service interface {
	Stats(ctx context.Context) (*models.Stats, error)
}

// Handler обрабатывает запросы сводки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Сводка
// @Description Пользователи, объявления, активные подписки и поступления за 30 дней.
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /api/admin/stats [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.stats"

	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.log.Error("failed to collect stats",
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Err(err),
		)
		response.ServiceError(w, r, err, "could not collect stats")
		return
	}

	render.JSON(w, r, response.StatusOKWithData(stats))
}
