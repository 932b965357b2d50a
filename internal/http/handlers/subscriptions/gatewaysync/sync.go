// Package gatewaysync реализует HTTP-обработчик загрузки подписок из шлюза.
package gatewaysync

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

// Service описывает интерфейс загрузки подписок из шлюза.
type Service interface {
	SyncFromGateway(ctx context.Context) (*models.SyncReport, error)
}

// Handler обрабатывает запросы загрузки подписок.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Загрузка подписок из шлюза
// @Description Обновляет зеркало подписок по данным шлюза и запускает сверку.
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 502 {object} response.ErrorResponse "Ошибка платёжного шлюза"
// @Router /api/admin/subscriptions/sync [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscriptions.sync"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	report, err := h.service.SyncFromGateway(r.Context())
	if err != nil {
		log.Error("sync failed", sl.Err(err))
		response.ServiceError(w, r, err, "could not sync subscriptions")
		return
	}

	render.JSON(w, r, response.StatusOKWithData(report))
}
