// Package reconcile реализует HTTP-обработчик ручной сверки подписок с шлюзом.
package reconcile

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

// Service описывает интерфейс сверки.
type Service interface {
	ReconcileAll(ctx context.Context) (*models.ReconcileReport, error)
}

// Handler обрабатывает запросы сверки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Сверка подписок
// @Description Приводит локальные подписки в соответствие с зеркалом шлюза за текущий период.
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse "Требуется роль admin"
// @Router /api/admin/subscriptions/reconcile [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscriptions.reconcile"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	report, err := h.service.ReconcileAll(r.Context())
	if err != nil {
		log.Error("reconcile failed", sl.Err(err))
		response.ServiceError(w, r, err, "could not reconcile subscriptions")
		return
	}

	log.Info("reconcile finished", slog.Int("total", report.Total))
	render.JSON(w, r, response.StatusOKWithData(report))
}
