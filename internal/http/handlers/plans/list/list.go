// Package list реализует HTTP-обработчик списка тарифов.
package list

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

// Service описывает интерфейс получения тарифов.
type Service interface {
	Plans(ctx context.Context) ([]models.Plan, error)
}

// Handler обрабатывает запросы списка тарифов.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Список тарифов
// @Description Активные тарифы с лимитами объявлений и выделений.
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/plans/list [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.plans.list"

	plans, err := h.service.Plans(r.Context())
	if err != nil {
		h.log.Error("failed to list plans",
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Err(err),
		)
		response.ServiceError(w, r, err, "could not list plans")
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"plans": plans,
	}))
}
