// Package list реализует HTTP-обработчик списка категорий.
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

// Service описывает интерфейс получения категорий.
type Service interface {
	Categories(ctx context.Context) ([]models.Category, error)
}

// Handler обрабатывает запросы списка категорий.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Список категорий
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/categories/list [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.categories.list"

	categories, err := h.service.Categories(r.Context())
	if err != nil {
		h.log.Error("failed to list categories",
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Err(err),
		)
		response.ServiceError(w, r, err, "could not list categories")
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"categories": categories,
	}))
}
