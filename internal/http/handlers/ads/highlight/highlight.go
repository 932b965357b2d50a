// Package highlight реализует HTTP-обработчик выделения объявления.
package highlight

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

// Service описывает интерфейс выделения объявления.
type Service interface {
	Highlight(ctx context.Context, owner models.Viewer, id int64) (*models.Ad, error)
}

// Handler обрабатывает запросы выделения объявления.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Выделение объявления
// @Description Выделяет одобренное объявление. Количество одновременных выделений ограничено тарифом.
// @Tags Ads
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID объявления"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse "Лимит выделений исчерпан"
// @Failure 404 {object} response.ErrorResponse "Объявление не найдено"
// @Failure 409 {object} response.ErrorResponse "Объявление не одобрено"
// @Router /api/ads/{id}/highlight [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ads.highlight"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	viewer := middlewarectx.ViewerFrom(r.Context())
	if viewer == nil {
		response.Fail(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := request.ID(r, "id")
	if err != nil {
		log.Warn("invalid id", sl.Err(err))
		response.Fail(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ad, err := h.service.Highlight(r.Context(), *viewer, id)
	if err != nil {
		log.Warn("failed to highlight ad", slog.Int64("ad_id", id), sl.Err(err))
		response.ServiceError(w, r, err, "could not highlight ad")
		return
	}

	log.Info("ad highlighted", slog.Int64("ad_id", id))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"ad": ad,
	}))
}
