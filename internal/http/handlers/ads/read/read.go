// Package read реализует HTTP-обработчик получения объявления.
package read

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

// Service описывает интерфейс получения объявления.
type Service interface {
	Get(ctx context.Context, viewer *models.Viewer, id int64) (*models.Ad, error)
}

// Handler обрабатывает запросы получения объявления.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Получение объявления
// @Description Неодобренные объявления видны только владельцу и администратору.
// @Tags Ads
// @Produce json
// @Param id path int true "ID объявления"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Некорректный id"
// @Failure 404 {object} response.ErrorResponse "Объявление не найдено"
// @Router /api/ads/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ads.read"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := request.ID(r, "id")
	if err != nil {
		log.Warn("invalid id", sl.Err(err))
		response.Fail(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ad, err := h.service.Get(r.Context(), middlewarectx.ViewerFrom(r.Context()), id)
	if err != nil {
		log.Warn("failed to get ad", slog.Int64("ad_id", id), sl.Err(err))
		response.ServiceError(w, r, err, "could not get ad")
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"ad": ad,
	}))
}
