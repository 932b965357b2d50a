// Package list реализует HTTP-обработчик поиска объявлений.
package list

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

// Service описывает интерфейс поиска объявлений.
type Service interface {
	List(ctx context.Context, viewer *models.Viewer, f models.AdFilter) (*models.AdList, error)
}

// Handler обрабатывает запросы поиска объявлений.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Поиск объявлений
// @Description Выделенные объявления идут первыми. Фильтр status учитывается только для администратора.
// @Tags Ads
// @Produce json
// @Param q query string false "Текст для поиска в заголовке и описании"
// @Param category query int false "ID категории"
// @Param city query string false "Город"
// @Param min_price query int false "Минимальная цена в центах"
// @Param max_price query int false "Максимальная цена в центах"
// @Param status query string false "Статус (только admin)"
// @Param limit query int false "Количество записей" default(20)
// @Param offset query int false "Смещение" default(0)
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Некорректные параметры"
// @Router /api/ads/list [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ads.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	filter, err := request.AdFilter(r)
	if err != nil {
		log.Warn("invalid filter", sl.Err(err))
		response.Fail(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ads, err := h.service.List(r.Context(), middlewarectx.ViewerFrom(r.Context()), filter)
	if err != nil {
		log.Error("failed to list ads", sl.Err(err))
		response.ServiceError(w, r, err, "could not list ads")
		return
	}

	render.JSON(w, r, response.StatusOKWithData(ads))
}
