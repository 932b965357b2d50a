// Package mine реализует HTTP-обработчик списка объявлений текущего пользователя.
package mine

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

// Service описывает интерфейс получения своих объявлений.
type Service interface {
	Mine(ctx context.Context, owner models.Viewer, f models.AdFilter) (*models.AdList, error)
}

// Handler обрабатывает запросы своих объявлений.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Мои объявления
// @Description Объявления текущего пользователя во всех статусах.
// @Tags Ads
// @Produce json
// @Security BearerAuth
// @Param status query string false "Статус"
// @Param limit query int false "Количество записей" default(20)
// @Param offset query int false "Смещение" default(0)
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Router /api/ads/mine [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ads.mine"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	viewer := middlewarectx.ViewerFrom(r.Context())
	if viewer == nil {
		response.Fail(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	filter, err := request.AdFilter(r)
	if err != nil {
		log.Warn("invalid filter", sl.Err(err))
		response.Fail(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ads, err := h.service.Mine(r.Context(), *viewer, filter)
	if err != nil {
		log.Error("failed to list own ads", sl.Err(err))
		response.ServiceError(w, r, err, "could not list ads")
		return
	}

	render.JSON(w, r, response.StatusOKWithData(ads))
}
