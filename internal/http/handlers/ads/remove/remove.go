// Package remove реализует HTTP-обработчик удаления объявления.
//
// Обработчик обслуживает и маршрут владельца, и административный маршрут:
// права проверяет сервис по пользователю запроса.
package remove

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

// Service описывает интерфейс удаления объявления.
type Service interface {
	Remove(ctx context.Context, actor models.Viewer, id int64) error
}

// Handler обрабатывает запросы удаления объявления.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Удаление объявления
// @Description Удалить может владелец или администратор.
// @Tags Ads
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID объявления"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse "Нет прав на объявление"
// @Failure 404 {object} response.ErrorResponse "Объявление не найдено"
// @Router /api/ads/{id} [delete]
// @Router /api/admin/ads/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ads.remove"

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

	if err := h.service.Remove(r.Context(), *viewer, id); err != nil {
		log.Error("failed to remove ad", slog.Int64("ad_id", id), sl.Err(err))
		response.ServiceError(w, r, err, "could not remove ad")
		return
	}

	log.Info("ad removed", slog.Int64("ad_id", id), sl.UID(viewer.UID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"deleted": id,
	}))
}
