// Package update реализует HTTP-обработчик изменения объявления.
package update

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/buscaaqui/internal/http/middlewarectx"
	"github.com/magabrotheeeer/buscaaqui/internal/http/request"
	"github.com/magabrotheeeer/buscaaqui/internal/http/response"
	"github.com/magabrotheeeer/buscaaqui/internal/lib/sl"
	"github.com/magabrotheeeer/buscaaqui/internal/models"
)

// Service описывает интерфейс изменения объявления.
type Service interface {
	Update(ctx context.Context, owner models.Viewer, id int64, in models.AdInput) (*models.Ad, error)
}

// Handler обрабатывает запросы изменения объявления.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Изменение объявления
// @Description Изменить может только владелец. Измененное объявление снова уходит на модерацию.
// @Tags Ads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID объявления"
// @Param request body models.AdInput true "Новые данные объявления"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 403 {object} response.ErrorResponse "Объявление принадлежит другому пользователю"
// @Failure 404 {object} response.ErrorResponse "Объявление не найдено"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /api/ads/{id} [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ads.update"

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

	var req models.AdInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	ad, err := h.service.Update(r.Context(), *viewer, id, req)
	if err != nil {
		log.Error("failed to update ad", slog.Int64("ad_id", id), sl.Err(err))
		response.ServiceError(w, r, err, "could not update ad")
		return
	}

	log.Info("ad updated", slog.Int64("ad_id", id), slog.String("status", ad.Status))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"ad": ad,
	}))
}
