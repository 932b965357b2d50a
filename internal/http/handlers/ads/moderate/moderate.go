// Package moderate реализует HTTP-обработчик модерации объявления администратором.
package moderate

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/buscaaqui/internal/http/request"
	"github.com/magabrotheeeer/buscaaqui/internal/http/response"
	"github.com/magabrotheeeer/buscaaqui/internal/lib/sl"
	"github.com/magabrotheeeer/buscaaqui/internal/models"
)

// Service описывает интерфейс модерации.
type Service interface {
	Moderate(ctx context.Context, id int64, req models.ModerationRequest) (*models.Ad, error)
}

// Handler обрабатывает запросы модерации.
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
// @Summary Модерация объявления
// @Description approve публикует объявление, reject отклоняет с указанием причины. Владелец получает уведомление.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID объявления"
// @Param request body models.ModerationRequest true "Решение"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse "Требуется роль admin"
// @Failure 404 {object} response.ErrorResponse "Объявление не найдено"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /api/admin/ads/{id}/moderate [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ads.moderate"

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

	var req models.ModerationRequest
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

	ad, err := h.service.Moderate(r.Context(), id, req)
	if err != nil {
		log.Error("failed to moderate ad", slog.Int64("ad_id", id), sl.Err(err))
		response.ServiceError(w, r, err, "could not moderate ad")
		return
	}

	log.Info("ad moderated", slog.Int64("ad_id", id), slog.String("status", ad.Status))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"ad": ad,
	}))
}
