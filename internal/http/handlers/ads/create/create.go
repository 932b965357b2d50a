// Package create реализует HTTP-обработчик создания объявления.
package create

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/buscaaqui/internal/http/middlewarectx"
	"github.com/magabrotheeeer/buscaaqui/internal/http/response"
	"github.com/magabrotheeeer/buscaaqui/internal/lib/sl"
	"github.com/magabrotheeeer/buscaaqui/internal/models"
)

// Service описывает интерфейс бизнес-логики создания объявления.
type Service interface {
	Create(ctx context.Context, owner models.Viewer, in models.AdInput) (*models.Ad, error)
}

// Handler обрабатывает запросы на создание объявления.
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
// @Summary Создание объявления
// @Description Создает объявление в статусе pending. Количество объявлений ограничено тарифом.
// @Tags Ads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.AdInput true "Данные объявления"
// @Success 201 {object} response.Response "Созданное объявление"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Лимит тарифа исчерпан"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /api/ads/create [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.ads.create"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	viewer := middlewarectx.ViewerFrom(r.Context())
	if viewer == nil {
		response.Fail(w, r, http.StatusUnauthorized, "unauthorized")
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

	ad, err := h.service.Create(r.Context(), *viewer, req)
	if err != nil {
		log.Error("failed to create ad", sl.Err(err))
		response.ServiceError(w, r, err, "could not create ad")
		return
	}

	log.Info("ad created", slog.Int64("ad_id", ad.ID), sl.UID(viewer.UID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"ad": ad,
	}))
}
