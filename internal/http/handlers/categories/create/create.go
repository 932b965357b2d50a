// Package create реализует HTTP-обработчик создания категории администратором.
package create

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/buscaaqui/internal/http/response"
	"github.com/magabrotheeeer/buscaaqui/internal/lib/sl"
	"github.com/magabrotheeeer/buscaaqui/internal/models"
)

// Service описывает интерфейс создания категории.
type Service interface {
	CreateCategory(ctx context.Context, in models.CategoryInput) (*models.Category, error)
}

// Handler обрабатывает запросы создания категории.
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
// @Summary Создание категории
// @Description Если slug не передан, он строится из названия.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CategoryInput true "Категория"
// @Success 201 {object} response.Response
// @Failure 409 {object} response.ErrorResponse "Slug уже занят"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /api/admin/categories/create [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.categories.create"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.CategoryInput
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

	category, err := h.service.CreateCategory(r.Context(), req)
	if err != nil {
		log.Error("failed to create category", sl.Err(err))
		response.ServiceError(w, r, err, "could not create category")
		return
	}

	log.Info("category created", slog.String("slug", category.Slug))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"category": category,
	}))
}
