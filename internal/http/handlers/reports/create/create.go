// Package create реализует HTTP-обработчик жалобы на объявление.
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

// Service описывает интерфейс создания жалобы.
type Service interface {
	Create(ctx context.Context, reporter *models.Viewer, in models.ReportInput) (*models.Report, error)
}

// Handler обрабатывает запросы создания жалобы.
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
// @Summary Жалоба на объявление
// @Description Жалобу может отправить и анонимный посетитель.
// @Tags Reports
// @Accept json
// @Produce json
// @Param request body models.ReportInput true "Жалоба"
// @Success 201 {object} response.Response
// @Failure 404 {object} response.ErrorResponse "Объявление не найдено"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 429 {object} response.ErrorResponse "Слишком много запросов"
// @Router /api/reports/create [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.reports.create"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.ReportInput
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

	report, err := h.service.Create(r.Context(), middlewarectx.ViewerFrom(r.Context()), req)
	if err != nil {
		log.Error("failed to create report", sl.Err(err))
		response.ServiceError(w, r, err, "could not create report")
		return
	}

	log.Info("report created", slog.Int64("report_id", report.ID), slog.Int64("ad_id", report.AdID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"report": report,
	}))
}
