// Package resolve реализует HTTP-обработчик решения по жалобе.
package resolve

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

// Service описывает интерфейс решения по жалобе.
type Service interface {
	Resolve(ctx context.Context, reviewer models.Viewer, id int64, req models.ResolveReportRequest) (*models.Report, error)
}

// Handler обрабатывает запросы решения по жалобе.
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
// @Summary Решение по жалобе
// @Description Закрывает открытую жалобу. С reject_ad=true объявление отклоняется.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID жалобы"
// @Param request body models.ResolveReportRequest true "Решение"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse "Жалоба не найдена"
// @Failure 409 {object} response.ErrorResponse "Жалоба уже закрыта"
// @Router /api/admin/reports/{id}/resolve [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.reports.resolve"

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

	var req models.ResolveReportRequest
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

	report, err := h.service.Resolve(r.Context(), *viewer, id, req)
	if err != nil {
		log.Error("failed to resolve report", slog.Int64("report_id", id), sl.Err(err))
		response.ServiceError(w, r, err, "could not resolve report")
		return
	}

	log.Info("report resolved", slog.Int64("report_id", id), slog.String("status", report.Status))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"report": report,
	}))
}
