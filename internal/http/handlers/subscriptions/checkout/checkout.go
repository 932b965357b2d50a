// Package checkout реализует HTTP-обработчик оформления платной подписки.
package checkout

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

// Service описывает интерфейс оформления подписки.
type Service interface {
	Checkout(ctx context.Context, uid string, req models.CheckoutRequest) (*models.CheckoutResult, error)
}

// Handler обрабатывает запросы оформления подписки.
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
// @Summary Оформление подписки
// @Description Создает подписку в платёжном шлюзе и возвращает ссылку на счёт первого платежа.
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CheckoutRequest true "Тариф и способ оплаты"
// @Success 201 {object} response.Response
// @Failure 409 {object} response.ErrorResponse "Подписка уже оформлена"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 502 {object} response.ErrorResponse "Ошибка платёжного шлюза"
// @Router /api/subscriptions/checkout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscriptions.checkout"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	viewer := middlewarectx.ViewerFrom(r.Context())
	if viewer == nil {
		response.Fail(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req models.CheckoutRequest
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

	result, err := h.service.Checkout(r.Context(), viewer.UID, req)
	if err != nil {
		log.Error("checkout failed", sl.Err(err))
		response.ServiceError(w, r, err, "could not start checkout")
		return
	}

	log.Info("checkout started",
		sl.UID(viewer.UID),
		slog.String("plan", req.Plan),
		slog.String("gateway_subscription_id", result.GatewaySubscriptionID),
	)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(result))
}
