// Package webhook реализует HTTP-обработчик уведомлений платёжного шлюза.
package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/buscaaqui/internal/http/response"
	"github.com/magabrotheeeer/buscaaqui/internal/lib/signature"
	"github.com/magabrotheeeer/buscaaqui/internal/lib/sl"
	"github.com/magabrotheeeer/buscaaqui/internal/models"
)

// maxBodySize ограничение размера тела уведомления.
const maxBodySize = 1 << 20

// Service описывает интерфейс обработки уведомлений шлюза.
type Service interface {
	Verify(body []byte, header string) error
	Handle(ctx context.Context, body []byte) error
}

// Handler обрабатывает уведомления шлюза.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Уведомление платёжного шлюза
// @Description Проверяет подпись HMAC-SHA256 тела запроса и применяет событие платежа или подписки.
// @Tags Payments
// @Accept json
// @Produce json
// @Param asaas-signature header string true "sha256=<hex>"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Некорректное тело"
// @Failure 401 {object} response.ErrorResponse "Неверная подпись"
// @Failure 500 {object} response.ErrorResponse "Событие не сохранено"
// @Router /api/payments/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payments.webhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		response.Fail(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	defer r.Body.Close()

	if err := h.service.Verify(body, r.Header.Get(signature.HeaderName)); err != nil {
		log.Warn("invalid or missing webhook signature", sl.Err(err))
		response.Fail(w, r, http.StatusUnauthorized, "invalid signature")
		return
	}

	if err := h.service.Handle(r.Context(), body); err != nil {
		if errors.Is(err, models.ErrInvalidInput) {
			log.Warn("malformed webhook payload", sl.Err(err))
			response.Fail(w, r, http.StatusBadRequest, "invalid payload")
			return
		}
		log.Error("failed to store webhook event", sl.Err(err))
		response.Fail(w, r, http.StatusInternalServerError, "could not process event")
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"received": true,
	}))
}
