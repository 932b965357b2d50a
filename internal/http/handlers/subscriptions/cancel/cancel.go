// Package cancel реализует HTTP-обработчик отмены подписки.
package cancel

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/buscaaqui/internal/http/middlewarectx"
	"github.com/magabrotheeeer/buscaaqui/internal/http/response"
	"github.com/magabrotheeeer/buscaaqui/internal/lib/sl"
)

// Service описывает интерфейс отмены подписки.
type Service interface {
	Cancel(ctx context.Context, uid string) error
}

// Handler обрабатывает запросы отмены подписки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Отмена подписки
// @Description Отменяет подписку в шлюзе. Тариф действует до конца оплаченного периода.
// @Tags Subscriptions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse "Нет активной подписки"
// @Failure 502 {object} response.ErrorResponse "Ошибка платёжного шлюза"
// @Router /api/subscriptions/cancel [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscriptions.cancel"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	viewer := middlewarectx.ViewerFrom(r.Context())
	if viewer == nil {
		response.Fail(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.service.Cancel(r.Context(), viewer.UID); err != nil {
		log.Error("failed to cancel subscription", sl.Err(err))
		response.ServiceError(w, r, err, "could not cancel subscription")
		return
	}

	log.Info("subscription cancelled", sl.UID(viewer.UID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"cancelled": true,
	}))
}
