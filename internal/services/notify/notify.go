// Package services публикует уведомления пользователям в очереди брокера.
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/buscaaqui/internal/lib/sl"
	"github.com/magabrotheeeer/buscaaqui/internal/metrics"
	"github.com/magabrotheeeer/buscaaqui/internal/models"
	"github.com/magabrotheeeer/buscaaqui/internal/rabbitmq"
)

// Publisher отправляет сообщение в брокер с ключом маршрутизации.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// NotifyService публикует уведомления. Ошибка публикации только логируется.
type NotifyService struct {
	publisher Publisher
	log       *slog.Logger
	now       func() time.Time
}

// NewNotifyService создает новый экземпляр NotifyService. publisher может быть nil,
// тогда уведомления отбрасываются.
func NewNotifyService(publisher Publisher, log *slog.Logger) *NotifyService {
	return &NotifyService{
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

// Notify публикует уведомление в очередь, соответствующую его типу.
func (s *NotifyService) Notify(ctx context.Context, n models.Notification) {
	const op = "services.notify.Notify"
	log := s.log.With(slog.String("op", op), slog.String("type", n.Type), sl.UID(n.UserUID))

	if n.Email == "" {
		log.Warn("notification without recipient dropped")
		metrics.NotificationsPublished.WithLabelValues(n.Type, "dropped").Inc()
		return
	}
	routingKey, ok := rabbitmq.RoutingKeyFor(n.Type)
	if !ok {
		log.Warn("unknown notification type dropped")
		metrics.NotificationsPublished.WithLabelValues(n.Type, "dropped").Inc()
		return
	}
	if s.publisher == nil {
		log.Debug("publisher disabled, notification dropped")
		metrics.NotificationsPublished.WithLabelValues(n.Type, "dropped").Inc()
		return
	}
	if n.SentAt.IsZero() {
		n.SentAt = s.now().UTC()
	}

	if err := s.publisher.Publish(ctx, routingKey, n); err != nil {
		log.Error("failed to publish notification", sl.Err(err))
		metrics.NotificationsPublished.WithLabelValues(n.Type, "error").Inc()
		return
	}
	metrics.NotificationsPublished.WithLabelValues(n.Type, "ok").Inc()
}
