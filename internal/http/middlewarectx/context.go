// Package middlewarectx содержит HTTP middleware: восстановление пользователя
// по токену сессии, проверку роли и ограничение частоты запросов.
package middlewarectx

import (
	"context"

	"github.com/magabrotheeeer/buscaaqui/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// ViewerKey ключ пользователя запроса в контексте.
const ViewerKey Key = "viewer"

// WithViewer возвращает контекст с пользователем запроса.
func WithViewer(ctx context.Context, v *models.Viewer) context.Context {
	return context.WithValue(ctx, ViewerKey, v)
}

// ViewerFrom возвращает пользователя запроса. nil для анонимного запроса.
func ViewerFrom(ctx context.Context) *models.Viewer {
	v, _ := ctx.Value(ViewerKey).(*models.Viewer)
	return v
}
