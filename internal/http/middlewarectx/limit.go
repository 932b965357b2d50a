package middlewarectx

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/magabrotheeeer/buscaaqui/internal/http/response"
	"github.com/magabrotheeeer/buscaaqui/internal/lib/sl"
	"github.com/magabrotheeeer/buscaaqui/internal/metrics"
	"github.com/magabrotheeeer/buscaaqui/internal/ratelimit"
)

// callerKey идентификатор вызывающего: uid для вошедшего пользователя, иначе IP.
func callerKey(r *http.Request) string {
	if v := ViewerFrom(r.Context()); v != nil {
		return "uid:" + v.UID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// RateLimit ограничивает частоту запросов по ключу "вызывающий + маршрут".
// Если счётчик недоступен, запрос пропускается.
func RateLimit(limiter ratelimit.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := callerKey(r) + ":" + metrics.RoutePattern(r)
			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				log.Warn("rate limiter unavailable, request allowed",
					slog.String("request_id", middleware.GetReqID(r.Context())),
					sl.Err(err),
				)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				log.Info("too many requests", slog.String("key", key))
				response.Fail(w, r, http.StatusTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
