package buscaaqui

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	// Регистрация swagger-документации.
	_ "github.com/magabrotheeeer/buscaaqui/docs"

	"github.com/magabrotheeeer/buscaaqui/internal/config"
	adminstats "github.com/magabrotheeeer/buscaaqui/internal/http/handlers/admin/stats"
	adcreate "github.com/magabrotheeeer/buscaaqui/internal/http/handlers/ads/create"
	adhighlight "github.com/magabrotheeeer/buscaaqui/internal/http/handlers/ads/highlight"
	adlist "github.com/magabrotheeeer/buscaaqui/internal/http/handlers/ads/list"
	admine "github.com/magabrotheeeer/buscaaqui/internal/http/handlers/ads/mine"
	admoderate "github.com/magabrotheeeer/buscaaqui/internal/http/handlers/ads/moderate"
	adread "github.com/magabrotheeeer/buscaaqui/internal/http/handlers/ads/read"
	adremove "github.com/magabrotheeeer/buscaaqui/internal/http/handlers/ads/remove"
	adupdate "github.com/magabrotheeeer/buscaaqui/internal/http/handlers/ads/update"
	"github.com/magabrotheeeer/buscaaqui/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/buscaaqui/internal/http/handlers/auth/logout"
	"github.com/magabrotheeeer/buscaaqui/internal/http/handlers/auth/me"
	"github.com/magabrotheeeer/buscaaqui/internal/http/handlers/auth/register"
	categorycreate "github.com/magabrotheeeer/buscaaqui/internal/http/handlers/categories/create"
	categorylist "github.com/magabrotheeeer/buscaaqui/internal/http/handlers/categories/list"
	"github.com/magabrotheeeer/buscaaqui/internal/http/handlers/health"
	paymentlist "github.com/magabrotheeeer/buscaaqui/internal/http/handlers/payments/list"
	"github.com/magabrotheeeer/buscaaqui/internal/http/handlers/payments/webhook"
	planlist "github.com/magabrotheeeer/buscaaqui/internal/http/handlers/plans/list"
	reportcreate "github.com/magabrotheeeer/buscaaqui/internal/http/handlers/reports/create"
	reportlist "github.com/magabrotheeeer/buscaaqui/internal/http/handlers/reports/list"
	reportresolve "github.com/magabrotheeeer/buscaaqui/internal/http/handlers/reports/resolve"
	"github.com/magabrotheeeer/buscaaqui/internal/http/handlers/subscriptions/cancel"
	"github.com/magabrotheeeer/buscaaqui/internal/http/handlers/subscriptions/checkout"
	"github.com/magabrotheeeer/buscaaqui/internal/http/handlers/subscriptions/current"
	"github.com/magabrotheeeer/buscaaqui/internal/http/handlers/subscriptions/gatewaysync"
	"github.com/magabrotheeeer/buscaaqui/internal/http/handlers/subscriptions/reconcile"
	userlist "github.com/magabrotheeeer/buscaaqui/internal/http/handlers/users/list"
	"github.com/magabrotheeeer/buscaaqui/internal/http/handlers/users/profile"
	userremove "github.com/magabrotheeeer/buscaaqui/internal/http/handlers/users/remove"
	"github.com/magabrotheeeer/buscaaqui/internal/http/handlers/users/updateprofile"
	"github.com/magabrotheeeer/buscaaqui/internal/http/middlewarectx"
	"github.com/magabrotheeeer/buscaaqui/internal/metrics"
	"github.com/magabrotheeeer/buscaaqui/internal/ratelimit"
)

// AuthService операции пользователей и сессий.
type AuthService interface {
	register.Service
	login.Service
	me.Service
	updateprofile.Service
	profile.Service
	userlist.Service
	userremove.Service
	middlewarectx.TokenValidator
}

// AdService операции объявлений.
type AdService interface {
	adcreate.Service
	adread.Service
	adlist.Service
	admine.Service
	adupdate.Service
	adremove.Service
	adhighlight.Service
	admoderate.Service
}

// CatalogService справочники.
type CatalogService interface {
	categorylist.Service
	categorycreate.Service
	planlist.Service
}

// ReportService жалобы.
type ReportService interface {
	reportcreate.Service
	reportlist.Service
	reportresolve.Service
}

// BillingService подписки и платежи.
type BillingService interface {
	current.Service
	checkout.Service
	cancel.Service
	paymentlist.Service
	gatewaysync.Service
}

// Services зависимости обработчиков.
type Services struct {
	Auth      AuthService
	Ads       AdService
	Catalog   CatalogService
	Reports   ReportService
	Billing   BillingService
	Reconcile reconcile.Service
	Webhook   webhook.Service
	Stats     adminstats.Service
	Health    health.Checker
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg *config.Config, limiter ratelimit.Limiter, svc Services) {
	cookieName := cfg.Session.CookieName
	secure := cfg.IsProduction()

	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		metrics.Middleware,
		cors.New(cors.Options{
			AllowedOrigins:   []string{cfg.BaseURL},
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
		}).Handler,
		middlewarectx.Authenticate(svc.Auth, cookieName, logger),
	)

	limited := middlewarectx.RateLimit(limiter, logger)

	r.Route("/api", func(r chi.Router) {
		// Открытые конечные точки
		r.With(limited).Post("/auth/register", register.New(logger, svc.Auth).ServeHTTP)
		r.With(limited).Post("/auth/login", login.New(logger, svc.Auth, login.Cookie{Name: cookieName, Secure: secure}).ServeHTTP)
		r.Post("/auth/logout", logout.New(cookieName, secure).ServeHTTP)
		r.Get("/ads/list", adlist.New(logger, svc.Ads).ServeHTTP)
		r.Get("/ads/{id}", adread.New(logger, svc.Ads).ServeHTTP)
		r.Get("/categories/list", categorylist.New(logger, svc.Catalog).ServeHTTP)
		r.Get("/plans/list", planlist.New(logger, svc.Catalog).ServeHTTP)
		r.Get("/users/{uid}/profile", profile.New(logger, svc.Auth).ServeHTTP)
		r.With(limited).Post("/reports/create", reportcreate.New(logger, svc.Reports).ServeHTTP)
		r.Post("/payments/webhook", webhook.New(logger, svc.Webhook).ServeHTTP)
		r.Get("/health", health.New(logger, svc.Health).ServeHTTP)

		// Группа с обязательной сессией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RequireAuth)
			r.Get("/auth/me", me.New(logger, svc.Auth).ServeHTTP)
			r.Put("/users/me", updateprofile.New(logger, svc.Auth).ServeHTTP)
			r.With(limited).Post("/ads/create", adcreate.New(logger, svc.Ads).ServeHTTP)
			r.Get("/ads/mine", admine.New(logger, svc.Ads).ServeHTTP)
			r.Put("/ads/{id}", adupdate.New(logger, svc.Ads).ServeHTTP)
			r.Delete("/ads/{id}", adremove.New(logger, svc.Ads).ServeHTTP)
			r.Post("/ads/{id}/highlight", adhighlight.New(logger, svc.Ads).ServeHTTP)
			r.Get("/subscriptions/current", current.New(logger, svc.Billing).ServeHTTP)
			r.With(limited).Post("/subscriptions/checkout", checkout.New(logger, svc.Billing).ServeHTTP)
			r.Post("/subscriptions/cancel", cancel.New(logger, svc.Billing).ServeHTTP)
			r.Get("/payments/list", paymentlist.New(logger, svc.Billing).ServeHTTP)
		})

		// Административная группа
		r.Route("/admin", func(r chi.Router) {
			r.Use(middlewarectx.RequireAdmin)
			r.Post("/ads/{id}/moderate", admoderate.New(logger, svc.Ads).ServeHTTP)
			r.Delete("/ads/{id}", adremove.New(logger, svc.Ads).ServeHTTP)
			r.Get("/reports/list", reportlist.New(logger, svc.Reports).ServeHTTP)
			r.Post("/reports/{id}/resolve", reportresolve.New(logger, svc.Reports).ServeHTTP)
			r.Post("/categories/create", categorycreate.New(logger, svc.Catalog).ServeHTTP)
			r.Get("/users/list", userlist.New(logger, svc.Auth).ServeHTTP)
			r.Delete("/users/{uid}", userremove.New(logger, svc.Auth).ServeHTTP)
			r.Post("/subscriptions/reconcile", reconcile.New(logger, svc.Reconcile).ServeHTTP)
			r.Post("/subscriptions/sync", gatewaysync.New(logger, svc.Billing).ServeHTTP)
			r.Get("/stats", adminstats.New(logger, svc.Stats).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
