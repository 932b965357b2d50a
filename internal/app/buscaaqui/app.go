// Package buscaaqui собирает HTTP API маркетплейса и gRPC-сервис health.
package buscaaqui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"
	"golang.org/x/sync/errgroup"

	"github.com/magabrotheeeer/buscaaqui/internal/asaas"
	"github.com/magabrotheeeer/buscaaqui/internal/cache"
	"github.com/magabrotheeeer/buscaaqui/internal/config"
	"github.com/magabrotheeeer/buscaaqui/internal/grpc/health"
	"github.com/magabrotheeeer/buscaaqui/internal/http/response"
	"github.com/magabrotheeeer/buscaaqui/internal/lib/jwt"
	"github.com/magabrotheeeer/buscaaqui/internal/lib/sl"
	"github.com/magabrotheeeer/buscaaqui/internal/migrations"
	"github.com/magabrotheeeer/buscaaqui/internal/rabbitmq"
	"github.com/magabrotheeeer/buscaaqui/internal/ratelimit"
	adsservice "github.com/magabrotheeeer/buscaaqui/internal/services/ads"
	authservice "github.com/magabrotheeeer/buscaaqui/internal/services/auth"
	billingservice "github.com/magabrotheeeer/buscaaqui/internal/services/billing"
	catalogservice "github.com/magabrotheeeer/buscaaqui/internal/services/catalog"
	notifyservice "github.com/magabrotheeeer/buscaaqui/internal/services/notify"
	reconcileservice "github.com/magabrotheeeer/buscaaqui/internal/services/reconcile"
	reportsservice "github.com/magabrotheeeer/buscaaqui/internal/services/reports"
	statsservice "github.com/magabrotheeeer/buscaaqui/internal/services/stats"
	webhookservice "github.com/magabrotheeeer/buscaaqui/internal/services/webhook"
	"github.com/magabrotheeeer/buscaaqui/internal/storage/repository"
)

const (
	shutdownTimeout     = 15 * time.Second
	healthCheckInterval = 15 * time.Second
)

// App HTTP API и gRPC health с общими зависимостями.
type App struct {
	server   *http.Server
	health   *health.Server
	grpcAddr string
	logger   *slog.Logger
	db       *repository.Storage
	cache    *cache.Cache
	conn     *amqp.Connection
	ch       *amqp.Channel
}

// New подключает хранилища, применяет миграции и собирает маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	response.SetDebug(cfg.Env == config.EnvLocal)

	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	app := &App{
		health:   health.New(db, healthCheckInterval, logger),
		grpcAddr: cfg.GRPCHealthAddress,
		logger:   logger,
		db:       db,
		cache:    cacheRedis,
	}

	var publisher notifyservice.Publisher
	conn, ch, err := connectBroker(ctx, cfg, logger)
	if err != nil {
		logger.Warn("rabbitmq unavailable, notifications disabled", sl.Err(err))
	} else {
		app.conn, app.ch = conn, ch
		publisher = rabbitmq.NewPublisher(ch)
	}

	var limiter ratelimit.Limiter
	switch cfg.RateLimit.Backend {
	case ratelimit.BackendMemory:
		limiter = ratelimit.NewMemory(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	default:
		limiter = ratelimit.NewRedis(cacheRedis.Db, cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}

	gateway := asaas.NewClient(cfg.Asaas, logger)
	notifier := notifyservice.NewNotifyService(publisher, logger)
	reconciler := reconcileservice.NewReconcileService(db, logger)
	billing := billingservice.NewBillingService(db, gateway, logger)
	ads := adsservice.NewAdService(db, billing, cacheRedis, notifier, logger)

	svc := Services{
		Auth:      authservice.NewAuthService(db, jwt.NewJWTMaker(cfg.Session.SecretKey, cfg.Session.TokenTTL), logger),
		Ads:       ads,
		Catalog:   catalogservice.NewCatalogService(db, cacheRedis, logger),
		Reports:   reportsservice.NewReportService(db, ads, logger),
		Billing:   billing,
		Reconcile: reconciler,
		Webhook:   webhookservice.NewWebhookService(db, reconciler, notifier, gateway, cfg.Asaas.WebhookSecret, logger),
		Stats:     statsservice.NewStatsService(db),
		Health:    db,
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg, limiter, svc)

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

func connectBroker(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := rabbitmq.Connect(ctx, logger.With(slog.String("component", "rabbitmq")), cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.NotificationQueues())
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return conn, ch, nil
}

// Run запускает HTTP и gRPC серверы и останавливает их при отмене ctx.
func (a *App) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", a.grpcAddr)
	if err != nil {
		a.close()
		return fmt.Errorf("grpc listen %s: %w", a.grpcAddr, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		a.logger.Info("gRPC health server starting on", slog.String("address", a.grpcAddr))
		return a.health.Serve(lis)
	})

	g.Go(func() error {
		a.health.Watch(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down servers gracefully")

		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := a.server.Shutdown(timeoutCtx)
		a.health.Stop()
		return err
	})

	err = g.Wait()
	a.close()
	return err
}

func (a *App) close() {
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if err := a.cache.Db.Close(); err != nil {
		a.logger.Error("failed to close redis", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
}
