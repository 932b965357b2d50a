// Package scheduler собирает приложение периодических задач.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/buscaaqui/internal/cache"
	"github.com/magabrotheeeer/buscaaqui/internal/config"
	"github.com/magabrotheeeer/buscaaqui/internal/lib/sl"
	"github.com/magabrotheeeer/buscaaqui/internal/rabbitmq"
	adsservice "github.com/magabrotheeeer/buscaaqui/internal/services/ads"
	notifyservice "github.com/magabrotheeeer/buscaaqui/internal/services/notify"
	reconcileservice "github.com/magabrotheeeer/buscaaqui/internal/services/reconcile"
	schedulerservice "github.com/magabrotheeeer/buscaaqui/internal/services/scheduler"
	"github.com/magabrotheeeer/buscaaqui/internal/storage/repository"
)

// App представляет приложение планировщика.
type App struct {
	schedulerService *schedulerservice.SchedulerService
	db               *repository.Storage
	cache            *cache.Cache
	conn             *amqp.Connection
	ch               *amqp.Channel
	logger           *slog.Logger
}

// waitForDB ждёт, пока API применит миграции.
func waitForDB(ctx context.Context, db *repository.Storage) error {
	for range 10 {
		if err := db.Ready(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}
	return fmt.Errorf("database not ready after retries")
}

// New создает новый экземпляр приложения планировщика.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(ctx, logger.With(slog.String("component", "rabbitmq")), cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.NotificationQueues())
	if err != nil {
		closeResources(nil, conn, logger)
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}

	if err := waitForDB(ctx, db); err != nil {
		_ = db.Close()
		closeResources(ch, conn, logger)
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("cache not initialized: %w", err)
	}

	notifier := notifyservice.NewNotifyService(rabbitmq.NewPublisher(ch), logger)
	// Для истечения объявлений тариф не нужен.
	ads := adsservice.NewAdService(db, nil, cacheRedis, notifier, logger)
	reconciler := reconcileservice.NewReconcileService(db, logger)

	schedulerService := schedulerservice.NewSchedulerService(db, ads, reconciler, notifier, schedulerservice.Intervals{
		Expire:    cfg.Scheduler.ExpireInterval,
		Notify:    cfg.Scheduler.NotifyInterval,
		Reconcile: cfg.Scheduler.ReconcileInterval,
	}, logger)

	return &App{
		schedulerService: schedulerService,
		db:               db,
		cache:            cacheRedis,
		conn:             conn,
		ch:               ch,
		logger:           logger,
	}, nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", sl.Err(err))
		}
	}
}

// Run запускает задачи и блокируется до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	err := a.schedulerService.Run(ctx)

	a.logger.Info("shutting down scheduler service")
	closeResources(a.ch, a.conn, a.logger)
	if cerr := a.cache.Db.Close(); cerr != nil {
		a.logger.Error("failed to close redis", sl.Err(cerr))
	}
	if cerr := a.db.Close(); cerr != nil {
		a.logger.Error("failed to close storage", sl.Err(cerr))
	}
	return err
}
