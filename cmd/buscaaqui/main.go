// Package main BuscaAquiBdC API
//
// @title           BuscaAquiBdC API
// @version         1.0
// @description     API маркетплейса объявлений: объявления, модерация, тарифы и оплата через Asaas
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.email  suporte@buscaaquibdc.com.br

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and session token.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/buscaaqui/internal/app/buscaaqui"
	"github.com/magabrotheeeer/buscaaqui/internal/config"
)

func newLogger(env string) *slog.Logger {
	if env == config.EnvProd {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func main() {
	cfg := config.MustLoad()
	logger := newLogger(cfg.Env)

	logger.Info("starting buscaaqui", slog.String("env", cfg.Env))
	logger.Debug("config loaded", slog.String("config", cfg.String()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := buscaaqui.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize app", slog.Any("err", err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("app stopped with error", slog.Any("err", err))
		os.Exit(1)
	}

	logger.Info("buscaaqui stopped gracefully")
}
