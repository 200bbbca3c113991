// Package main запускает HTTP-сервер сервиса clipstream.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/clipstream-system/internal/adwatch"
	"github.com/mmeshcher/clipstream-system/internal/config"
	"github.com/mmeshcher/clipstream-system/internal/handler"
	"github.com/mmeshcher/clipstream-system/internal/middleware"
	"github.com/mmeshcher/clipstream-system/internal/repository"
	"github.com/mmeshcher/clipstream-system/internal/service"
	"github.com/mmeshcher/clipstream-system/internal/settings"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		sugar.Fatalw("time zone error", "zone", cfg.TimeZone, "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	settingsMgr := settings.NewManager(repo.Settings(), logger)

	var adClient *adwatch.Client
	if cfg.AdProviderAddress != "" {
		adClient = adwatch.NewClient(cfg.AdProviderAddress)
	}

	svc := service.NewService(repo, settingsMgr, adClient, loc)
	defer svc.Close()

	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret)
	h := handler.NewHandler(svc, logger, authMiddleware)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Запуск фонового процесса подтверждения просмотров рекламы
	g.Go(func() error {
		svc.StartAdViewUpdates(ctx)
		return nil
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting clipstream server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
