// Package main запускает HTTP-сервер магазина кондитерских изделий.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/bakeshop-system/internal/config"
	"github.com/mmeshcher/bakeshop-system/internal/handler"
	"github.com/mmeshcher/bakeshop-system/internal/middleware"
	"github.com/mmeshcher/bakeshop-system/internal/notify"
	"github.com/mmeshcher/bakeshop-system/internal/redisx"
	"github.com/mmeshcher/bakeshop-system/internal/repository"
	"github.com/mmeshcher/bakeshop-system/internal/service"
)

func main() {
	// .env опционален: в контейнере конфигурация приходит из окружения.
	_ = godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	cache := redisx.New(cfg.RedisAddr)
	if cache != nil {
		defer cache.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var notifier *notify.KafkaNotifier
	if brokers := cfg.BrokerList(); len(brokers) > 0 {
		notifier = notify.NewKafkaNotifier(brokers, "bakeshop", logger)
		notifier.Start()
	}

	var svcNotifier service.Notifier
	if notifier != nil {
		svcNotifier = notifier
	}
	svc := service.NewService(repo, svcNotifier, logger, cfg.ShippingPrice)

	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret)
	h := handler.NewHandler(svc, logger, authMiddleware, cache)

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: h.SetupRouter(),
	}

	g, ctx := errgroup.WithContext(ctx)

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting bakeshop server", "addr", cfg.RunAddress)
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

		err := server.Shutdown(shutdownCtx)

		// Нотификатор закрывается только после остановки сервера:
		// дорабатывающие запросы ещё публикуют события.
		if notifier != nil {
			notifier.Close()
			notifier.WaitClosed()
		}

		if err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
