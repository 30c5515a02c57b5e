package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/freelance-backend/internal/config"
	"github.com/ignatzorin/freelance-backend/internal/db"
	"github.com/ignatzorin/freelance-backend/internal/goroutine"
	httpHandlers "github.com/ignatzorin/freelance-backend/internal/http/handlers"
	httpRouter "github.com/ignatzorin/freelance-backend/internal/http/router"
	"github.com/ignatzorin/freelance-backend/internal/logger"
	"github.com/ignatzorin/freelance-backend/internal/repository"
	"github.com/ignatzorin/freelance-backend/internal/service"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	logLevel := "info"
	if cfg.Env == "development" {
		logLevel = "debug"
		logger.Init(logLevel)
		logger.SetTextFormatter()
	} else {
		logger.Init(logLevel)
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	// Вспомогательные сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)

	// Репозитории.
	contractRepo := repository.NewContractRepository(dbConn)
	worklogRepo := repository.NewWorklogRepository(dbConn)
	disputeRepo := repository.NewDisputeRepository(dbConn)
	escrowRepo := repository.NewEscrowRepository(dbConn)
	activityRepo := repository.NewActivityRepository(dbConn)

	// Сервисы.
	worklogService := service.NewWorklogService(contractRepo, worklogRepo, disputeRepo, escrowRepo, activityRepo, cfg.DisputeWindow)
	disputeService := service.NewDisputeService(contractRepo, disputeRepo, escrowRepo, activityRepo)
	adminDisputeService := service.NewAdminDisputeService(disputeRepo, escrowRepo, activityRepo, logger.Log)
	sweepService := service.NewSweepService(worklogRepo, disputeRepo, escrowRepo, logger.Log)

	// Фоновая сверка истёкших окон оспаривания.
	goroutine.SafeGoWithContext(ctx, func(ctx context.Context) {
		runSweepLoop(ctx, sweepService, cfg.SweepInterval)
	})

	// HTTP хэндлеры.
	worklogHandler := httpHandlers.NewWorklogHandler(worklogService)
	disputeHandler := httpHandlers.NewDisputeHandler(disputeService)
	adminDisputeHandler := httpHandlers.NewAdminDisputeHandler(adminDisputeService)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, worklogHandler, disputeHandler, adminDisputeHandler, healthHandler, tokenManager)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// runSweepLoop периодически освобождает холды с истёкшим окном оспаривания.
func runSweepLoop(ctx context.Context, sweep *service.SweepService, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := sweep.ReleaseLapsedHolds(ctx); err != nil {
				logger.Log.WithError(err).Error("Сверка просроченных холдов завершилась с ошибкой")
			}
		}
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
