// main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/LilVoxy/sales_dwh/ETL/config"
	"github.com/LilVoxy/sales_dwh/ETL/pipeline"
	"github.com/LilVoxy/sales_dwh/ETL/utils"
	"github.com/LilVoxy/sales_dwh/routes"
	"github.com/LilVoxy/sales_dwh/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	logger := utils.NewETLLogger(cfg.Log)
	defer logger.Sync()
	logger.Info("Запуск сервера...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Менеджер подписчиков на события запусков
	wsManager := websocket.NewManager(logger)
	go wsManager.Run(ctx)

	rt, err := pipeline.FromConfig(ctx, cfg, logger, wsManager)
	if err != nil {
		logger.Error("Не удалось собрать конвейер: %v", err)
		os.Exit(1)
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Error("Ошибка закрытия соединения с хранилищем: %v", err)
		}
	}()

	router := mux.NewRouter()
	routes.SetupRoutes(router, rt.Pipeline, wsManager.HandleConnections, logger)

	// Этап может выполняться долго, поэтому WriteTimeout не задан
	server := &http.Server{
		Addr:        cfg.HTTPAddr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("Сервер запущен на %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Ошибка запуска сервера: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Получен сигнал завершения, останавливаем сервер...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Ошибка остановки сервера: %v", err)
	}

	logger.Info("Сервер остановлен")
}
