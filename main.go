package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"gallery-service/internal/app"
	"gallery-service/internal/config"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
)

const (
	envFilePath      = ".env"
	signalBufferSize = 1
)

var shutdownSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
}

func main() {
	logger := log.New("main")
	logger.SetOutput(os.Stderr)

	if err := godotenv.Load(envFilePath); err != nil {
		logger.Warn(".env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("failed to load configuration: %v", err)
	}
	logger.Info("configuration loaded")

	service, err := app.InitializeService(context.Background(), cfg)
	if err != nil {
		logger.Fatalf("failed to initialize service: %v", err)
	}

	go func() {
		if err := service.Start(); err != nil {
			logger.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, signalBufferSize)
	signal.Notify(quit, shutdownSignals...)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := service.Shutdown(ctx); err != nil {
		logger.Fatalf("server forced to shutdown: %v", err)
	}

	logger.Info("server exited gracefully")
}
