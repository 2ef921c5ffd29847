// cmd/server/main.go

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backend/internal/app"
	"backend/internal/config"
	"backend/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Config error: %v", err)
		os.Exit(1)
	}

	application, err := app.Initialize(cfg)
	if err != nil {
		logger.Error("Init error: %v", err)
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- application.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("Start error: %v", err)
			os.Exit(1)
		}
	case <-quit:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := application.Stop(ctx); err != nil {
		logger.Error("Stop error: %v", err)
	}
}
