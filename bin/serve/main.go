package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"go.uber.org/zap"

	"taste3d/pkg/app"
	"taste3d/pkg/config"
	"taste3d/pkg/logging"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Initialize services
	ctx := context.Background()
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize", zap.Error(err))
	}
	defer a.Close()
	a.Start(ctx)

	// Start server
	cfg.PrintServerStartMessage()
	if err := http.ListenAndServe(cfg.ServerAddress(), a.Handler()); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}
