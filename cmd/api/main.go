package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"memgraph/infrastructure/config"
	"memgraph/infrastructure/di"
	"memgraph/interfaces/http/server"
)

func main() {
	// Cancelled on interrupt so the server shuts down gracefully
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, cleanup, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	runErr := server.New(container).Run(ctx)
	if runErr != nil {
		container.Logger.Error("Server stopped with error", zap.Error(runErr))
	}

	cleanup()
	if err := container.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	if runErr != nil {
		os.Exit(1)
	}
	log.Println("Server stopped")
}
