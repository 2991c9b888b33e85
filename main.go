package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/permcheck/config"
	logger "github.com/dev-mohitbeniwal/permcheck/logging"
	"github.com/dev-mohitbeniwal/permcheck/server"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}

	// Initialize logger
	logger.InitLogger(config.GetString("log.dir"))
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := server.Bootstrap(ctx)
	if err != nil {
		logger.Fatal("Failed to bootstrap server", zap.Error(err))
	}
	defer srv.Close()

	if err := srv.ListenAndServe(ctx, config.GetString("server.port")); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
}
