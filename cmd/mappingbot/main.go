package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/idmasse/mappingbot/internal/auth"
	"github.com/idmasse/mappingbot/internal/config"
	"github.com/idmasse/mappingbot/internal/flip"
	"github.com/idmasse/mappingbot/internal/logger"
	"github.com/idmasse/mappingbot/internal/pipeline"
	"github.com/idmasse/mappingbot/internal/store"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize logger
	logger := logger.New(cfg.LogLevel)
	defer logger.Sync()

	tokens := auth.NewTokenCache(cfg, logger)
	client := flip.NewClient(cfg, tokens, logger)

	var runStore pipeline.RunStore
	if cfg.RunsDBPath != "" {
		st, err := store.New(cfg.RunsDBPath)
		if err != nil {
			logger.Fatal("Failed to open run store: %v", err)
		}
		defer st.Close()
		runStore = st
	}

	runner := pipeline.NewRunner(cfg, logger, client, tokens, runStore)

	// Stop cleanly between batches on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := runner.Run(ctx)
	if err != nil {
		logger.Fatal("Run failed: %v", err)
	}

	logger.Info("run %s: %d collected, %d attempted, %d approved, %d failed",
		summary.RunID, summary.Totals.Collected, summary.Totals.Attempted,
		summary.Totals.Approved, summary.Totals.Failed)
}
