package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/app"
	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/config"
	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/jobs"
	"github.com/dani-beltran/steamdeck-unnoficial-db-api/internal/util"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := util.NewLogger(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Steam Deck DB worker starting...",
		zap.String("queue_schedule", cfg.Jobs.QueueSchedule),
		zap.String("process_schedule", cfg.Jobs.ProcessSchedule),
	)

	buildCtx, buildCancel := context.WithTimeout(context.Background(), 30*time.Second)
	container, err := app.Build(buildCtx, cfg, logger)
	buildCancel()
	if err != nil {
		logger.Error("Failed to assemble application services", zap.Error(err))
		os.Exit(1)
	}
	defer container.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := jobs.NewRunner(container.Jobs, logger)
	if err := runner.Start(ctx, cfg.Jobs); err != nil {
		logger.Error("Failed to start job runner", zap.Error(err))
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	cancel()
	runner.Stop()

	for _, miner := range container.Miners {
		if err := miner.Close(); err != nil {
			logger.Warn("Failed to close miner", zap.Error(err))
		}
	}

	logger.Info("Shutdown complete")
}
