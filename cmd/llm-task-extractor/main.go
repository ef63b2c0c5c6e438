package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mikey/llm-task-extractor/internal/core"
	"github.com/mikey/llm-task-extractor/internal/di"
	"github.com/mikey/llm-task-extractor/internal/ports"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

func main() {
	ctx := context.Background()

	// Build the dependency injection container
	container, err := di.BuildContainer(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Fprintf(os.Stderr, "Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	frontEnds []ports.FrontEnd,
	generator core.TextGenerator,
	cache core.ExtractionCache,
) error {
	defer logger.Sync()

	started := make([]ports.FrontEnd, 0, len(frontEnds))
	for _, fe := range frontEnds {
		if err := fe.Start(); err != nil {
			logger.Error("Failed to start front end", zap.String("front_end", fe.Name()), zap.Error(err))
			stopAll(logger, started)
			return err
		}
		started = append(started, fe)
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("Shutting down...", zap.String("signal", sig.String()))

	stopAll(logger, started)

	// Close any resources that need closing
	if closer, ok := generator.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close text model", zap.Error(err))
		}
	}

	// Stop the cache if needed
	if stopper, ok := cache.(interface{ Stop() }); ok {
		stopper.Stop()
	}

	logger.Info("Shutdown complete")
	return nil
}

func stopAll(logger *zap.Logger, frontEnds []ports.FrontEnd) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for i := len(frontEnds) - 1; i >= 0; i-- {
		if err := frontEnds[i].Stop(ctx); err != nil {
			logger.Error("Failed to stop front end", zap.String("front_end", frontEnds[i].Name()), zap.Error(err))
		}
	}
}
