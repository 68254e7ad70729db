package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"causalGraphApp/config"
	"causalGraphApp/internal/app"
	"causalGraphApp/internal/app/dto"
	"causalGraphApp/internal/handlers/http"
	"causalGraphApp/internal/lib/logger/handlers/slogpretty"
	"causalGraphApp/pkg/utils"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	once := flag.Bool("once", false, "run a single polling cycle and exit")
	flag.Parse()

	cfg := config.LoadConfig()
	log := setupLogger(cfg.Env)
	// Create cancellable context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("Shutting down...")
		cancel()
	}()

	log.Info("Initializing app...")

	a, err := app.NewApp(ctx, log, cfg)
	if err != nil {
		log.Error(fmt.Sprintf("Failed to initialize app: %v", err))
		os.Exit(1)
	}

	if *once {
		a.RunCycle(ctx)
		a.Cleanup(ctx)
		log.Info("Single cycle completed.")
		return
	}

	// Start the Kafka event processor when the bus is configured.
	if a.EventProcessor != nil {
		log.Info("Starting event processor...")
		go a.EventProcessor.Run(ctx)
	}

	// !!! For DEMO purposes, publish synthetic events in local mode.
	// This is not for production use!
	if cfg.Env == envLocal && a.KafkaProducer != nil {
		generator := utils.NewEventGenerator(a.Universe.Tickers)
		go func() {
			log.Info("Starting synthetic event generator...")
			for ctx.Err() == nil {
				events := generator.GenerateRandomEvents(5)
				eventDtos := dto.FromModels(events)
				a.KafkaProducer.PublishEventBatch(ctx, eventDtos)
				time.Sleep(5 * time.Second)
			}
			log.Info("Synthetic event generator stopped")
		}()
	}
	// !!! End of DEMO event generation

	// Polling loop for the RSS producers.
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.PollSeconds) * time.Second)
		defer ticker.Stop()
		a.RunCycle(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.RunCycle(ctx)
			}
		}
	}()

	// Set up HTTP server
	httpAddr := fmt.Sprintf(":%s", a.Config.HTTPPort)
	httpServer := http.NewServer(httpAddr, a.Orchestrator, a.AlertEngine, a.Broadcaster)

	// Start HTTP server in a goroutine
	go func() {
		log.Info(fmt.Sprintf("HTTP server listening on %s", httpAddr))
		if err := httpServer.Start(); err != nil {
			log.Info(fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	// Wait for termination signal
	<-ctx.Done()

	// Clean up app resources
	log.Info("Cleaning up app resources...")
	a.Cleanup(ctx)

	// Create a timeout context for graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Shutdown HTTP server with timeout
	log.Info("Shutting down HTTP server...")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Info(fmt.Sprintf("HTTP server shutdown error: %v", err))
	}

	log.Info("Service stopped.")
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}
