// Package main implements the entry point for the taskpool API server,
// which accepts asynchronous tasks over HTTP and processes them through a
// bounded pool of workers with automatic retry.
package main

import (
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/nferrell/taskpool-api/internal/config"
	"github.com/nferrell/taskpool-api/internal/platform/logger"
	"github.com/nferrell/taskpool-api/internal/task"
	"github.com/nferrell/taskpool-api/internal/tasklog"
)

func main() {
	app, err := initializeApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := app.startHTTPServer(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// application bundles the wired dependencies of the running service.
type application struct {
	config     *config.Config
	logger     *slog.Logger
	dispatcher *task.Dispatcher
	sink       *tasklog.Sink
}

// initializeApp loads configuration and wires up application components.
func initializeApp() (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger := logger.Setup(cfg.Server)
	appLogger.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"max_attempts", cfg.Worker.MaxAttempts,
		"max_workers", cfg.Worker.MaxWorkers)

	// The attempt log is best-effort: failing to open it degrades to no
	// attempt logging instead of aborting startup.
	var sink *tasklog.Sink
	if cfg.TaskLog.Path != "" {
		sink, err = tasklog.NewFileSink(cfg.TaskLog.Path, appLogger)
		if err != nil {
			appLogger.Error("failed to open task log, attempt logging disabled",
				"path", cfg.TaskLog.Path,
				"error", err)
			sink = nil
		}
	}

	executor := task.NewSimulatedExecutor(
		time.Duration(cfg.Worker.SimulatedDurationMs)*time.Millisecond,
		cfg.Worker.ErrorPercentage,
	)

	dispatcherCfg := task.DispatcherConfig{
		MaxWorkers:  cfg.Worker.MaxWorkers,
		MaxAttempts: cfg.Worker.MaxAttempts,
		RetryDelay:  time.Duration(cfg.Worker.RetryDelayMs) * time.Millisecond,
		IdleTimeout: time.Duration(cfg.Worker.IdleTimeoutMs) * time.Millisecond,
	}

	var attempts task.AttemptLogger
	if sink != nil {
		attempts = sink
	}
	dispatcher := task.NewDispatcher(dispatcherCfg, executor, attempts, appLogger)

	return &application{
		config:     cfg,
		logger:     appLogger,
		dispatcher: dispatcher,
		sink:       sink,
	}, nil
}

// cleanup releases application resources after the HTTP server has stopped.
func (app *application) cleanup() {
	app.dispatcher.Close()
	if app.sink != nil {
		if err := app.sink.Close(); err != nil {
			app.logger.Error("failed to close task log", "error", err)
		}
	}
}
