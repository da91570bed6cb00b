package main

import (
	"broadcast-relay/infrastructure/websocket/server"
	"broadcast-relay/internal"
	"broadcast-relay/observability"
	"broadcast-relay/runtime"
	"broadcast-relay/runtime/workers"
	"broadcast-relay/services"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Relay terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires the relay, serves WebSocket clients and blocks until a
// termination signal or a server failure.
func run() (int, error) {
	// 1. Configuration & Logger
	config, err := internal.LoadConfig()
	if err != nil {
		return exitConfig, err
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	// 2. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Supervision & Relay
	monitoring := observability.NewMonitoringManager(logger)
	sup := workers.NewSupervisor(logger, config.RestartInterval).
		OnRestart(func(string) { monitoring.IncrWorkerRestarts() })
	registry := runtime.NewRegistry()
	relay := runtime.NewRelay(logger, sup, registry, monitoring, runtime.RelayConfig{
		NumberOfWorkers:      config.NumberOfWorkers,
		BufferSize:           config.BufferSize,
		SinkTimeout:          config.SinkTimeout,
		MetricInterval:       config.MetricInterval,
		LowCapacityThreshold: config.LowCapacityThreshold,
	})
	if err := relay.Start(ctx); err != nil {
		return exitRuntime, fmt.Errorf("relay start failed: %w", err)
	}
	defer relay.Stop()

	// 4. WebSocket server
	relayServer := server.NewRelayServer(logger, services.NewRelayService(relay), monitoring, server.Options{
		SendBufferSize:     config.ConnectionBufferSize,
		MaxMessageSize:     config.MaxMessageSize,
		PingInterval:       config.PingInterval,
		PongTimeout:        config.PongTimeout,
		WriteTimeout:       config.WriteTimeout,
		RateLimitPerSecond: config.RateLimitPerSecond,
	}, config.AllowedOrigins)

	httpServer := &http.Server{
		Addr:              config.Address(),
		Handler:           relayServer.Routes(internal.NewStatsHandler(logger, monitoring, relay.Connections)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting relay server", "address", config.Address(), "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 5. Wait for Stop or Error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 6. Graceful shutdown: stop accepting, then close every connection.
	// Hijacked WebSocket connections are not tracked by Shutdown, relay.Stop closes them.
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	relay.Stop()
	logger.Info("Program stopped cleanly")

	return exitOK, nil
}
