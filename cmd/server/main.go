package main

import (
	"chat-room/api"
	"chat-room/internal"
	"chat-room/moderation"
	"chat-room/observability"
	"chat-room/repositories"
	"chat-room/runtime/workers"
	"chat-room/services"
	"context"
	"errors"
	"fmt"
	"log/slog"
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
		fmt.Fprintf(os.Stderr, "Chat room terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component and owns their lifecycle, deferred cleanups run before main exits.
func run() (int, error) {
	// 1. Configuration & Logger
	config, err := internal.LoadConfig()
	if err != nil {
		return exitConfig, err
	}
	charReplacement, err := config.CharacterRune()
	if err != nil {
		return exitConfig, err
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	// 2. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Store
	store, err := openStore(ctx, config, logger)
	if err != nil {
		return exitRuntime, err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close store", "error", err)
		}
	}()

	// 4. Services
	censor, err := buildCensor(config, charReplacement, logger)
	if err != nil {
		return exitConfig, err
	}
	messageService := services.NewMessageService(store.Participants, store.Messages, censor, logger, time.Now)
	participantService := services.NewParticipantService(store.Participants, messageService, logger, time.Now)

	// 5. Presence reaper under supervision
	reaper := workers.NewReaperWorker(
		store.Participants, messageService, logger,
		config.ReaperInterval, config.InactivityThreshold, config.ReaperConcurrency,
		time.Now,
	)
	sup := workers.NewSupervisor(logger, config.RestartInterval)
	sup.Add(reaper)
	supervisorDone := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(supervisorDone)
	}()

	// 6. HTTP server
	var probe api.ProcessProber
	if p, err := observability.NewProcessProbe(logger); err != nil {
		logger.Warn("Process stats unavailable", "error", err)
	} else {
		probe = p
	}
	handler := api.NewHTTPServer(participantService, messageService, store, probe, logger, config.CORSOrigin).Handler()
	httpServer := api.NewServer(config.Addr(), handler)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "address", config.Addr(), "backend", config.StoreBackend, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	code, runErr := exitOK, error(nil)
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case runErr = <-errChan:
		code = exitRuntime
	}

	// 8. Graceful shutdown: drain requests first, then stop the reaper, the store closes last
	logger.Info("Shutting down gracefully...")
	if err := api.Shutdown(httpServer, config.ShutdownTimeout, logger); err != nil && runErr == nil {
		code, runErr = exitRuntime, err
	}
	sup.Stop()
	<-supervisorDone
	logger.Info("Program stopped cleanly")
	return code, runErr
}

func openStore(ctx context.Context, config internal.Config, logger *slog.Logger) (*repositories.Store, error) {
	switch config.StoreBackend {
	case internal.BackendRedis:
		logger.Info("Connecting to Redis")
		return repositories.OpenRedis(ctx, config.RedisURL, logger)
	default:
		logger.Info("Opening BadgerDB", "path", config.BadgerFilepath)
		return repositories.OpenBadger(config.BadgerFilepath, logger)
	}
}

// buildCensor returns nil when no word is configured, moderation is then disabled.
func buildCensor(config internal.Config, charReplacement rune, logger *slog.Logger) (services.Censor, error) {
	words := moderation.ParseWords(config.CensoredWords)
	if len(words) == 0 {
		logger.Info("Moderation disabled")
		return nil, nil
	}
	moderator, err := moderation.NewModerator(words, charReplacement, logger)
	if err != nil {
		return nil, fmt.Errorf("moderation setup failed: %w", err)
	}
	logger.Info("Moderation enabled", "words", len(words))
	return moderator, nil
}
