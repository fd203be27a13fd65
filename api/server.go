package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// NewServer wraps handler in an http.Server with production timeouts.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// Shutdown lets in-flight requests finish, giving up after timeout.
func Shutdown(server *http.Server, timeout time.Duration, log *slog.Logger) error {
	log.Info("Shutting down HTTP server...")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
		return err
	}
	log.Info("HTTP server shutdown completed")
	return nil
}
