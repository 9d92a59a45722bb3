package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/runx/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve starts the HTTP server exposing transfer trigger and progress endpoints.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	history, db, err := r.openHistory()
	if err != nil {
		r.logger.Warn("transfer history unavailable", "error", err)
	}
	if db != nil {
		defer db.Close()
	}

	engine, err := r.ensureEngine(history)
	if err != nil {
		return err
	}

	store, err := r.ensureStore()
	if err != nil {
		return err
	}

	handler := server.NewTransferHandler(engine, r.oauth, store, r.config, configPath, r.logger)
	router := server.NewBasicRouter()
	router.Use(server.Logging(r.logger))
	router.Handler(handler)

	addr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Info("starting server", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	r.writePlain("Listening on http://%s\n", addr)
	r.writePlain("Trigger a download: POST /transfer/download\n")
	r.writePlain("Trigger an upload:  POST /transfer/upload\n")

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	r.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	return nil
}
