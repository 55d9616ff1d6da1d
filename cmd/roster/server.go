package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"sdi-exam/roster/internal/bootstrap"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the roster HTTP API server",
	Long: `Start the roster HTTP server on the configured port (default :8080).

Startup is synchronous: the schema is migrated and, when
seed.reset_characters is set, the Characters table is replaced with the
seed rows before the listener opens. Any startup failure exits non-zero.
The server shuts down cleanly on SIGTERM or SIGINT.`,
	RunE: runServer,
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := app.bootstrapper.RunBootstrap(ctx, cfg.Seed.ResetCharacters)
	if err != nil {
		return fmt.Errorf("startup: %w", err)
	}
	if result.Status != bootstrap.StatusOK {
		return fmt.Errorf("startup failed: %s", failedPhase(result))
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      app.router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	tlsEnabled := cfg.Server.TLSCertFile != "" && cfg.Server.TLSKeyFile != ""

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("roster server listening",
			"addr", addr,
			"tls", tlsEnabled,
			"environment", cfg.Environment,
			"swagger", cfg.IsDevelopment(),
		)
		var err error
		if tlsEnabled {
			err = srv.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("server stopped cleanly")
	return nil
}

// failedPhase names the first phase that reported an error.
func failedPhase(result *bootstrap.BootstrapResult) string {
	result.Lock()
	defer result.Unlock()
	for _, name := range []string{bootstrap.PhaseSchema, bootstrap.PhaseEvents, bootstrap.PhaseSeed} {
		if p, ok := result.Phases[name]; ok && p.Status == bootstrap.StatusError {
			return fmt.Sprintf("%s: %s", name, p.Error)
		}
	}
	return result.Status
}
