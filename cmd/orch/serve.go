package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts the HTTP server and serves until SIGINT or SIGTERM.

Routes:
  GET  /health                 liveness
  POST /api/chat               chat with optional file or resource context
  GET  /api/resources          resources offered by the resource server
  GET  /api/resources/read     read one resource (?uri= or ?file=)
  GET  /api/exchanges          journaled exchanges (journal enabled)
  GET  /api/exchanges/{id}     one journaled exchange
  GET  /metrics                Prometheus metrics`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(contextOrBackground(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Warn("closing resources", "error", err)
		}
	}()

	srv, err := a.server()
	if err != nil {
		return err
	}

	slog.Info("orchestrator configured",
		"port", cfg.Server.Port,
		"completion_url", cfg.Completion.URL,
		"bridge", cfg.Bridge.Enabled,
		"journal", cfg.Journal.Type,
		"auth", cfg.Auth.Type,
	)
	return srv.Run(ctx)
}

// contextOrBackground returns cmd's context, which is nil when a command
// runs outside Execute (as in tests).
func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
