package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/pricer/internal/handlers"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	var port string
	var provider string
	var model string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start web server for the catalog editor",
		Long: `Starts the Pricer web interface on the specified port.

The web interface lets you upload a PDF price catalog, watch the pages being
analyzed, adjust prices and photos, and download the updated price list.`,
		Example: `  # Start server on default port 8888
  pricer serve

  # Start server with Ollama and redis storage
  pricer serve --provider ollama --storage redis --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, closeStore, err := openStore(ctx, opts)
			if err != nil {
				return err
			}
			defer closeStore()

			deps, err := pipelineDeps(provider, model)
			if err != nil {
				return err
			}

			handler := handlers.New(ctx, store, deps)

			addr := ":" + port
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Pricer interface available", "addr", addr, "url", "http://localhost"+addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-ctx.Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				// a background run stops at the next page once ctx is cancelled
				handler.Wait()
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")
	cmd.Flags().StringVar(&provider, "provider", "", "LLM provider (gemini, openai, ollama) [$PRICER_PROVIDER]")
	cmd.Flags().StringVar(&model, "model", "", "Model name (defaults per provider)")

	return cmd
}
