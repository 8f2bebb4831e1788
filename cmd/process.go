package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lehigh-university-libraries/pricer/internal/models"
	"github.com/lehigh-university-libraries/pricer/internal/pipeline"
	"github.com/spf13/cobra"
)

func newProcessCmd(opts *globalOptions) *cobra.Command {
	var provider string
	var model string

	cmd := &cobra.Command{
		Use:   "process <file.pdf>",
		Short: "Extract products from a PDF catalog into the saved catalog",
		Long: `Runs the page pipeline on a PDF without the web interface.

Each page is rendered, sent to the LLM, and its products are appended to the
saved catalog as soon as the page is done. Products already in the catalog
are kept.`,
		Example: `  # Process a catalog with Gemini (GEMINI_API_KEY must be set)
  pricer process lista.pdf

  # Process with a local Ollama model
  pricer process lista.pdf --provider ollama --model mistral-small3.2:24b`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := args[0]

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}

			store, closeStore, err := openStore(ctx, opts)
			if err != nil {
				return err
			}
			defer closeStore()

			deps, err := pipelineDeps(provider, model)
			if err != nil {
				return err
			}
			deps.Catalog = store

			result, err := pipeline.Run(ctx, deps, filepath.Base(path), data, logStatus)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Processed %d pages, extracted %d products (%d in catalog)\n",
				result.Pages, result.Products, store.Len())
			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "LLM provider (gemini, openai, ollama) [$PRICER_PROVIDER]")
	cmd.Flags().StringVar(&model, "model", "", "Model name (defaults per provider)")

	return cmd
}

func logStatus(s models.ProcessingStatus) {
	switch s.Step {
	case models.StepError:
		slog.Error(s.Message)
	case models.StepAnalyzing:
		slog.Info(s.Message, "page", s.Progress, "total", s.Total)
	default:
		slog.Info(s.Message)
	}
}
