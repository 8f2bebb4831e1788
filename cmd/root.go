package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// globalOptions are shared by every subcommand
type globalOptions struct {
	storage  string
	dataDir  string
	redisURL string
	logLevel string
}

func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "pricer",
		Short: "Price list editor with LLM-powered product extraction",
		Long: `Pricer reads a PDF price catalog, extracts products, prices and photos
from every page with a vision-capable LLM, and lets you adjust prices before
exporting an updated price list.

The catalog being edited is saved after every change and restored on the next run.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			opts.applyEnv(cmd)
			return setupLogger(opts.logLevel)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.storage, "storage", "file", "Catalog storage backend (file, redis, memory) [$PRICER_STORAGE]")
	cmd.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "./data", "Directory for the file storage backend [$PRICER_DATA_DIR]")
	cmd.PersistentFlags().StringVar(&opts.redisURL, "redis-url", "redis://localhost:6379/0", "Redis URL for the redis storage backend [$REDIS_URL]")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error) [$LOG_LEVEL]")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newProcessCmd(opts))
	cmd.AddCommand(newListCmd(opts))
	cmd.AddCommand(newAdjustCmd(opts))
	cmd.AddCommand(newSetPriceCmd(opts))
	cmd.AddCommand(newSetImageCmd(opts))
	cmd.AddCommand(newRemoveCmd(opts))
	cmd.AddCommand(newClearCmd(opts))
	cmd.AddCommand(newExportCmd(opts))

	return cmd
}

// applyEnv fills flags the user did not set from the environment
func (o *globalOptions) applyEnv(cmd *cobra.Command) {
	fromEnv := func(flag, env string, target *string) {
		if cmd.Flags().Changed(flag) {
			return
		}
		if v := os.Getenv(env); v != "" {
			*target = v
		}
	}
	fromEnv("storage", "PRICER_STORAGE", &o.storage)
	fromEnv("data-dir", "PRICER_DATA_DIR", &o.dataDir)
	fromEnv("redis-url", "REDIS_URL", &o.redisURL)
	fromEnv("log-level", "LOG_LEVEL", &o.logLevel)
}

func setupLogger(level string) error {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "", "info":
		l = slog.LevelInfo
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		return fmt.Errorf("unknown log level: %s", level)
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})
	slog.SetDefault(slog.New(handler))
	return nil
}
