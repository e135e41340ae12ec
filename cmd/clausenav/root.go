package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gabisonia/go-clausenav/config"
	"github.com/gabisonia/go-clausenav/internal/app"
	"github.com/gabisonia/go-clausenav/internal/logger"
)

var (
	configPath   string
	logLevel     string
	outputFormat string
	userName     string

	application *app.App
)

var rootCmd = &cobra.Command{
	Use:   "clausenav",
	Short: "Translate search clauses to navigator state and back",
	Long: `clausenav converts the clause tree of a search into the simple
navigator form (selected values of indexed fields, before/after/previous/next
of date fields) and rebuilds clauses from navigator input.

Clauses are read as YAML or JSON documents, for example:

  and:
    - {field: fixVersion, op: in, values: ["1.0", 10002]}
    - {field: created, op: ">=", value: "-1w"}`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

		application, err = app.New(cmd.Context(), cfg)
		if err != nil {
			slog.Error("startup failed", "error", err)
			return fmt.Errorf("couldn't start: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if application == nil {
			return nil
		}
		return application.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the YAML configuration file.")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error).")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "yaml", "Output format: yaml or json.")
	rootCmd.PersistentFlags().StringVarP(&userName, "user", "u", "anonymous", "Name of the requesting user.")
}
