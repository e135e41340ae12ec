package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the field value catalog",
}

var catalogSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write the configured seed entries to the catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := application.Seed(cmd.Context())
		if err != nil {
			return fmt.Errorf("couldn't seed catalog: %w", err)
		}
		slog.Info("catalog seeded", "entries", n)
		return nil
	},
}

var catalogInvalidateCmd = &cobra.Command{
	Use:   "invalidate <field>...",
	Short: "Drop cached lookups for catalog fields",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cache := application.Cache()
		if cache == nil {
			return fmt.Errorf("redis cache is not enabled")
		}
		for _, field := range args {
			n, err := cache.Invalidate(cmd.Context(), field)
			if err != nil {
				return err
			}
			slog.Info("cache invalidated", "field", field, "keys", n)
		}
		return nil
	},
}

func init() {
	catalogCmd.AddCommand(catalogSeedCmd, catalogInvalidateCmd)
	rootCmd.AddCommand(catalogCmd)
}
