package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gabisonia/go-clausenav/navigator"
)

var (
	valuesClausePath string
	valuesMode       string
)

var valuesCmd = &cobra.Command{
	Use:   "values",
	Short: "Show the navigator values of every indexed field for a clause",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := parseMode(valuesMode)
		if err != nil {
			return err
		}
		root, err := readClause(valuesClausePath)
		if err != nil {
			return err
		}
		values, err := application.Values(cmd.Context(), application.User(userName), root, mode)
		if err != nil {
			return fmt.Errorf("couldn't resolve values: %w", err)
		}
		return writeOutput(cmd.OutOrStdout(), outputFormat, values)
	},
}

var clauseValuesField string

var clauseCmd = &cobra.Command{
	Use:   "clause --field <id> [--] [values...]",
	Short: "Rebuild the clause for navigator values of an indexed field",
	RunE: func(cmd *cobra.Command, args []string) error {
		field, err := application.Indexed(clauseValuesField)
		if err != nil {
			return err
		}
		name := field.Config.ClauseNames().Primary
		c, err := field.Translator.ClauseForNavigatorValues(cmd.Context(), name, args)
		if err != nil {
			return fmt.Errorf("couldn't build clause: %w", err)
		}
		out, err := newClauseOutput(c)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), outputFormat, out)
	},
}

var (
	fitsField      string
	fitsClausePath string
)

var fitsCmd = &cobra.Command{
	Use:   "fits",
	Short: "Report whether a clause can be shown by an indexed field's navigator",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		field, err := application.Indexed(fitsField)
		if err != nil {
			return err
		}
		root, err := readClause(fitsClausePath)
		if err != nil {
			return err
		}
		fits := field.Translator.FitsNavigator(field.Config.ClauseNames().All(), root)
		return writeOutput(cmd.OutOrStdout(), outputFormat, map[string]bool{"fits": fits})
	},
}

func parseMode(raw string) (navigator.ValueMode, error) {
	switch raw {
	case "index", "":
		return navigator.ModeIndex, nil
	case "navigator":
		return navigator.ModeNavigator, nil
	default:
		return 0, fmt.Errorf("unknown mode %q (want index or navigator)", raw)
	}
}

func init() {
	valuesCmd.Flags().StringVarP(&valuesClausePath, "clause", "f", "-", "Clause document to read, - for stdin.")
	valuesCmd.Flags().StringVar(&valuesMode, "mode", "navigator", "Value mode: index or navigator.")

	clauseCmd.Flags().StringVar(&clauseValuesField, "field", "", "Indexed field id.")
	_ = clauseCmd.MarkFlagRequired("field")

	fitsCmd.Flags().StringVar(&fitsField, "field", "", "Indexed field id.")
	fitsCmd.Flags().StringVarP(&fitsClausePath, "clause", "f", "-", "Clause document to read, - for stdin.")
	_ = fitsCmd.MarkFlagRequired("field")

	rootCmd.AddCommand(valuesCmd, clauseCmd, fitsCmd)
}
