package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gabisonia/go-clausenav/internal/app"
	"github.com/gabisonia/go-clausenav/navigator"
)

var dateClausePath string

type dateOutput struct {
	Params map[string]string `json:"params" yaml:"params"`
	Fits   map[string]bool   `json:"fits" yaml:"fits"`
}

var dateCmd = &cobra.Command{
	Use:   "date",
	Short: "Convert a clause into before/after/previous/next for every date field",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := readClause(dateClausePath)
		if err != nil {
			return err
		}
		ranges, err := application.DateRanges(cmd.Context(), application.User(userName), root)
		if err != nil {
			return fmt.Errorf("couldn't convert dates: %w", err)
		}
		return writeOutput(cmd.OutOrStdout(), outputFormat, dateOutput{
			Params: app.Params(ranges),
			Fits:   app.Fits(ranges),
		})
	},
}

var (
	dateClauseField string
	dateRange       navigator.DateRange
)

var dateClauseCmd = &cobra.Command{
	Use:   "date-clause",
	Short: "Validate navigator date input and rebuild its clause",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		field, err := application.Date(dateClauseField)
		if err != nil {
			return err
		}
		user := application.User(userName)
		if err := field.Translator.Validate(user, dateRange); err != nil {
			return err
		}
		out, err := newClauseOutput(field.Translator.ClauseFor(user, dateRange))
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), outputFormat, out)
	},
}

func init() {
	dateCmd.Flags().StringVarP(&dateClausePath, "clause", "f", "-", "Clause document to read, - for stdin.")

	dateClauseCmd.Flags().StringVar(&dateClauseField, "field", "", "Date field id.")
	dateClauseCmd.Flags().StringVar(&dateRange.After, "after", "", "Absolute lower bound.")
	dateClauseCmd.Flags().StringVar(&dateRange.Before, "before", "", "Absolute upper bound.")
	dateClauseCmd.Flags().StringVar(&dateRange.Previous, "previous", "", "Relative lower bound, e.g. -1w.")
	dateClauseCmd.Flags().StringVar(&dateRange.Next, "next", "", "Relative upper bound, e.g. 2d.")
	_ = dateClauseCmd.MarkFlagRequired("field")

	rootCmd.AddCommand(dateCmd, dateClauseCmd)
}
