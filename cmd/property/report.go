package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a summary report for a month range",
		Long: `Aggregate per-property income and outgoings across a range of months
and print the summary as JSON.`,
		RunE: runReport,
	}

	cmd.Flags().StringP("from", "f", "", "first month of the range (format: 2006-01)")
	cmd.Flags().StringP("to", "t", "", "last month of the range (format: 2006-01)")
	cmd.Flags().StringP("month", "m", "", "shorthand for a single-month range")

	return cmd
}

func runReport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	if month, _ := cmd.Flags().GetString("month"); month != "" {
		from, to = month, month
	}
	if from == "" || to == "" {
		return errors.New("either --month or both --from and --to are required")
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	summary, err := initReports(store).Summary(ctx, from, to)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(summary)
}
