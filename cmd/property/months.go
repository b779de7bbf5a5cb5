package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func monthsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "months",
		Short: "List known ledger months and their state",
		RunE:  runMonths,
	}
}

func runMonths(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	ledgers, err := initEngine(store).Months(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MONTH\tSTATE\tTRANSACTIONS\tARTIFACT")
	for _, ledger := range ledgers {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			ledger.Month, ledger.State, ledger.TransactionCount, ledger.ArtifactPath)
	}
	return w.Flush()
}
