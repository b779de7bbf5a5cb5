package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func submitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "submit <month>",
		Short: "Accept all queued transactions and mark the month submitted",
		Args:  cobra.ExactArgs(1),
		RunE:  runSubmit,
	}
}

func finalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "finalize <month>",
		Short: "Export the month's ledger and lock it",
		Long: `Write the month's transactions to a CSV artifact and move the ledger
to its final state. A finalized month rejects further edits.`,
		Args: cobra.ExactArgs(1),
		RunE: runFinalize,
	}
}

func runSubmit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	applied, err := initEngine(store).Submit(ctx, cliCaller(), args[0])
	if err != nil {
		return err
	}

	slog.Info("Month submitted", "month", args[0], "accepted", applied)
	return nil
}

func runFinalize(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	path, err := initEngine(store).Finalize(ctx, cliCaller(), args[0])
	if err != nil {
		return err
	}

	slog.Info("Month finalized", "month", args[0], "artifact", path)
	return nil
}
