package main

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/maffers001/property/internal/model"

	"github.com/spf13/cobra"
)

func listsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lists",
		Short: "Show the registered label lists",
		Long: `Show the property codes, categories, and subcategories that
corrections are validated against.`,
		RunE: runLists,
	}

	cmd.AddCommand(listsAddCmd())

	return cmd
}

func listsAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <domain> <value>",
		Short: "Register a new label value",
		Long:  `Register a value under one of: property, category, subcategory.`,
		Args:  cobra.ExactArgs(2),
		RunE:  runListsAdd,
	}
}

func runLists(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	lists, err := initEngine(store).Lists(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DOMAIN\tVALUE")
	for _, value := range lists.PropertyCodes {
		fmt.Fprintf(w, "property\t%s\n", value)
	}
	for _, value := range lists.Categories {
		fmt.Fprintf(w, "category\t%s\n", value)
	}
	for _, value := range lists.Subcategories {
		fmt.Fprintf(w, "subcategory\t%s\n", value)
	}
	return w.Flush()
}

func runListsAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	value, err := initEngine(store).AddListValue(ctx, cliCaller(),
		model.ListDomain(args[0]), args[1])
	if err != nil {
		return err
	}

	slog.Info("Registered list value", "domain", args[0], "value", value)
	return nil
}
