package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/maffers001/property/internal/model"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import transactions from a CSV bank export",
		Long: `Import bank transactions from a CSV file.

Each row is categorized by the active rules and either accepted as-is
or flagged for review. Rows are grouped by month unless --month pins
every row to a single ledger.

Expected columns: date, account, amount, memo.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}

	cmd.Flags().StringP("month", "m", "", "ledger month for all rows (format: 2006-01)")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	month, _ := cmd.Flags().GetString("month")

	file, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open import file: %w", err)
	}
	defer func() { _ = file.Close() }()

	incoming, err := readIncomingCSV(file)
	if err != nil {
		return err
	}
	if len(incoming) == 0 {
		slog.Info("No transactions found in file", "file", args[0])
		return nil
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	eng := initEngine(store)
	caller := cliCaller()

	byMonth := make(map[string][]model.IncomingTransaction)
	if month != "" {
		if _, err := model.ParseMonth(month); err != nil {
			return err
		}
		byMonth[month] = incoming
	} else {
		for _, txn := range incoming {
			key := model.MonthOf(txn.Date)
			byMonth[key] = append(byMonth[key], txn)
		}
	}

	months := make([]string, 0, len(byMonth))
	for key := range byMonth {
		months = append(months, key)
	}
	sort.Strings(months)

	total := 0
	for _, key := range months {
		saved, err := eng.Ingest(ctx, caller, key, byMonth[key])
		if err != nil {
			return fmt.Errorf("failed to import into %s: %w", key, err)
		}
		slog.Info("Imported transactions", "month", key, "count", saved)
		total += saved
	}

	slog.Info("Import complete", "total", total)
	return nil
}

func readIncomingCSV(r io.Reader) ([]model.IncomingTransaction, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"date", "account", "amount", "memo"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("CSV is missing required column %q", required)
		}
	}

	var incoming []model.IncomingTransaction
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}

		date, err := time.Parse("2006-01-02", record[col["date"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid date %q", line, record[col["date"]])
		}
		amount, err := decimal.NewFromString(record[col["amount"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid amount %q", line, record[col["amount"]])
		}

		incoming = append(incoming, model.IncomingTransaction{
			Date:    date,
			Account: record[col["account"]],
			Amount:  amount,
			Memo:    record[col["memo"]],
		})
	}

	return incoming, nil
}
