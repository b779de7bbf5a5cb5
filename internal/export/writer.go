// Package export writes the durable artifact produced when a month is
// finalized. The artifact's content format is a boundary concern; the engine
// only needs the path back.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/maffers001/property/internal/model"
)

// Writer persists finalized month exports.
type Writer interface {
	WriteMonth(month string, transactions []model.Transaction) (string, error)
}

// CSVWriter writes one CSV file per finalized month into a directory.
type CSVWriter struct {
	dir string
}

// NewCSVWriter creates a writer rooted at dir.
func NewCSVWriter(dir string) *CSVWriter {
	return &CSVWriter{dir: dir}
}

// WriteMonth writes the month's transactions to <dir>/<month>_final.csv and
// returns the path.
func (w *CSVWriter) WriteMonth(month string, transactions []model.Transaction) (string, error) {
	if err := os.MkdirAll(w.dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	path := filepath.Join(w.dir, month+"_final.csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	header := []string{"Date", "Account", "Amount", "Memo", "Property", "Category", "Subcategory", "TxID"}
	if err := cw.Write(header); err != nil {
		return "", fmt.Errorf("failed to write header: %w", err)
	}

	for i := range transactions {
		txn := &transactions[i]
		record := []string{
			txn.Date.Format("2006-01-02"),
			txn.Account,
			txn.Amount.StringFixed(2),
			txn.Memo,
			txn.PropertyCode,
			txn.Category,
			txn.Subcategory,
			txn.ID,
		}
		if err := cw.Write(record); err != nil {
			return "", fmt.Errorf("failed to write row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", fmt.Errorf("failed to flush export: %w", err)
	}
	return path, nil
}
