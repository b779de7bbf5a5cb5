package server

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/maffers001/property/internal/common"
	"github.com/maffers001/property/internal/engine"
	"github.com/maffers001/property/internal/model"
	"github.com/maffers001/property/internal/storage"
)

// transactionRow is the wire shape of one transaction. One name per concept;
// any client-side aliasing is the client's problem.
type transactionRow struct {
	TxID         string   `json:"tx_id"`
	Date         string   `json:"date"`
	Account      string   `json:"account"`
	Amount       string   `json:"amount"`
	Memo         string   `json:"memo"`
	PropertyCode string   `json:"property_code"`
	Category     string   `json:"category"`
	Subcategory  string   `json:"subcategory"`
	RuleStrength string   `json:"rule_strength,omitempty"`
	ReviewedAt   string   `json:"reviewed_at,omitempty"`
	Confidence   *float64 `json:"confidence"`
	NeedsReview  bool     `json:"needs_review"`
}

func toRow(txn *model.Transaction) transactionRow {
	row := transactionRow{
		TxID:         txn.ID,
		Date:         txn.Date.Format("2006-01-02"),
		Account:      txn.Account,
		Amount:       txn.Amount.StringFixed(2),
		Memo:         txn.Memo,
		PropertyCode: txn.PropertyCode,
		Category:     txn.Category,
		Subcategory:  txn.Subcategory,
		RuleStrength: string(txn.RuleStrength),
		Confidence:   txn.Confidence,
		NeedsReview:  txn.NeedsReview,
	}
	if txn.ReviewedAt != nil {
		row.ReviewedAt = txn.ReviewedAt.Format(time.RFC3339)
	}
	return row
}

// parseFilter reads the recognized query parameters into a storage filter.
// Unrecognized parameters are ignored, not rejected.
func parseFilter(r *http.Request) storage.Filter {
	q := r.URL.Query()

	splitCSV := func(key string) []string {
		var out []string
		for _, part := range strings.Split(q.Get(key), ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	parseDate := func(key string) *time.Time {
		s := q.Get(key)
		if s == "" {
			return nil
		}
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return nil
		}
		return &t
	}

	return storage.Filter{
		Properties:    splitCSV("property"),
		Categories:    splitCSV("category"),
		Subcategories: splitCSV("subcategory"),
		Search:        q.Get("search"),
		DateFrom:      parseDate("date_from"),
		DateTo:        parseDate("date_to"),
	}
}

func (s *Server) handleMonths(w http.ResponseWriter, r *http.Request) {
	ledgers, err := s.engine.Months(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	months := make([]string, 0, len(ledgers))
	for _, ledger := range ledgers {
		months = append(months, ledger.Month)
	}
	writeJSON(w, http.StatusOK, months)
}

func (s *Server) handleLists(w http.ResponseWriter, r *http.Request) {
	lists, err := s.engine.Lists(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lists)
}

func (s *Server) handleAddListValue(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Domain string `json:"domain"`
		Value  string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	value, err := s.engine.AddListValue(r.Context(), callerFrom(r),
		model.ListDomain(body.Domain), body.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "value": value})
}

func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	s.writeTransactionSet(w, r, false)
}

func (s *Server) handleReviewQueue(w http.ResponseWriter, r *http.Request) {
	s.writeTransactionSet(w, r, true)
}

// writeTransactionSet serves the filtered row set, as JSON or CSV depending
// on the requested format. The row set itself is identical either way.
func (s *Server) writeTransactionSet(w http.ResponseWriter, r *http.Request, reviewOnly bool) {
	month := r.URL.Query().Get("month")
	filter := parseFilter(r)

	var transactions []model.Transaction
	var err error
	if reviewOnly {
		transactions, err = s.engine.ReviewQueue(r.Context(), month, filter)
	} else {
		transactions, err = s.engine.Draft(r.Context(), month, filter)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	rows := make([]transactionRow, 0, len(transactions))
	for i := range transactions {
		rows = append(rows, toRow(&transactions[i]))
	}

	if r.URL.Query().Get("format") == "csv" {
		writeCSV(w, rows)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func writeCSV(w http.ResponseWriter, rows []transactionRow) {
	w.Header().Set("Content-Type", "text/csv")
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"date", "account", "amount", "memo", "property_code",
		"category", "subcategory", "tx_id", "confidence", "needs_review"})
	for _, row := range rows {
		confidence := ""
		if row.Confidence != nil {
			confidence = strconv.FormatFloat(*row.Confidence, 'g', -1, 64)
		}
		needsReview := "0"
		if row.NeedsReview {
			needsReview = "1"
		}
		_ = cw.Write([]string{row.Date, row.Account, row.Amount, row.Memo,
			row.PropertyCode, row.Category, row.Subcategory, row.TxID,
			confidence, needsReview})
	}
	cw.Flush()
}

func (s *Server) handleQueueAdd(w http.ResponseWriter, r *http.Request) {
	s.handleQueueChange(w, r, s.engine.AddToQueue)
}

func (s *Server) handleQueueRemove(w http.ResponseWriter, r *http.Request) {
	s.handleQueueChange(w, r, s.engine.RemoveFromQueue)
}

func (s *Server) handleQueueChange(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, caller engine.Caller, month string, ids []string) (int, error)) {
	var body struct {
		Month string   `json:"month"`
		TxIDs []string `json:"tx_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	applied, err := op(r.Context(), callerFrom(r), body.Month, body.TxIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "applied": applied})
}

func (s *Server) handleQueueAddByRule(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Month         string `json:"month"`
		Category      string `json:"category"`
		PropertyEmpty bool   `json:"property_empty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	applied, err := s.engine.AddToQueueByRule(r.Context(), callerFrom(r), body.Month,
		engine.QueuePredicate{Category: body.Category, PropertyEmpty: body.PropertyEmpty})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "applied": applied})
}

func (s *Server) handleCorrect(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TxID         string `json:"tx_id"`
		PropertyCode string `json:"property_code"`
		Category     string `json:"category"`
		Subcategory  string `json:"subcategory"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	err := s.engine.Correct(r.Context(), callerFrom(r),
		body.TxID, body.PropertyCode, body.Category, body.Subcategory)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	applied, err := s.engine.Submit(r.Context(), callerFrom(r), month)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "applied": applied})
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	path, err := s.engine.Finalize(r.Context(), callerFrom(r), month)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "path": path})
}

func (s *Server) handleReportSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	if month := q.Get("month"); month != "" {
		from, to = month, month
	}
	if from == "" || to == "" {
		writeError(w, common.NotFoundf("month or from/to range required"))
		return
	}

	summary, err := s.reports.Summary(r.Context(), from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
