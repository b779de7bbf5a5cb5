package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maffers001/property/internal/engine"
	"github.com/maffers001/property/internal/export"
	"github.com/maffers001/property/internal/model"
	"github.com/maffers001/property/internal/report"
	"github.com/maffers001/property/internal/storage"
)

var testSecret = []byte("test-secret")

func newTestServer(t *testing.T) (*httptest.Server, *engine.Engine) {
	t.Helper()
	ctx := context.Background()

	store, err := storage.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(ctx))

	eng := engine.New(store, export.NewCSVWriter(t.TempDir()))
	srv := httptest.NewServer(New(eng, report.NewAggregator(store, nil), testSecret).Router())
	t.Cleanup(srv.Close)
	return srv, eng
}

func testToken(t *testing.T, secret []byte) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "tester",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(secret)
	require.NoError(t, err)
	return signed
}

// doRequest performs an authenticated request and decodes a JSON response
// into out when out is non-nil.
func doRequest(t *testing.T, srv *httptest.Server, method, path string, body any, out any) *http.Response {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = &bytes.Buffer{}
	}

	req, err := http.NewRequest(method, srv.URL+path, reqBody)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testToken(t, testSecret))
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func ingestMonth(t *testing.T, eng *engine.Engine, month string, memos ...string) []model.Transaction {
	t.Helper()
	ctx := context.Background()

	base, err := model.ParseMonth(month)
	require.NoError(t, err)
	incoming := make([]model.IncomingTransaction, 0, len(memos))
	for i, memo := range memos {
		incoming = append(incoming, model.IncomingTransaction{
			Date:    base.AddDate(0, 0, i),
			Account: "main",
			Memo:    memo,
			Amount:  decimal.NewFromInt(int64(i+1) * -10),
		})
	}
	_, err = eng.Ingest(ctx, engine.Caller{Subject: "tester"}, month, incoming)
	require.NoError(t, err)

	txns, err := eng.Draft(ctx, month, storage.Filter{})
	require.NoError(t, err)
	return txns
}

func TestServer_Auth(t *testing.T) {
	srv, _ := newTestServer(t)

	t.Run("health is open", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("missing token", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/months")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("wrong secret", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/months", nil)
		req.Header.Set("Authorization", "Bearer "+testToken(t, []byte("other-secret")))
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("valid token", func(t *testing.T) {
		var months []string
		resp := doRequest(t, srv, http.MethodGet, "/api/months", nil, &months)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, months)
	})
}

func TestServer_DraftAndReview(t *testing.T) {
	srv, eng := newTestServer(t)
	ingestMonth(t, eng, "2024-03", "TESCO STORES", "MYSTERY ONE", "MYSTERY TWO")

	t.Run("draft returns every transaction", func(t *testing.T) {
		var rows []transactionRow
		resp := doRequest(t, srv, http.MethodGet, "/api/draft?month=2024-03", nil, &rows)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, rows, 3)
		assert.True(t, rows[0].NeedsReview, "unmatched transactions are queued")
	})

	t.Run("search filter", func(t *testing.T) {
		var rows []transactionRow
		doRequest(t, srv, http.MethodGet, "/api/draft?month=2024-03&search=mystery", nil, &rows)
		assert.Len(t, rows, 2)
	})

	t.Run("unknown month is 404", func(t *testing.T) {
		var body errorResponse
		resp := doRequest(t, srv, http.MethodGet, "/api/draft?month=2030-01", nil, &body)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "not_found", body.Error)
	})

	t.Run("csv format", func(t *testing.T) {
		resp := doRequest(t, srv, http.MethodGet, "/api/review?month=2024-03&format=csv", nil, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	})
}

func TestServer_QueueOperations(t *testing.T) {
	srv, eng := newTestServer(t)
	txns := ingestMonth(t, eng, "2024-03", "A", "B")

	type applyResponse struct {
		OK      bool `json:"ok"`
		Applied int  `json:"applied"`
	}

	var out applyResponse
	resp := doRequest(t, srv, http.MethodPost, "/api/review/remove",
		map[string]any{"month": "2024-03", "tx_ids": []string{txns[0].ID, txns[1].ID}}, &out)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, out.OK)
	assert.Equal(t, 2, out.Applied)

	resp = doRequest(t, srv, http.MethodPost, "/api/review/add",
		map[string]any{"month": "2024-03", "tx_ids": []string{txns[0].ID}}, &out)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, out.Applied)

	var body errorResponse
	resp = doRequest(t, srv, http.MethodPost, "/api/review/add",
		map[string]any{"month": "2024-03", "tx_ids": []string{"ghost"}}, &body)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", body.Error)

	resp = doRequest(t, srv, http.MethodPost, "/api/review/add-by-rule",
		map[string]any{"month": "2024-03", "category": "Uncategorized"}, &out)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, out.Applied, "only the dequeued transaction is re-added")
}

func TestServer_CorrectAndLifecycle(t *testing.T) {
	srv, eng := newTestServer(t)
	txns := ingestMonth(t, eng, "2024-03", "ACME LETTINGS")

	// Register the labels the correction will use.
	var addOut map[string]any
	resp := doRequest(t, srv, http.MethodPost, "/api/lists/add",
		map[string]string{"domain": "property", "value": "FLAT-2"}, &addOut)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	doRequest(t, srv, http.MethodPost, "/api/lists/add",
		map[string]string{"domain": "category", "value": model.CategoryOurRent}, nil)

	t.Run("unknown list value is 422", func(t *testing.T) {
		var body errorResponse
		resp := doRequest(t, srv, http.MethodPost, "/api/review/correct", map[string]string{
			"tx_id": txns[0].ID, "category": "Nonsense",
		}, &body)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		assert.Equal(t, "unknown_list_value", body.Error)
	})

	t.Run("valid correction", func(t *testing.T) {
		resp := doRequest(t, srv, http.MethodPost, "/api/review/correct", map[string]string{
			"tx_id":         txns[0].ID,
			"property_code": "FLAT-2",
			"category":      model.CategoryOurRent,
		}, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var rows []transactionRow
		doRequest(t, srv, http.MethodGet, "/api/draft?month=2024-03", nil, &rows)
		require.Len(t, rows, 1)
		assert.Equal(t, model.CategoryOurRent, rows[0].Category)
		assert.Equal(t, string(model.StrengthManual), rows[0].RuleStrength)
		assert.Nil(t, rows[0].Confidence)
	})

	t.Run("submit then finalize", func(t *testing.T) {
		var out map[string]any
		resp := doRequest(t, srv, http.MethodPost, "/api/review/submit?month=2024-03", nil, &out)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, float64(1), out["applied"])

		var fin map[string]any
		resp = doRequest(t, srv, http.MethodPost, "/api/finalize?month=2024-03", nil, &fin)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		path, _ := fin["path"].(string)
		assert.True(t, strings.HasSuffix(path, "2024-03_final.csv"))
	})

	t.Run("mutation after finalize is 409", func(t *testing.T) {
		var body errorResponse
		resp := doRequest(t, srv, http.MethodPost, "/api/review/correct", map[string]string{
			"tx_id": txns[0].ID, "category": model.CategoryOurRent,
		}, &body)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "locked_month", body.Error)
	})
}

func TestServer_ReportSummary(t *testing.T) {
	srv, eng := newTestServer(t)
	ctx := context.Background()

	base, _ := model.ParseMonth("2024-03")
	_, err := eng.Ingest(ctx, engine.Caller{Subject: "tester"}, "2024-03", []model.IncomingTransaction{
		{Date: base, Account: "main", Memo: "rent", Amount: decimal.NewFromInt(1200)},
	})
	require.NoError(t, err)

	t.Run("range query", func(t *testing.T) {
		var summary model.ReportSummary
		resp := doRequest(t, srv, http.MethodGet, "/api/reports/summary?from=2024-02&to=2024-04", nil, &summary)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, summary.PropertySummary, 3)
	})

	t.Run("single month shorthand", func(t *testing.T) {
		var summary model.ReportSummary
		resp := doRequest(t, srv, http.MethodGet, "/api/reports/summary?month=2024-03", nil, &summary)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, summary.PropertySummary, 1)
	})

	t.Run("missing range", func(t *testing.T) {
		resp := doRequest(t, srv, http.MethodGet, "/api/reports/summary", nil, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
