package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmtrack/m/internal/api"
	"pharmtrack/m/internal/ledger"
	"pharmtrack/m/internal/report"
	"pharmtrack/m/internal/restock"
	"pharmtrack/m/internal/store"
)

func newTestServer() http.Handler {
	st := store.NewMemStore()
	led := ledger.New(st)
	manager := restock.NewManager(st)
	builder := restock.NewBuilder(st, led)
	reports := report.New(st, manager)
	log := logrus.New()
	log.SetOutput(io.Discard)
	return api.New(st, led, builder, manager, reports, "test_secret", log).Router()
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest))
}

func registerAccount(t *testing.T, h http.Handler, email, role string) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/auth/register", "", map[string]string{
		"email":         email,
		"password":      "s3cret",
		"role":          role,
		"pharmacy_name": "Green Cross",
		"address":       "12 Hill Rd",
		"city":          "Springfield",
		"state":         "IL",
		"phone":         "555-0101",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	decode(t, rec, &resp)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestRegisterAndLogin(t *testing.T) {
	h := newTestServer()
	registerAccount(t, h, "ph@example.com", "pharmacy")

	rec := do(t, h, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "ph@example.com",
		"password": "s3cret",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "ph@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Duplicate registration is rejected.
	rec = do(t, h, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "ph@example.com", "password": "x", "role": "pharmacy",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRestockWorkflow(t *testing.T) {
	h := newTestServer()
	pharmacy := registerAccount(t, h, "ph@example.com", "pharmacy")
	warehouse := registerAccount(t, h, "wh@example.com", "warehouse")

	// Pharmacy stocks one low medicine.
	rec := do(t, h, http.MethodPost, "/medicines/", pharmacy, map[string]any{
		"name":        "Paracetamol 500mg",
		"quantity":    2,
		"threshold":   10,
		"expiry_date": "2026-03-01",
		"unit_price":  "1.25",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var med struct {
		ID          string `json:"id"`
		StockStatus string `json:"stock_status"`
	}
	decode(t, rec, &med)
	assert.Equal(t, "low_stock", med.StockStatus)

	// Low-stock listing sees it.
	rec = do(t, h, http.MethodGet, "/medicines/low-stock", pharmacy, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var lows []json.RawMessage
	decode(t, rec, &lows)
	require.Len(t, lows, 1)

	// Draft suggests max(2*10-2, 10) = 18.
	rec = do(t, h, http.MethodGet, "/restock-requests/draft", pharmacy, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var draft struct {
		LineItems []map[string]any `json:"line_items"`
	}
	decode(t, rec, &draft)
	require.Len(t, draft.LineItems, 1)
	assert.Equal(t, float64(18), draft.LineItems[0]["requested_quantity"])

	// Normalizing a hand-edited draft clamps bad quantities to 1.
	rec = do(t, h, http.MethodPost, "/restock-requests/draft", pharmacy, map[string]any{
		"line_items": []map[string]string{
			{"medicine_id": med.ID, "requested_quantity": "abc"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &draft)
	require.Len(t, draft.LineItems, 1)
	assert.Equal(t, float64(1), draft.LineItems[0]["requested_quantity"])

	// Submit the suggested draft.
	rec = do(t, h, http.MethodPost, "/restock-requests/", pharmacy, map[string]any{
		"medicines": []map[string]any{
			{
				"medicine_id":        med.ID,
				"medicine_name":      "Paracetamol 500mg",
				"current_quantity":   2,
				"threshold":          10,
				"requested_quantity": 18,
			},
		},
		"priority":          "high",
		"delivery_timeline": "1-2 days",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID            string `json:"id"`
		Status        string `json:"status"`
		TotalItems    int    `json:"total_items"`
		TotalQuantity int    `json:"total_quantity"`
		PharmacyName  string `json:"pharmacy_name"`
	}
	decode(t, rec, &created)
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, 1, created.TotalItems)
	assert.Equal(t, 18, created.TotalQuantity)
	assert.Equal(t, "Green Cross", created.PharmacyName)

	// Submitting with no items is rejected.
	rec = do(t, h, http.MethodPost, "/restock-requests/", pharmacy, map[string]any{
		"medicines":         []map[string]any{},
		"priority":          "low",
		"delivery_timeline": "1 week",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Pharmacy cannot reach warehouse routes.
	rec = do(t, h, http.MethodGet, "/warehouse/requests", pharmacy, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Warehouse cannot skip ahead.
	rec = do(t, h, http.MethodPost, "/warehouse/requests/"+created.ID+"/status", warehouse, map[string]string{
		"status": "shipped",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Forward one step at a time works.
	for _, status := range []string{"processing", "prepared", "shipped", "delivered"} {
		rec = do(t, h, http.MethodPost, "/warehouse/requests/"+created.ID+"/status", warehouse, map[string]string{
			"status": status,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	// Delivered is terminal.
	rec = do(t, h, http.MethodPost, "/warehouse/requests/"+created.ID+"/status", warehouse, map[string]string{
		"status": "processing",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Warehouse overview reflects the delivered request and the low stock.
	rec = do(t, h, http.MethodGet, "/warehouse/overview", warehouse, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var ov struct {
		TotalRequests     int `json:"total_requests"`
		DeliveredRequests int `json:"delivered_requests"`
		LowStockMedicines int `json:"low_stock_medicines"`
	}
	decode(t, rec, &ov)
	assert.Equal(t, 1, ov.TotalRequests)
	assert.Equal(t, 1, ov.DeliveredRequests)
	assert.Equal(t, 1, ov.LowStockMedicines)
}

func TestUnauthenticatedRequests(t *testing.T) {
	h := newTestServer()
	rec := do(t, h, http.MethodGet, "/medicines/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
