package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/ordermesh/paygate/callback"
)

func TestLogsHandler_ListLogs(t *testing.T) {
	audit := &memAudit{}
	_ = audit.Record(context.Background(), &callback.LogEntry{
		Provider:    "ecpay",
		OrderNumber: "ORD202501010001",
		Outcome:     callback.OutcomeApplied,
		ReceivedAt:  time.Now().UTC(),
	})
	_ = audit.Record(context.Background(), &callback.LogEntry{
		Provider:      "linepay",
		TransactionID: "2021121600000001",
		Outcome:       callback.OutcomeRejected,
		ReceivedAt:    time.Now().UTC(),
	})

	h := NewLogsHandler(audit, nil)
	router := chi.NewRouter()
	router.Get("/v1/logs", h.ListLogs)

	t.Run("All", func(t *testing.T) {
		rec := doRequest(t, router, "GET", "/v1/logs", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"count":2`)
	})

	t.Run("FilterByProvider", func(t *testing.T) {
		rec := doRequest(t, router, "GET", "/v1/logs?provider=ecpay", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"count":1`)
		assert.Contains(t, rec.Body.String(), "ORD202501010001")
	})

	t.Run("FilterByTransactionID", func(t *testing.T) {
		rec := doRequest(t, router, "GET", "/v1/logs?transactionId=2021121600000001", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"count":1`)
		assert.Contains(t, rec.Body.String(), "2021121600000001")
	})

	t.Run("InvalidHours", func(t *testing.T) {
		rec := doRequest(t, router, "GET", "/v1/logs?hours=abc", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("InvalidLimit", func(t *testing.T) {
		rec := doRequest(t, router, "GET", "/v1/logs?limit=-5", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLogsHandler_SearchWithoutMirror(t *testing.T) {
	h := NewLogsHandler(&memAudit{}, nil)
	router := chi.NewRouter()
	router.Get("/v1/logs/search/{provider}/order/{orderNumber}", h.SearchOrderCallbacks)
	router.Get("/v1/logs/search/{provider}/rejected", h.SearchRejectedCallbacks)

	rec := doRequest(t, router, "GET", "/v1/logs/search/ecpay/order/ORD202501010001", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = doRequest(t, router, "GET", "/v1/logs/search/ecpay/rejected", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
