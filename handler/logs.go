package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ordermesh/paygate/callback"
	"github.com/ordermesh/paygate/infra/opensearch"
	"github.com/ordermesh/paygate/infra/response"
)

// LogsHandler exposes the callback audit trail. The Postgres trail is
// the system of record; the OpenSearch mirror, when configured, backs
// the free-text search endpoints.
type LogsHandler struct {
	audit  callback.AuditLog
	mirror *opensearch.Logger
}

// NewLogsHandler creates a new logs handler. The mirror may be nil
// when OpenSearch is not configured.
func NewLogsHandler(audit callback.AuditLog, mirror *opensearch.Logger) *LogsHandler {
	return &LogsHandler{audit: audit, mirror: mirror}
}

// ListLogs returns audit entries filtered by the query parameters
// provider, orderNumber, transactionId, outcome, hours, and limit.
func (h *LogsHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	filter := callback.ListFilter{
		Provider:      r.URL.Query().Get("provider"),
		OrderNumber:   r.URL.Query().Get("orderNumber"),
		TransactionID: r.URL.Query().Get("transactionId"),
		Outcome:       callback.Outcome(r.URL.Query().Get("outcome")),
	}

	if hoursStr := r.URL.Query().Get("hours"); hoursStr != "" {
		hours, err := strconv.Atoi(hoursStr)
		if err != nil || hours <= 0 {
			response.Error(w, http.StatusBadRequest, "Invalid hours parameter", err)
			return
		}
		filter.Since = time.Now().Add(-time.Duration(hours) * time.Hour)
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			response.Error(w, http.StatusBadRequest, "Invalid limit parameter", err)
			return
		}
		filter.Limit = limit
	}

	entries, err := h.audit.List(ctx, filter)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "Failed to query callback log", err)
		return
	}

	response.Success(w, http.StatusOK, "Callback log retrieved", map[string]any{
		"count":   len(entries),
		"entries": entries,
	})
}

// SearchOrderCallbacks returns the mirrored callback documents for one
// order from the OpenSearch index of the given gateway.
func (h *LogsHandler) SearchOrderCallbacks(w http.ResponseWriter, r *http.Request) {
	if h.mirror == nil {
		response.Error(w, http.StatusServiceUnavailable, "Callback search index is not enabled", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	providerName := chi.URLParam(r, "provider")
	orderNumber := chi.URLParam(r, "orderNumber")

	logs, err := h.mirror.GetCallbacksByOrder(ctx, providerName, orderNumber)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "Failed to search callback index", err)
		return
	}

	response.Success(w, http.StatusOK, "Callback search results", map[string]any{
		"count":   len(logs),
		"entries": logs,
	})
}

// SearchRejectedCallbacks returns recently rejected callbacks for a
// gateway from the OpenSearch index, defaulting to the last 24 hours.
func (h *LogsHandler) SearchRejectedCallbacks(w http.ResponseWriter, r *http.Request) {
	if h.mirror == nil {
		response.Error(w, http.StatusServiceUnavailable, "Callback search index is not enabled", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	providerName := chi.URLParam(r, "provider")

	hours := 24
	if hoursStr := r.URL.Query().Get("hours"); hoursStr != "" {
		parsed, err := strconv.Atoi(hoursStr)
		if err != nil || parsed <= 0 {
			response.Error(w, http.StatusBadRequest, "Invalid hours parameter", err)
			return
		}
		hours = parsed
	}

	logs, err := h.mirror.GetRecentRejected(ctx, providerName, hours)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "Failed to search callback index", err)
		return
	}

	response.Success(w, http.StatusOK, "Rejected callbacks retrieved", map[string]any{
		"count":   len(logs),
		"entries": logs,
	})
}
