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

// AnalyticsHandler exposes aggregate callback processing statistics.
// The summary is computed from the Postgres audit trail; per-gateway
// aggregations come from the OpenSearch mirror when configured.
type AnalyticsHandler struct {
	reporter *callback.Reporter
	mirror   *opensearch.Logger
}

// NewAnalyticsHandler creates a new analytics handler. The mirror may
// be nil when OpenSearch is not configured.
func NewAnalyticsHandler(reporter *callback.Reporter, mirror *opensearch.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{reporter: reporter, mirror: mirror}
}

// GetSummary returns per-gateway callback statistics for the window
// given by the hours query parameter (default 24).
func (h *AnalyticsHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	hours := 24
	if hoursStr := r.URL.Query().Get("hours"); hoursStr != "" {
		parsed, err := strconv.Atoi(hoursStr)
		if err != nil || parsed <= 0 {
			response.Error(w, http.StatusBadRequest, "Invalid hours parameter", err)
			return
		}
		hours = parsed
	}

	summary, err := h.reporter.Summary(ctx, time.Now().Add(-time.Duration(hours)*time.Hour))
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "Failed to compute summary", err)
		return
	}

	response.Success(w, http.StatusOK, "Analytics retrieved", summary)
}

// GetProviderStats returns the OpenSearch aggregations (outcome terms,
// rejected count, total amount) for a single gateway's callback index.
func (h *AnalyticsHandler) GetProviderStats(w http.ResponseWriter, r *http.Request) {
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

	stats, err := h.mirror.GetProviderStats(ctx, providerName, hours)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "Failed to aggregate callback index", err)
		return
	}

	response.Success(w, http.StatusOK, "Provider statistics retrieved", stats)
}
