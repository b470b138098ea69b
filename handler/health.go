package handler

import (
	"context"
	"database/sql"
	"net/http"
	"runtime"
	"time"

	"github.com/ordermesh/paygate/infra/config"
	"github.com/ordermesh/paygate/infra/response"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	db             *sql.DB
	paymentService PaymentServiceInterface
	startTime      time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *sql.DB, paymentService PaymentServiceInterface) *HealthHandler {
	return &HealthHandler{
		db:             db,
		paymentService: paymentService,
		startTime:      time.Now(),
	}
}

// HealthStatus represents overall system health
type HealthStatus struct {
	Status      string          `json:"status"`
	Version     string          `json:"version"`
	Timestamp   time.Time       `json:"timestamp"`
	Uptime      string          `json:"uptime"`
	Environment string          `json:"environment"`
	Database    *DatabaseHealth `json:"database"`
	Providers   []string        `json:"providers"`
	Goroutines  int             `json:"goroutines"`
}

// DatabaseHealth represents database health status
type DatabaseHealth struct {
	Status     string `json:"status"`
	Connected  bool   `json:"connected"`
	ResponseMs int64  `json:"response_ms"`
	OpenConns  int    `json:"open_connections"`
	InUseConns int    `json:"in_use_connections"`
	IdleConns  int    `json:"idle_connections"`
	Error      string `json:"error,omitempty"`
}

// Check returns the health of the service and its dependencies
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := &HealthStatus{
		Status:      "healthy",
		Version:     "1.0.0",
		Timestamp:   time.Now().UTC(),
		Uptime:      time.Since(h.startTime).Round(time.Second).String(),
		Environment: config.GetEnv("ENVIRONMENT", "development"),
		Database:    h.checkDatabase(ctx),
		Goroutines:  runtime.NumGoroutine(),
	}

	if h.paymentService != nil {
		status.Providers = h.paymentService.ProviderNames()
	}

	code := http.StatusOK
	if !status.Database.Connected {
		status.Status = "degraded"
		code = http.StatusServiceUnavailable
	}

	response.Success(w, code, "Health check", status)
}

// Liveness is a minimal probe that only confirms the process serves requests
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	response.Success(w, http.StatusOK, "alive", nil)
}

func (h *HealthHandler) checkDatabase(ctx context.Context) *DatabaseHealth {
	health := &DatabaseHealth{Status: "unavailable"}
	if h.db == nil {
		health.Error = "database not configured"
		return health
	}

	start := time.Now()
	err := h.db.PingContext(ctx)
	health.ResponseMs = time.Since(start).Milliseconds()

	stats := h.db.Stats()
	health.OpenConns = stats.OpenConnections
	health.InUseConns = stats.InUse
	health.IdleConns = stats.Idle

	if err != nil {
		health.Error = err.Error()
		return health
	}

	health.Status = "healthy"
	health.Connected = true
	return health
}
