// Package callback processes asynchronous gateway notifications: it
// verifies adapter-parsed results against stored orders, applies the
// paid transition exactly once, and keeps an append-only audit trail
// of every delivery attempt.
package callback

import (
	"context"
	"time"
)

// Outcome classifies what a callback delivery did to the order state
type Outcome string

const (
	OutcomeApplied          Outcome = "applied"
	OutcomeAlreadyProcessed Outcome = "already_processed"
	OutcomeOrderNotFound    Outcome = "order_not_found"
	OutcomeRejected         Outcome = "rejected"
	OutcomeError            Outcome = "error"
)

// LogEntry is one row of the callback audit trail. Entries are only
// ever appended, never updated, so the trail records every delivery
// including redeliveries and rejected ones.
type LogEntry struct {
	ID             int64             `json:"id"`
	Provider       string            `json:"provider"`
	OrderNumber    string            `json:"orderNumber,omitempty"`
	TradeID        string            `json:"tradeId,omitempty"`
	TransactionID  string            `json:"transactionId,omitempty"`
	Amount         int64             `json:"amount,omitempty"`
	Currency       string            `json:"currency,omitempty"`
	SignatureValid bool              `json:"signatureValid"`
	Status         string            `json:"status,omitempty"`
	Outcome        Outcome           `json:"outcome"`
	ClientIP       string            `json:"clientIp,omitempty"`
	RawParams      map[string]string `json:"rawParams,omitempty"`
	Error          string            `json:"error,omitempty"`
	ReceivedAt     time.Time         `json:"receivedAt"`
}

// ListFilter narrows audit trail queries
type ListFilter struct {
	Provider      string
	OrderNumber   string
	TransactionID string
	Outcome       Outcome
	Since         time.Time
	Limit         int
}

// ProviderStats aggregates audit entries per provider and outcome
type ProviderStats struct {
	Provider string  `json:"provider"`
	Outcome  Outcome `json:"outcome"`
	Count    int64   `json:"count"`
	Amount   int64   `json:"amount"`
}

// AuditLog is the append-only store for callback deliveries
type AuditLog interface {
	Record(ctx context.Context, entry *LogEntry) error
	List(ctx context.Context, filter ListFilter) ([]LogEntry, error)
	Stats(ctx context.Context, since time.Time) ([]ProviderStats, error)
}
