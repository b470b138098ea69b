// Package order holds the order-management side of the payment flow:
// order state transitions driven by gateway callbacks and the payment
// ledger recording every gateway transaction per order.
package order

import (
	"context"
	"errors"
	"time"
)

// OrderStatus represents the lifecycle state of an order
type OrderStatus string

const (
	StatusAwaitingPayment OrderStatus = "awaiting_payment"
	StatusPaid            OrderStatus = "paid"
	StatusCancelled       OrderStatus = "cancelled"
)

// LedgerStatus represents the state of a single gateway transaction
type LedgerStatus string

const (
	LedgerPaid      LedgerStatus = "paid"
	LedgerFailed    LedgerStatus = "failed"
	LedgerRefunding LedgerStatus = "refunding"
	LedgerRefunded  LedgerStatus = "refunded"
)

var ErrOrderNotFound = errors.New("order not found")

// Order represents an order awaiting or having completed payment.
// Amount is in the smallest currency unit.
type Order struct {
	ID          int64       `json:"id"`
	OrderNumber string      `json:"orderNumber"`
	Amount      int64       `json:"amount"`
	Currency    string      `json:"currency"`
	Status      OrderStatus `json:"status"`
	Provider    string      `json:"provider,omitempty"`
	PaidAt      *time.Time  `json:"paidAt,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// LedgerEntry records one gateway transaction against an order. The
// (order_id, transaction_id) pair is unique so that redelivered
// callbacks collapse onto the same row.
type LedgerEntry struct {
	ID            int64        `json:"id"`
	OrderID       int64        `json:"orderId"`
	Provider      string       `json:"provider"`
	TransactionID string       `json:"transactionId"`
	Amount        int64        `json:"amount"`
	Currency      string       `json:"currency"`
	Status        LedgerStatus `json:"status"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

type Repository interface {
	CreateOrder(ctx context.Context, o *Order) error
	GetByOrderNumber(ctx context.Context, orderNumber string) (*Order, error)

	// ApplyPayment transitions an order from awaiting_payment to paid
	// and writes the winning ledger entry in the same transaction. It
	// reports false without error when the order was not in
	// awaiting_payment, which makes redelivered callbacks a no-op. A
	// ledger failure rolls the transition back, so either both rows
	// change or neither does.
	ApplyPayment(ctx context.Context, orderNumber string, provider string, paidAt time.Time, entry *LedgerEntry) (bool, error)

	// MarkCancelled transitions an order from awaiting_payment to cancelled
	MarkCancelled(ctx context.Context, orderNumber string) (bool, error)

	// UpsertLedgerEntry inserts a ledger row or refreshes its status
	// when the same (order_id, transaction_id) pair already exists
	UpsertLedgerEntry(ctx context.Context, entry *LedgerEntry) error

	GetLedgerEntries(ctx context.Context, orderID int64) ([]LedgerEntry, error)
	UpdateLedgerStatus(ctx context.Context, orderID int64, transactionID string, status LedgerStatus) error
}
