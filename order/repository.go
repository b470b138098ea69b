package order

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type repository struct {
	db *sql.DB
}

// NewRepository creates a Postgres-backed order repository
func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateOrder(ctx context.Context, o *Order) error {
	query := `
		INSERT INTO orders (order_number, amount, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	if o.Status == "" {
		o.Status = StatusAwaitingPayment
	}

	err := r.db.QueryRowContext(ctx, query, o.OrderNumber, o.Amount, o.Currency, o.Status).
		Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

func (r *repository) GetByOrderNumber(ctx context.Context, orderNumber string) (*Order, error) {
	query := `
		SELECT id, order_number, amount, currency, status, COALESCE(provider, ''), paid_at, created_at, updated_at
		FROM orders
		WHERE order_number = $1
	`

	var o Order
	err := r.db.QueryRowContext(ctx, query, orderNumber).
		Scan(&o.ID, &o.OrderNumber, &o.Amount, &o.Currency, &o.Status, &o.Provider, &o.PaidAt, &o.CreatedAt, &o.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return &o, nil
}

// ApplyPayment performs the paid transition and the ledger write in a
// single transaction. The conditional update ensures only the first
// successful callback wins; RowsAffected distinguishes the winner from
// a redelivery on an already paid order. A ledger failure rolls the
// transition back so the gateway keeps redelivering until both rows
// are committed together.
func (r *repository) ApplyPayment(ctx context.Context, orderNumber string, provider string, paidAt time.Time, entry *LedgerEntry) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin payment transaction: %w", err)
	}
	defer tx.Rollback()

	updateQuery := `
		UPDATE orders
		SET status = $1, provider = $2, paid_at = $3, updated_at = NOW()
		WHERE order_number = $4 AND status = $5
	`

	result, err := tx.ExecContext(ctx, updateQuery, StatusPaid, provider, paidAt, orderNumber, StatusAwaitingPayment)
	if err != nil {
		return false, fmt.Errorf("failed to mark order paid: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return false, nil
	}

	ledgerQuery := `
		INSERT INTO payment_ledger (order_id, provider, transaction_id, amount, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (order_id, transaction_id)
		DO UPDATE SET status = EXCLUDED.status, updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err = tx.QueryRowContext(ctx, ledgerQuery,
		entry.OrderID, entry.Provider, entry.TransactionID, entry.Amount, entry.Currency, entry.Status).
		Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to record ledger entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit payment transaction: %w", err)
	}

	return true, nil
}

func (r *repository) MarkCancelled(ctx context.Context, orderNumber string) (bool, error) {
	query := `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE order_number = $2 AND status = $3
	`

	result, err := r.db.ExecContext(ctx, query, StatusCancelled, orderNumber, StatusAwaitingPayment)
	if err != nil {
		return false, fmt.Errorf("failed to mark order cancelled: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows == 1, nil
}

func (r *repository) UpsertLedgerEntry(ctx context.Context, entry *LedgerEntry) error {
	query := `
		INSERT INTO payment_ledger (order_id, provider, transaction_id, amount, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (order_id, transaction_id)
		DO UPDATE SET status = EXCLUDED.status, updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		entry.OrderID, entry.Provider, entry.TransactionID, entry.Amount, entry.Currency, entry.Status).
		Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert ledger entry: %w", err)
	}

	return nil
}

func (r *repository) GetLedgerEntries(ctx context.Context, orderID int64) ([]LedgerEntry, error) {
	query := `
		SELECT id, order_id, provider, transaction_id, amount, currency, status, created_at, updated_at
		FROM payment_ledger
		WHERE order_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.ID, &e.OrderID, &e.Provider, &e.TransactionID, &e.Amount, &e.Currency, &e.Status, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}

	return entries, nil
}

func (r *repository) UpdateLedgerStatus(ctx context.Context, orderID int64, transactionID string, status LedgerStatus) error {
	query := `
		UPDATE payment_ledger
		SET status = $1, updated_at = NOW()
		WHERE order_id = $2 AND transaction_id = $3
	`

	result, err := r.db.ExecContext(ctx, query, status, orderID, transactionID)
	if err != nil {
		return fmt.Errorf("failed to update ledger status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("no ledger entry for order %d transaction %s", orderID, transactionID)
	}

	return nil
}
