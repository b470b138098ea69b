package callback

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type postgresAuditLog struct {
	db *sql.DB
}

// NewPostgresAuditLog creates a Postgres-backed audit log
func NewPostgresAuditLog(db *sql.DB) AuditLog {
	return &postgresAuditLog{db: db}
}

func (a *postgresAuditLog) Record(ctx context.Context, entry *LogEntry) error {
	rawJSON, err := json.Marshal(entry.RawParams)
	if err != nil {
		return fmt.Errorf("failed to marshal raw params: %w", err)
	}

	if entry.ReceivedAt.IsZero() {
		entry.ReceivedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO callback_log
			(provider, order_number, trade_id, transaction_id, amount, currency,
			 signature_valid, status, outcome, client_ip, raw_params, error, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`

	err = a.db.QueryRowContext(ctx, query,
		entry.Provider, entry.OrderNumber, entry.TradeID, entry.TransactionID,
		entry.Amount, entry.Currency, entry.SignatureValid, entry.Status,
		entry.Outcome, entry.ClientIP, string(rawJSON), entry.Error, entry.ReceivedAt).
		Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to record callback: %w", err)
	}

	return nil
}

func (a *postgresAuditLog) List(ctx context.Context, filter ListFilter) ([]LogEntry, error) {
	var (
		conditions []string
		args       []any
	)

	addCondition := func(clause string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}

	if filter.Provider != "" {
		addCondition("provider = $%d", filter.Provider)
	}
	if filter.OrderNumber != "" {
		addCondition("order_number = $%d", filter.OrderNumber)
	}
	if filter.TransactionID != "" {
		addCondition("transaction_id = $%d", filter.TransactionID)
	}
	if filter.Outcome != "" {
		addCondition("outcome = $%d", filter.Outcome)
	}
	if !filter.Since.IsZero() {
		addCondition("received_at >= $%d", filter.Since)
	}

	query := `
		SELECT id, provider, order_number, trade_id, transaction_id, amount, currency,
		       signature_valid, status, outcome, client_ip, raw_params, error, received_at
		FROM callback_log
	`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY received_at DESC"

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query += " LIMIT " + strconv.Itoa(limit)

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query callback log: %w", err)
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var (
			e       LogEntry
			rawJSON string
		)
		err := rows.Scan(&e.ID, &e.Provider, &e.OrderNumber, &e.TradeID, &e.TransactionID,
			&e.Amount, &e.Currency, &e.SignatureValid, &e.Status, &e.Outcome,
			&e.ClientIP, &rawJSON, &e.Error, &e.ReceivedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan callback log row: %w", err)
		}

		if rawJSON != "" {
			if err := json.Unmarshal([]byte(rawJSON), &e.RawParams); err != nil {
				return nil, fmt.Errorf("failed to unmarshal raw params: %w", err)
			}
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating callback log: %w", err)
	}

	return entries, nil
}

func (a *postgresAuditLog) Stats(ctx context.Context, since time.Time) ([]ProviderStats, error) {
	query := `
		SELECT provider, outcome, COUNT(*), COALESCE(SUM(amount), 0)
		FROM callback_log
		WHERE received_at >= $1
		GROUP BY provider, outcome
		ORDER BY provider, outcome
	`

	rows, err := a.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query callback stats: %w", err)
	}
	defer rows.Close()

	var stats []ProviderStats
	for rows.Next() {
		var s ProviderStats
		if err := rows.Scan(&s.Provider, &s.Outcome, &s.Count, &s.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan callback stats: %w", err)
		}
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating callback stats: %w", err)
	}

	return stats, nil
}
