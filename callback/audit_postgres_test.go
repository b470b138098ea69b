package callback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresAuditLog_Record(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	audit := NewPostgresAuditLog(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO callback_log`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

		entry := &LogEntry{
			Provider:       "ecpay",
			OrderNumber:    "ORD202501010001",
			TradeID:        "ORD2025010100011234",
			TransactionID:  "2501011234567890",
			Amount:         150000,
			Currency:       "TWD",
			SignatureValid: true,
			Status:         "success",
			Outcome:        OutcomeApplied,
			ClientIP:       "203.0.113.5",
			RawParams:      map[string]string{"RtnCode": "1"},
		}

		err := audit.Record(ctx, entry)
		assert.NoError(t, err)
		assert.Equal(t, int64(42), entry.ID)
		assert.False(t, entry.ReceivedAt.IsZero())
	})

	t.Run("DBError", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO callback_log`).
			WillReturnError(errors.New("db error"))

		err := audit.Record(ctx, &LogEntry{Provider: "ecpay", Outcome: OutcomeRejected})
		assert.Error(t, err)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAuditLog_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	audit := NewPostgresAuditLog(db)
	ctx := context.Background()
	now := time.Now()

	columns := []string{
		"id", "provider", "order_number", "trade_id", "transaction_id", "amount", "currency",
		"signature_valid", "status", "outcome", "client_ip", "raw_params", "error", "received_at",
	}

	t.Run("FilterByProviderAndOrder", func(t *testing.T) {
		rows := sqlmock.NewRows(columns).AddRow(
			1, "ecpay", "ORD202501010001", "ORD2025010100011234", "2501011234567890", 150000, "TWD",
			true, "success", "applied", "203.0.113.5", `{"RtnCode":"1"}`, "", now,
		)

		mock.ExpectQuery(`SELECT .* FROM callback_log WHERE provider = \$1 AND order_number = \$2 ORDER BY received_at DESC LIMIT 100`).
			WithArgs("ecpay", "ORD202501010001").
			WillReturnRows(rows)

		entries, err := audit.List(ctx, ListFilter{Provider: "ecpay", OrderNumber: "ORD202501010001"})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, OutcomeApplied, entries[0].Outcome)
		assert.Equal(t, "1", entries[0].RawParams["RtnCode"])
	})

	t.Run("FilterByTransactionID", func(t *testing.T) {
		rows := sqlmock.NewRows(columns).AddRow(
			2, "linepay", "ORD202501010002", "", "2021121600000001", 89000, "TWD",
			true, "success", "applied", "203.0.113.9", `{}`, "", now,
		)

		mock.ExpectQuery(`SELECT .* FROM callback_log WHERE transaction_id = \$1 ORDER BY received_at DESC LIMIT 100`).
			WithArgs("2021121600000001").
			WillReturnRows(rows)

		entries, err := audit.List(ctx, ListFilter{TransactionID: "2021121600000001"})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "2021121600000001", entries[0].TransactionID)
	})

	t.Run("NoFilter", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .* FROM callback_log ORDER BY received_at DESC LIMIT 100`).
			WillReturnRows(sqlmock.NewRows(columns))

		entries, err := audit.List(ctx, ListFilter{})
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("CustomLimit", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .* FROM callback_log ORDER BY received_at DESC LIMIT 25`).
			WillReturnRows(sqlmock.NewRows(columns))

		_, err := audit.List(ctx, ListFilter{Limit: 25})
		require.NoError(t, err)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAuditLog_Stats(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	audit := NewPostgresAuditLog(db)
	ctx := context.Background()
	since := time.Now().Add(-24 * time.Hour)

	rows := sqlmock.NewRows([]string{"provider", "outcome", "count", "sum"}).
		AddRow("ecpay", "applied", 10, 1500000).
		AddRow("ecpay", "rejected", 2, 0).
		AddRow("linepay", "applied", 5, 400000)

	mock.ExpectQuery(`SELECT provider, outcome, COUNT\(\*\), COALESCE\(SUM\(amount\), 0\) FROM callback_log WHERE received_at >= \$1 GROUP BY provider, outcome`).
		WithArgs(since).
		WillReturnRows(rows)

	stats, err := audit.Stats(ctx, since)
	require.NoError(t, err)
	require.Len(t, stats, 3)
	assert.Equal(t, ProviderStats{Provider: "ecpay", Outcome: OutcomeApplied, Count: 10, Amount: 1500000}, stats[0])

	assert.NoError(t, mock.ExpectationsWereMet())
}
