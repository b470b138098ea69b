package callback

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReporter_Summary(t *testing.T) {
	ctx := context.Background()
	audit := &fakeAudit{}
	now := time.Now().UTC()

	add := func(provider string, outcome Outcome, amount int64) {
		_ = audit.Record(ctx, &LogEntry{
			Provider:   provider,
			Outcome:    outcome,
			Amount:     amount,
			ReceivedAt: now,
		})
	}

	add("ecpay", OutcomeApplied, 150000)
	add("ecpay", OutcomeApplied, 50000)
	add("ecpay", OutcomeAlreadyProcessed, 150000)
	add("ecpay", OutcomeRejected, 0)
	add("linepay", OutcomeApplied, 80000)
	add("linepay", OutcomeOrderNotFound, 0)

	reporter := NewReporter(audit)
	summary, err := reporter.Summary(ctx, now.Add(-time.Hour))
	require.NoError(t, err)

	assert.Equal(t, int64(6), summary.Total)
	require.Len(t, summary.Providers, 2)

	// Providers come back sorted by name
	ecpay := summary.Providers[0]
	assert.Equal(t, "ecpay", ecpay.Provider)
	assert.Equal(t, int64(4), ecpay.Total)
	assert.Equal(t, int64(2), ecpay.Applied)
	assert.Equal(t, int64(1), ecpay.AlreadyProcessed)
	assert.Equal(t, int64(1), ecpay.Rejected)
	assert.Equal(t, int64(200000), ecpay.AppliedAmount)
	assert.InDelta(t, 0.75, ecpay.SuccessRate, 1e-9)
	assert.InDelta(t, 4.0/6.0, ecpay.Share, 1e-9)

	linepay := summary.Providers[1]
	assert.Equal(t, "linepay", linepay.Provider)
	assert.Equal(t, int64(2), linepay.Total)
	assert.InDelta(t, 0.5, linepay.SuccessRate, 1e-9)
}

func TestReporter_Summary_Empty(t *testing.T) {
	reporter := NewReporter(&fakeAudit{})

	summary, err := reporter.Summary(context.Background(), time.Now().Add(-time.Hour))
	require.NoError(t, err)

	assert.Equal(t, int64(0), summary.Total)
	assert.Empty(t, summary.Providers)
}

func TestReporter_Summary_RespectsSince(t *testing.T) {
	ctx := context.Background()
	audit := &fakeAudit{}

	_ = audit.Record(ctx, &LogEntry{
		Provider:   "ecpay",
		Outcome:    OutcomeApplied,
		Amount:     100,
		ReceivedAt: time.Now().UTC().Add(-48 * time.Hour),
	})
	_ = audit.Record(ctx, &LogEntry{
		Provider:   "ecpay",
		Outcome:    OutcomeApplied,
		Amount:     200,
		ReceivedAt: time.Now().UTC(),
	})

	reporter := NewReporter(audit)
	summary, err := reporter.Summary(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	assert.Equal(t, int64(1), summary.Total)
	require.Len(t, summary.Providers, 1)
	assert.Equal(t, int64(200), summary.Providers[0].AppliedAmount)
}
