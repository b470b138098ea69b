package callback

import (
	"context"
	"sort"
	"time"
)

// ProviderSummary aggregates the audit trail for one gateway
type ProviderSummary struct {
	Provider         string  `json:"provider"`
	Total            int64   `json:"total"`
	Applied          int64   `json:"applied"`
	AlreadyProcessed int64   `json:"alreadyProcessed"`
	Rejected         int64   `json:"rejected"`
	OrderNotFound    int64   `json:"orderNotFound"`
	Errors           int64   `json:"errors"`
	AppliedAmount    int64   `json:"appliedAmount"`
	SuccessRate      float64 `json:"successRate"`
	Share            float64 `json:"share"`
}

// Summary is the reporting view over the callback audit trail
type Summary struct {
	Since     time.Time         `json:"since"`
	Total     int64             `json:"total"`
	Providers []ProviderSummary `json:"providers"`
}

// Reporter produces aggregate views of callback processing
type Reporter struct {
	audit AuditLog
}

// NewReporter creates a reporter backed by the audit log
func NewReporter(audit AuditLog) *Reporter {
	return &Reporter{audit: audit}
}

// Summary aggregates audit entries since the given time into per-gateway
// counts, success rates, and each gateway's share of total traffic.
func (r *Reporter) Summary(ctx context.Context, since time.Time) (*Summary, error) {
	stats, err := r.audit.Stats(ctx, since)
	if err != nil {
		return nil, err
	}

	byProvider := make(map[string]*ProviderSummary)
	var total int64

	for _, s := range stats {
		ps, ok := byProvider[s.Provider]
		if !ok {
			ps = &ProviderSummary{Provider: s.Provider}
			byProvider[s.Provider] = ps
		}

		ps.Total += s.Count
		total += s.Count

		switch s.Outcome {
		case OutcomeApplied:
			ps.Applied += s.Count
			ps.AppliedAmount += s.Amount
		case OutcomeAlreadyProcessed:
			ps.AlreadyProcessed += s.Count
		case OutcomeRejected:
			ps.Rejected += s.Count
		case OutcomeOrderNotFound:
			ps.OrderNotFound += s.Count
		case OutcomeError:
			ps.Errors += s.Count
		}
	}

	summary := &Summary{
		Since:     since,
		Total:     total,
		Providers: make([]ProviderSummary, 0, len(byProvider)),
	}

	for _, ps := range byProvider {
		if ps.Total > 0 {
			// Redeliveries count toward success: the payment went through
			ps.SuccessRate = float64(ps.Applied+ps.AlreadyProcessed) / float64(ps.Total)
		}
		if total > 0 {
			ps.Share = float64(ps.Total) / float64(total)
		}
		summary.Providers = append(summary.Providers, *ps)
	}

	sort.Slice(summary.Providers, func(i, j int) bool {
		return summary.Providers[i].Provider < summary.Providers[j].Provider
	})

	return summary, nil
}
