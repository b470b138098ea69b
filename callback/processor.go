package callback

import (
	"context"
	"fmt"
	"time"

	"github.com/ordermesh/paygate/infra/events"
	"github.com/ordermesh/paygate/infra/logger"
	"github.com/ordermesh/paygate/infra/opensearch"
	"github.com/ordermesh/paygate/order"
	"github.com/ordermesh/paygate/provider"
)

// Processor applies verified gateway callbacks to order state. All
// methods are safe under redelivery: the paid transition is guarded by
// a conditional update and the ledger collapses duplicate transactions.
type Processor struct {
	orders order.Repository
	audit  AuditLog
	events *events.Publisher
	mirror *opensearch.Logger
}

// NewProcessor creates a callback processor. The events publisher and
// the OpenSearch mirror may be nil.
func NewProcessor(orders order.Repository, audit AuditLog, publisher *events.Publisher, mirror *opensearch.Logger) *Processor {
	return &Processor{
		orders: orders,
		audit:  audit,
		events: publisher,
		mirror: mirror,
	}
}

// HandleSuccess processes a verified successful payment notification.
// The first delivery transitions the order to paid; redeliveries are
// acknowledged without any further state change.
func (p *Processor) HandleSuccess(ctx context.Context, resp *provider.PaymentResponse, raw map[string]string, clientIP string) Outcome {
	entry := p.newEntry(resp, raw, clientIP)

	o, err := p.orders.GetByOrderNumber(ctx, resp.OrderNumber)
	if err == order.ErrOrderNotFound {
		return p.finish(ctx, entry, OutcomeOrderNotFound, "")
	}
	if err != nil {
		return p.finish(ctx, entry, OutcomeError, err.Error())
	}

	// The gateway-reported amount must match the order before any
	// state changes. A mismatch is treated like a forged callback.
	if resp.Amount != 0 && resp.Amount != o.Amount {
		return p.finish(ctx, entry, OutcomeRejected,
			fmt.Sprintf("amount mismatch: order %d, callback %d", o.Amount, resp.Amount))
	}

	paidAt := time.Now().UTC()
	if resp.SystemTime != nil {
		paidAt = resp.SystemTime.UTC()
	}

	ledgerEntry := &order.LedgerEntry{
		OrderID:       o.ID,
		Provider:      resp.Provider,
		TransactionID: resp.TransactionID,
		Amount:        o.Amount,
		Currency:      o.Currency,
		Status:        order.LedgerPaid,
	}

	// The transition and the ledger write commit together. On error
	// nothing changed, and the error outcome makes the gateway
	// redeliver until both rows land.
	applied, err := p.orders.ApplyPayment(ctx, o.OrderNumber, resp.Provider, paidAt, ledgerEntry)
	if err != nil {
		return p.finish(ctx, entry, OutcomeError, err.Error())
	}

	if !applied {
		return p.finish(ctx, entry, OutcomeAlreadyProcessed, "")
	}

	// Events go out only after the order state is committed
	p.events.PublishPaid(events.PaymentPaidMessage{
		OrderNumber:   o.OrderNumber,
		Provider:      resp.Provider,
		TransactionID: resp.TransactionID,
		Amount:        o.Amount,
		Currency:      o.Currency,
		PaidAt:        paidAt,
	})

	return p.finish(ctx, entry, OutcomeApplied, "")
}

// HandleFailure processes a verified failed payment notification. The
// order stays in awaiting_payment so the customer can retry; only the
// ledger and audit trail record the attempt.
func (p *Processor) HandleFailure(ctx context.Context, resp *provider.PaymentResponse, raw map[string]string, clientIP string) Outcome {
	entry := p.newEntry(resp, raw, clientIP)

	o, err := p.orders.GetByOrderNumber(ctx, resp.OrderNumber)
	if err == order.ErrOrderNotFound {
		return p.finish(ctx, entry, OutcomeOrderNotFound, "")
	}
	if err != nil {
		return p.finish(ctx, entry, OutcomeError, err.Error())
	}

	// Every failed attempt is traceable in the ledger, even when the
	// gateway reported no transaction id. The empty id is a valid
	// ledger key: redelivered id-less failures collapse onto one row.
	ledgerEntry := &order.LedgerEntry{
		OrderID:       o.ID,
		Provider:      resp.Provider,
		TransactionID: resp.TransactionID,
		Amount:        o.Amount,
		Currency:      o.Currency,
		Status:        order.LedgerFailed,
	}
	if err := p.orders.UpsertLedgerEntry(ctx, ledgerEntry); err != nil {
		logger.Error("Failed to upsert ledger entry", err, logger.LogContext{
			Provider:    resp.Provider,
			OrderNumber: o.OrderNumber,
		})
	}

	p.events.PublishFailed(events.PaymentFailedMessage{
		OrderNumber: o.OrderNumber,
		Provider:    resp.Provider,
		Reason:      resp.ErrorMessage,
		FailedAt:    time.Now().UTC(),
	})

	return p.finish(ctx, entry, OutcomeApplied, resp.ErrorMessage)
}

// HandleCancellation processes a verified cancellation or expiry
// notification, transitioning the order out of awaiting_payment. A
// cancellation arriving for an order that is already paid is rejected:
// money changed hands, so the stale notification must not read as a
// handled no-op.
func (p *Processor) HandleCancellation(ctx context.Context, resp *provider.PaymentResponse, raw map[string]string, clientIP string) Outcome {
	entry := p.newEntry(resp, raw, clientIP)

	o, err := p.orders.GetByOrderNumber(ctx, resp.OrderNumber)
	if err == order.ErrOrderNotFound {
		return p.finish(ctx, entry, OutcomeOrderNotFound, "")
	}
	if err != nil {
		return p.finish(ctx, entry, OutcomeError, err.Error())
	}

	if o.Status == order.StatusPaid {
		return p.finish(ctx, entry, OutcomeRejected, "cancellation received for paid order")
	}

	applied, err := p.orders.MarkCancelled(ctx, o.OrderNumber)
	if err != nil {
		return p.finish(ctx, entry, OutcomeError, err.Error())
	}
	if !applied {
		return p.finish(ctx, entry, OutcomeAlreadyProcessed, "")
	}

	return p.finish(ctx, entry, OutcomeApplied, "")
}

// Reject records a callback whose signature verification failed. No
// order state is touched; the delivery only enters the audit trail.
func (p *Processor) Reject(ctx context.Context, providerName string, raw map[string]string, clientIP string, cause error) Outcome {
	entry := &LogEntry{
		Provider:       providerName,
		SignatureValid: false,
		ClientIP:       clientIP,
		RawParams:      raw,
		ReceivedAt:     time.Now().UTC(),
	}

	reason := "signature verification failed"
	if cause != nil {
		reason = cause.Error()
	}

	logger.Warn("Callback rejected", logger.LogContext{
		Provider: providerName,
		Fields: map[string]any{
			"client_ip": clientIP,
			"reason":    reason,
		},
	})

	return p.finish(ctx, entry, OutcomeRejected, reason)
}

// Dispatch routes a verified callback result to the matching handler
// based on the normalized payment status.
func (p *Processor) Dispatch(ctx context.Context, resp *provider.PaymentResponse, raw map[string]string, clientIP string) Outcome {
	switch resp.Status {
	case provider.StatusSuccess:
		return p.HandleSuccess(ctx, resp, raw, clientIP)
	case provider.StatusCancelled, provider.StatusExpired:
		return p.HandleCancellation(ctx, resp, raw, clientIP)
	default:
		return p.HandleFailure(ctx, resp, raw, clientIP)
	}
}

func (p *Processor) newEntry(resp *provider.PaymentResponse, raw map[string]string, clientIP string) *LogEntry {
	entry := &LogEntry{
		Provider:       resp.Provider,
		OrderNumber:    resp.OrderNumber,
		TransactionID:  resp.TransactionID,
		Amount:         resp.Amount,
		Currency:       resp.Currency,
		SignatureValid: true,
		Status:         string(resp.Status),
		ClientIP:       clientIP,
		RawParams:      raw,
		ReceivedAt:     time.Now().UTC(),
	}

	if tradeID, ok := raw["MerchantTradeNo"]; ok {
		entry.TradeID = tradeID
	}

	return entry
}

// finish stamps the outcome on the audit entry and records it. Audit
// failures are logged but never surfaced: the gateway has already been
// answered and state transitions must not depend on the trail.
func (p *Processor) finish(ctx context.Context, entry *LogEntry, outcome Outcome, errMsg string) Outcome {
	entry.Outcome = outcome
	if errMsg != "" {
		entry.Error = errMsg
	}

	if err := p.audit.Record(ctx, entry); err != nil {
		logger.Error("Failed to record callback audit entry", err, logger.LogContext{
			Provider:    entry.Provider,
			OrderNumber: entry.OrderNumber,
		})
	}

	if p.mirror != nil {
		go p.mirrorEntry(*entry)
	}

	return outcome
}

func (p *Processor) mirrorEntry(entry LogEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := p.mirror.LogCallback(ctx, opensearch.CallbackLog{
		ReceivedAt:     entry.ReceivedAt,
		Provider:       entry.Provider,
		OrderNumber:    entry.OrderNumber,
		TradeID:        entry.TradeID,
		TransactionID:  entry.TransactionID,
		Amount:         entry.Amount,
		Currency:       entry.Currency,
		SignatureValid: entry.SignatureValid,
		Status:         entry.Status,
		Outcome:        string(entry.Outcome),
		ClientIP:       entry.ClientIP,
		RawParams:      entry.RawParams,
		Error:          entry.Error,
	})
	if err != nil {
		logger.Warn("Failed to mirror callback to OpenSearch", logger.LogContext{
			Provider: entry.Provider,
			Fields:   map[string]any{"error": err.Error()},
		})
	}
}
