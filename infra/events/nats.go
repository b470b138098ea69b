// Package events publishes payment lifecycle messages to NATS so that
// downstream services (fulfillment, notifications) can react to order
// state changes without polling the database.
package events

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/ordermesh/paygate/infra/config"
	"github.com/ordermesh/paygate/infra/logger"
)

const (
	SubjectPaymentPaid   = "payment.paid"
	SubjectPaymentFailed = "payment.failed"
)

// PaymentPaidMessage is published when a callback marks an order paid
type PaymentPaidMessage struct {
	OrderNumber   string    `json:"order_number"`
	Provider      string    `json:"provider"`
	TransactionID string    `json:"transaction_id"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	PaidAt        time.Time `json:"paid_at"`
}

// PaymentFailedMessage is published when a gateway reports a failed payment
type PaymentFailedMessage struct {
	OrderNumber string    `json:"order_number"`
	Provider    string    `json:"provider"`
	Reason      string    `json:"reason"`
	FailedAt    time.Time `json:"failed_at"`
}

// Publisher wraps a NATS connection. A nil Publisher or a Publisher
// without a connection is a no-op, so callers never need to guard
// against an unconfigured broker.
type Publisher struct {
	conn *nats.Conn
}

// Connect dials the NATS server configured via NATS_URL. When the
// variable is unset, a disabled publisher is returned.
func Connect() (*Publisher, error) {
	url := config.GetEnv("NATS_URL", "")
	if url == "" {
		return &Publisher{}, nil
	}

	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, err
	}

	return &Publisher{conn: conn}, nil
}

// Close drains the underlying connection
func (p *Publisher) Close() {
	if p != nil && p.conn != nil {
		p.conn.Close()
	}
}

// Enabled reports whether a broker connection is active
func (p *Publisher) Enabled() bool {
	return p != nil && p.conn != nil
}

// PublishPaid publishes a payment.paid message
func (p *Publisher) PublishPaid(msg PaymentPaidMessage) {
	p.publish(SubjectPaymentPaid, msg)
}

// PublishFailed publishes a payment.failed message
func (p *Publisher) PublishFailed(msg PaymentFailedMessage) {
	p.publish(SubjectPaymentFailed, msg)
}

func (p *Publisher) publish(subject string, msg any) {
	if !p.Enabled() {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		logger.Error("Failed to marshal event", err, logger.LogContext{
			Fields: map[string]any{"subject": subject},
		})
		return
	}

	if err := p.conn.Publish(subject, data); err != nil {
		// Events are best-effort: the order state is already committed
		logger.Error("Failed to publish event", err, logger.LogContext{
			Fields: map[string]any{"subject": subject},
		})
	}
}
