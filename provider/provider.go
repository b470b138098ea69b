package provider

import "context"

// ConfigField represents a required configuration field for a payment provider
type ConfigField struct {
	Key         string `json:"key"`
	Required    bool   `json:"required"`
	Type        string `json:"type"` // "string", "number", "url", "email", "boolean"
	Description string `json:"description"`
	Example     string `json:"example"`
	Pattern     string `json:"pattern,omitempty"`
	MinLength   int    `json:"minLength,omitempty"`
	MaxLength   int    `json:"maxLength,omitempty"`
}

// PaymentProvider defines the interface that all payment gateways must implement
type PaymentProvider interface {
	// Initialize sets up the payment provider with authentication and configuration
	Initialize(config map[string]string) error

	// GetRequiredConfig returns the configuration fields required for this provider
	GetRequiredConfig(environment string) []ConfigField

	// ValidateConfig validates the provided configuration against provider requirements
	ValidateConfig(config map[string]string) error

	// CreatePayment starts a payment and returns a redirect/payment URL
	CreatePayment(ctx context.Context, request PaymentRequest) (*PaymentResponse, error)

	// ConfirmPayment finalizes a payment for providers whose protocol requires
	// an explicit confirm step after the customer approves on the provider side
	ConfirmPayment(ctx context.Context, confirm PaymentConfirm) (*PaymentResponse, error)

	// GetPaymentStatus retrieves the current status of a payment
	GetPaymentStatus(ctx context.Context, transactionID string) (*PaymentResponse, error)

	// CancelPayment cancels an uncaptured payment
	CancelPayment(ctx context.Context, transactionID string) (*PaymentResponse, error)

	// RefundPayment issues a refund for a captured payment
	RefundPayment(ctx context.Context, request RefundRequest) (*PaymentResponse, error)

	// ParseCallback verifies and normalizes an asynchronous provider
	// notification. The returned response is only trustworthy when the
	// error is nil; a signature mismatch is returned as an error and the
	// caller must not apply any state transition.
	ParseCallback(params map[string]string) (*PaymentResponse, error)
}

// ProviderFactory is a function type that creates a new PaymentProvider
type ProviderFactory func() PaymentProvider
