package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ordermesh/paygate/infra/logger"
)

// PaymentService manages payment operations through configured providers.
// It owns the failure-semantics envelope: any error an adapter operation
// returns is converted into a failed PaymentResponse before it reaches the
// HTTP boundary, because that boundary is what a provider or a browser
// redirect will hit. Registry lookup errors are the exception; those are
// configuration errors and are surfaced as-is.
type PaymentService struct {
	providers       map[string]PaymentProvider
	defaultProvider string
	mu              sync.RWMutex
}

// NewPaymentService creates a new payment service
func NewPaymentService() *PaymentService {
	return &PaymentService{
		providers: make(map[string]PaymentProvider),
	}
}

// AddProvider creates, initializes and registers a provider instance with
// explicit credentials. Credentials are per-instance, never process-global,
// so tests can inject fakes.
func (s *PaymentService) AddProvider(name string, config map[string]string) error {
	p, err := CreateProvider(name)
	if err != nil {
		return err
	}

	if err := p.Initialize(config); err != nil {
		return fmt.Errorf("failed to initialize provider '%s': %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers[name] = p

	return nil
}

// SetDefaultProvider sets the provider used when no selector is given
func (s *PaymentService) SetDefaultProvider(name string) error {
	s.mu.RLock()
	_, exists := s.providers[name]
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("%w: '%s'", ErrProviderNotRegistered, name)
	}

	s.mu.Lock()
	s.defaultProvider = name
	s.mu.Unlock()

	return nil
}

// GetProvider resolves a configured provider instance by selector.
func (s *PaymentService) GetProvider(name string) (PaymentProvider, error) {
	if notApplicableSelectors[name] {
		return nil, fmt.Errorf("%w: '%s'", ErrProviderNotApplicable, name)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if name == "" {
		name = s.defaultProvider
	}

	p, exists := s.providers[name]
	if !exists {
		return nil, fmt.Errorf("%w: '%s'", ErrProviderNotRegistered, name)
	}

	return p, nil
}

// ProviderNames returns the selectors of all configured providers
func (s *PaymentService) ProviderNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.providers))
	for name := range s.providers {
		names = append(names, name)
	}
	return names
}

// CreatePayment starts a payment using the specified provider.
//
// Callers must not retry a failed CreatePayment blindly: every call mints a
// fresh trade identifier, so an uncontrolled retry can leave two live
// redirect URLs for the same order. De-duplicate at the order level first.
func (s *PaymentService) CreatePayment(ctx context.Context, providerName string, request PaymentRequest) (*PaymentResponse, error) {
	p, err := s.GetProvider(providerName)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	response, err := p.CreatePayment(ctx, request)
	response = s.ensureResponse(providerName, request.OrderNumber, response, err)

	logger.Info("payment created", logger.LogContext{
		Provider: providerName,
		Fields: map[string]any{
			"order_number":  request.OrderNumber,
			"amount":        request.Amount,
			"status":        response.Status,
			"processing_ms": time.Since(start).Milliseconds(),
		},
	})

	return response, nil
}

// ConfirmPayment finalizes a payment for confirm-style providers
func (s *PaymentService) ConfirmPayment(ctx context.Context, providerName string, confirm PaymentConfirm) (*PaymentResponse, error) {
	p, err := s.GetProvider(providerName)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	response, err := p.ConfirmPayment(ctx, confirm)
	response = s.ensureResponse(providerName, confirm.OrderNumber, response, err)

	logger.Info("payment confirm attempted", logger.LogContext{
		Provider: providerName,
		Fields: map[string]any{
			"order_number":   confirm.OrderNumber,
			"transaction_id": confirm.TransactionID,
			"status":         response.Status,
			"processing_ms":  time.Since(start).Milliseconds(),
		},
	})

	return response, nil
}

// GetPaymentStatus retrieves the current status of a payment
func (s *PaymentService) GetPaymentStatus(ctx context.Context, providerName, transactionID string) (*PaymentResponse, error) {
	p, err := s.GetProvider(providerName)
	if err != nil {
		return nil, err
	}

	response, err := p.GetPaymentStatus(ctx, transactionID)
	return s.ensureResponse(providerName, "", response, err), nil
}

// CancelPayment cancels an uncaptured payment
func (s *PaymentService) CancelPayment(ctx context.Context, providerName, transactionID string) (*PaymentResponse, error) {
	p, err := s.GetProvider(providerName)
	if err != nil {
		return nil, err
	}

	response, err := p.CancelPayment(ctx, transactionID)
	response = s.ensureResponse(providerName, "", response, err)

	logger.Info("payment cancel attempted", logger.LogContext{
		Provider: providerName,
		Fields: map[string]any{
			"transaction_id": transactionID,
			"status":         response.Status,
		},
	})

	return response, nil
}

// RefundPayment issues a refund for a captured payment
func (s *PaymentService) RefundPayment(ctx context.Context, providerName string, request RefundRequest) (*PaymentResponse, error) {
	p, err := s.GetProvider(providerName)
	if err != nil {
		return nil, err
	}

	response, err := p.RefundPayment(ctx, request)
	response = s.ensureResponse(providerName, request.OrderNumber, response, err)

	logger.Info("refund attempted", logger.LogContext{
		Provider: providerName,
		Fields: map[string]any{
			"transaction_id": request.TransactionID,
			"amount":         request.Amount,
			"status":         response.Status,
		},
	})

	return response, nil
}

// ParseCallback verifies and normalizes an inbound provider notification.
// Unlike the payment operations, verification failures are returned as
// errors: the caller must treat the callback as untrusted and apply no
// state transition.
func (s *PaymentService) ParseCallback(providerName string, params map[string]string) (*PaymentResponse, error) {
	p, err := s.GetProvider(providerName)
	if err != nil {
		return nil, err
	}

	return p.ParseCallback(params)
}

func (s *PaymentService) ensureResponse(providerName, orderNumber string, response *PaymentResponse, err error) *PaymentResponse {
	if err != nil {
		logger.Warn("provider operation failed", logger.LogContext{
			Provider: providerName,
			Fields: map[string]any{
				"order_number": orderNumber,
				"error":        err.Error(),
			},
		})
		return FailedResponse(providerName, orderNumber, err)
	}
	if response == nil {
		return FailedResponse(providerName, orderNumber, fmt.Errorf("provider '%s' returned no response", providerName))
	}
	return response
}
