package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ordermesh/paygate/infra/middle"
	"github.com/ordermesh/paygate/infra/response"
	"github.com/ordermesh/paygate/order"
	"github.com/ordermesh/paygate/provider"
)

// PaymentServiceInterface defines the payment operations handlers depend on
type PaymentServiceInterface interface {
	CreatePayment(ctx context.Context, providerName string, request provider.PaymentRequest) (*provider.PaymentResponse, error)
	ConfirmPayment(ctx context.Context, providerName string, confirm provider.PaymentConfirm) (*provider.PaymentResponse, error)
	GetPaymentStatus(ctx context.Context, providerName, transactionID string) (*provider.PaymentResponse, error)
	CancelPayment(ctx context.Context, providerName, transactionID string) (*provider.PaymentResponse, error)
	RefundPayment(ctx context.Context, providerName string, request provider.RefundRequest) (*provider.PaymentResponse, error)
	ParseCallback(providerName string, params map[string]string) (*provider.PaymentResponse, error)
	ProviderNames() []string
}

// PaymentHandler handles payment related HTTP requests
type PaymentHandler struct {
	paymentService PaymentServiceInterface
	orders         order.Repository
	validate       *validator.Validate
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(paymentService PaymentServiceInterface, orders order.Repository, validate *validator.Validate) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		orders:         orders,
		validate:       validate,
	}
}

// CreatePayment registers the order and starts a payment with the
// selected gateway. Retrying an order that is still awaiting payment
// mints a new redirect; a paid or cancelled order is refused.
func (h *PaymentHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	var req provider.PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	req.ClientIP = middle.GetClientIP(r)

	if err := h.validate.Struct(req); err != nil {
		response.Error(w, http.StatusBadRequest, "Validation error", err)
		return
	}

	providerName := chi.URLParam(r, "provider")

	existing, err := h.orders.GetByOrderNumber(ctx, req.OrderNumber)
	switch {
	case err == nil:
		if existing.Status != order.StatusAwaitingPayment {
			response.Error(w, http.StatusConflict, "Order is not awaiting payment", nil)
			return
		}
	case errors.Is(err, order.ErrOrderNotFound):
		o := &order.Order{
			OrderNumber: req.OrderNumber,
			Amount:      req.Amount,
			Currency:    req.Currency,
		}
		if err := h.orders.CreateOrder(ctx, o); err != nil {
			response.Error(w, http.StatusInternalServerError, "Failed to create order", err)
			return
		}
	default:
		response.Error(w, http.StatusInternalServerError, "Failed to load order", err)
		return
	}

	resp, err := h.paymentService.CreatePayment(ctx, providerName, req)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Payment failed", err)
		return
	}

	response.Success(w, http.StatusOK, "Payment created", resp)
}

// GetOrder returns an order with its payment ledger
func (h *PaymentHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	orderNumber := chi.URLParam(r, "orderNumber")
	if orderNumber == "" {
		response.Error(w, http.StatusBadRequest, "Missing order number", nil)
		return
	}

	o, err := h.orders.GetByOrderNumber(ctx, orderNumber)
	if errors.Is(err, order.ErrOrderNotFound) {
		response.Error(w, http.StatusNotFound, "Order not found", nil)
		return
	}
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "Failed to load order", err)
		return
	}

	entries, err := h.orders.GetLedgerEntries(ctx, o.ID)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "Failed to load ledger", err)
		return
	}

	response.Success(w, http.StatusOK, "Order retrieved", map[string]any{
		"order":  o,
		"ledger": entries,
	})
}

// GetPaymentStatus queries the gateway for the current payment state
func (h *PaymentHandler) GetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	providerName := chi.URLParam(r, "provider")
	transactionID := chi.URLParam(r, "transactionID")

	if transactionID == "" {
		response.Error(w, http.StatusBadRequest, "Missing transaction ID", nil)
		return
	}

	resp, err := h.paymentService.GetPaymentStatus(ctx, providerName, transactionID)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Failed to get payment status", err)
		return
	}

	response.Success(w, http.StatusOK, "Payment status retrieved", resp)
}

// CancelPayment voids an authorized but uncaptured payment
func (h *PaymentHandler) CancelPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	providerName := chi.URLParam(r, "provider")
	transactionID := chi.URLParam(r, "transactionID")

	if transactionID == "" {
		response.Error(w, http.StatusBadRequest, "Missing transaction ID", nil)
		return
	}

	resp, err := h.paymentService.CancelPayment(ctx, providerName, transactionID)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Failed to cancel payment", err)
		return
	}

	response.Success(w, http.StatusOK, "Cancel attempted", resp)
}

// RefundPayment issues a refund for a captured payment and tracks the
// refund state in the ledger.
func (h *PaymentHandler) RefundPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	var req provider.RefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.Error(w, http.StatusBadRequest, "Validation error", err)
		return
	}

	providerName := chi.URLParam(r, "provider")

	resp, err := h.paymentService.RefundPayment(ctx, providerName, req)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Failed to refund payment", err)
		return
	}

	if req.OrderNumber != "" {
		h.trackRefund(ctx, req, resp)
	}

	response.Success(w, http.StatusOK, "Refund attempted", resp)
}

// trackRefund moves the matching ledger entry along the refund
// lifecycle. Ledger problems are not surfaced to the caller since the
// gateway already accepted or declined the refund.
func (h *PaymentHandler) trackRefund(ctx context.Context, req provider.RefundRequest, resp *provider.PaymentResponse) {
	o, err := h.orders.GetByOrderNumber(ctx, req.OrderNumber)
	if err != nil {
		return
	}

	status := order.LedgerRefunding
	if resp.Succeeded() {
		status = order.LedgerRefunded
	}
	_ = h.orders.UpdateLedgerStatus(ctx, o.ID, req.TransactionID, status)
}

// ListProviders returns the configured gateway selectors
func (h *PaymentHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	response.Success(w, http.StatusOK, "Providers retrieved", map[string]any{
		"providers": h.paymentService.ProviderNames(),
	})
}
