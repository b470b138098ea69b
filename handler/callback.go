package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ordermesh/paygate/callback"
	"github.com/ordermesh/paygate/infra/middle"
	"github.com/ordermesh/paygate/infra/response"
	"github.com/ordermesh/paygate/provider"
	"github.com/ordermesh/paygate/provider/ecpay"
)

// CallbackHandler receives asynchronous gateway notifications, verifies
// them through the provider adapters, and hands verified results to
// the callback processor.
type CallbackHandler struct {
	paymentService PaymentServiceInterface
	processor      *callback.Processor
	validate       *validator.Validate
}

// NewCallbackHandler creates a new callback handler
func NewCallbackHandler(paymentService PaymentServiceInterface, processor *callback.Processor, validate *validator.Validate) *CallbackHandler {
	return &CallbackHandler{
		paymentService: paymentService,
		processor:      processor,
		validate:       validate,
	}
}

// ECPayCallback handles the server-to-server notification posted as a
// form after checkout. The body of the acknowledgment is the protocol:
// anything other than "1|OK" makes the gateway redeliver.
func (h *CallbackHandler) ECPayCallback(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	if err := r.ParseForm(); err != nil {
		response.PlainText(w, http.StatusOK, ecpay.CallbackAckFail)
		return
	}

	params := make(map[string]string, len(r.PostForm))
	for key, values := range r.PostForm {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	clientIP := middle.GetClientIP(r)

	resp, err := h.paymentService.ParseCallback(provider.ProviderECPay, params)
	if err != nil {
		h.processor.Reject(ctx, provider.ProviderECPay, params, clientIP, err)
		response.PlainText(w, http.StatusOK, ecpay.CallbackAckFail)
		return
	}

	outcome := h.processor.Dispatch(ctx, resp, params, clientIP)
	response.PlainText(w, http.StatusOK, ackFor(outcome))
}

func ackFor(outcome callback.Outcome) string {
	switch outcome {
	case callback.OutcomeApplied, callback.OutcomeAlreadyProcessed:
		return ecpay.CallbackAckOK
	default:
		return ecpay.CallbackAckFail
	}
}

// linePayConfirmRequest is the body the storefront posts after the
// customer returns from the approval screen.
type linePayConfirmRequest struct {
	TransactionID string `json:"transactionId" validate:"required"`
	OrderNumber   string `json:"orderNumber" validate:"required"`
}

// LinePayConfirm finalizes a reservation after the customer approved
// it. The redirect parameters are never trusted: the adapter re-reads
// the reservation and issues a signed confirm call before the order
// state changes.
func (h *CallbackHandler) LinePayConfirm(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	var req linePayConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.Error(w, http.StatusBadRequest, "Validation error", err)
		return
	}

	clientIP := middle.GetClientIP(r)
	raw := map[string]string{
		"transactionId": req.TransactionID,
		"orderNumber":   req.OrderNumber,
	}

	resp, err := h.paymentService.ConfirmPayment(ctx, provider.ProviderLinePay, provider.PaymentConfirm{
		TransactionID: req.TransactionID,
		OrderNumber:   req.OrderNumber,
	})
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Confirm failed", err)
		return
	}

	outcome := h.processor.Dispatch(ctx, resp, raw, clientIP)

	response.Success(w, http.StatusOK, "Confirm processed", map[string]any{
		"outcome": outcome,
		"payment": resp,
	})
}
