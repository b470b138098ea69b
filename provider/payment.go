package provider

import "time"

// PaymentStatus represents the normalized status of a payment across providers
type PaymentStatus string

const (
	StatusInitiated  PaymentStatus = "initiated"
	StatusSuccess    PaymentStatus = "success"
	StatusProcessing PaymentStatus = "processing"
	StatusFailed     PaymentStatus = "failed"
	StatusCancelled  PaymentStatus = "cancelled"
	StatusExpired    PaymentStatus = "expired"
)

// Provider selectors known to the registry.
const (
	ProviderECPay   = "ecpay"
	ProviderLinePay = "linepay"
	ProviderManual  = "manual"
)

// PaymentRequest contains all information required to create a payment.
// Amount is expressed in the currency's minor unit (integer, no floats).
type PaymentRequest struct {
	OrderNumber   string `json:"orderNumber" validate:"required"`
	Amount        int64  `json:"amount" validate:"required,gt=0"`
	Currency      string `json:"currency" validate:"required,len=3"`
	Description   string `json:"description,omitempty"`
	CustomerEmail string `json:"customerEmail,omitempty" validate:"omitempty,email"`
	CustomerPhone string `json:"customerPhone,omitempty"`
	ClientIP      string `json:"clientIp,omitempty"`
}

// PaymentConfirm identifies a payment to be confirmed after the customer
// returns from the provider's approval screen. Only providers whose protocol
// requires an explicit confirm step use it.
type PaymentConfirm struct {
	TransactionID string `json:"transactionId" validate:"required"`
	OrderNumber   string `json:"orderNumber" validate:"required"`
}

// RefundRequest contains information to request a refund
type RefundRequest struct {
	TransactionID string `json:"transactionId" validate:"required"`
	OrderNumber   string `json:"orderNumber,omitempty"`
	Amount        int64  `json:"amount" validate:"required,gt=0"`
	Currency      string `json:"currency" validate:"required,len=3"`
	Reason        string `json:"reason,omitempty"`
}

// PaymentResponse contains the normalized result of any provider operation.
// Status is the single source of truth for callers; Raw carries the
// provider's own payload for the audit trail.
type PaymentResponse struct {
	Provider      string        `json:"provider"`
	Status        PaymentStatus `json:"status"`
	OrderNumber   string        `json:"orderNumber,omitempty"`
	TransactionID string        `json:"transactionId,omitempty"`
	Amount        int64         `json:"amount,omitempty"`
	Currency      string        `json:"currency,omitempty"`
	PaymentURL    string        `json:"paymentUrl,omitempty"`
	ErrorMessage  string        `json:"errorMessage,omitempty"`
	SystemTime    *time.Time    `json:"systemTime,omitempty"`
	Raw           any           `json:"raw,omitempty"`
}

// Succeeded reports whether the response carries a terminal success status.
func (r *PaymentResponse) Succeeded() bool {
	return r.Status == StatusSuccess
}

// FailedResponse builds the response adapters return when a transport or
// parsing error occurs. Adapter operations never propagate raw errors for
// payment operations; this envelope is what the HTTP boundary relies on.
func FailedResponse(providerName, orderNumber string, err error) *PaymentResponse {
	now := time.Now()
	resp := &PaymentResponse{
		Provider:    providerName,
		Status:      StatusFailed,
		OrderNumber: orderNumber,
		SystemTime:  &now,
	}
	if err != nil {
		resp.ErrorMessage = err.Error()
	}
	return resp
}
