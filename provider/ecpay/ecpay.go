package ecpay

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/ordermesh/paygate/provider"
)

const (
	apiSandboxURL    = "https://payment-stage.ecpay.com.tw"
	apiProductionURL = "https://payment.ecpay.com.tw"

	endpointCheckout = "/Cashier/AioCheckOut/V5"

	// RtnCode "1" is the gateway's only success code; every other value is
	// a failure with the reason in RtnMsg.
	rtnCodeSuccess = "1"

	tradeDateLayout = "2006/01/02 15:04:05"

	// Acknowledgment bodies the gateway expects from the callback endpoint.
	CallbackAckOK   = "1|OK"
	CallbackAckFail = "0|Error"
)

// ECPayProvider implements the provider.PaymentProvider interface for the
// multi-channel card/ATM/convenience-store checkout gateway. Payment is
// started by redirecting the customer to a signed checkout URL; the final
// outcome arrives only through the asynchronous server callback.
type ECPayProvider struct {
	merchantID   string
	hashKey      string
	hashIV       string
	baseURL      string
	returnURL    string // server-to-server notification endpoint
	clientBack   string // where the customer's browser lands afterwards
	isProduction bool
}

// NewProvider creates a new checkout-redirect payment provider
func NewProvider() provider.PaymentProvider {
	return &ECPayProvider{}
}

// Initialize sets up the provider with merchant credentials
func (p *ECPayProvider) Initialize(conf map[string]string) error {
	p.merchantID = conf["merchantId"]
	p.hashKey = conf["hashKey"]
	p.hashIV = conf["hashIV"]

	if p.merchantID == "" || p.hashKey == "" || p.hashIV == "" {
		return errors.New("ecpay: merchantId, hashKey and hashIV are required")
	}

	p.returnURL = conf["returnURL"]
	if p.returnURL == "" {
		return errors.New("ecpay: returnURL is required")
	}
	p.clientBack = conf["clientBackURL"]

	p.isProduction = conf["environment"] == "production"
	if p.isProduction {
		p.baseURL = apiProductionURL
	} else {
		p.baseURL = apiSandboxURL
	}

	return nil
}

// GetRequiredConfig returns the configuration fields required for this provider
func (p *ECPayProvider) GetRequiredConfig(environment string) []provider.ConfigField {
	return []provider.ConfigField{
		{
			Key:         "merchantId",
			Required:    true,
			Type:        "string",
			Description: "Merchant identifier assigned by the gateway",
			Example:     "2000132",
			MinLength:   5,
			MaxLength:   10,
		},
		{
			Key:         "hashKey",
			Required:    true,
			Type:        "string",
			Description: "Shared secret prefix for CheckMacValue signing",
			Example:     "5294y06JbISpM5x9",
		},
		{
			Key:         "hashIV",
			Required:    true,
			Type:        "string",
			Description: "Shared secret suffix for CheckMacValue signing",
			Example:     "v77hoKGq4kWxNNIS",
		},
		{
			Key:         "returnURL",
			Required:    true,
			Type:        "url",
			Description: "Server endpoint that receives the asynchronous payment notification",
			Example:     "https://shop.example.com/callback/ecpay",
		},
		{
			Key:         "environment",
			Required:    true,
			Type:        "string",
			Description: "Environment setting (sandbox or production)",
			Example:     "sandbox",
			Pattern:     "^(sandbox|production)$",
		},
	}
}

// ValidateConfig validates the provided configuration against provider requirements
func (p *ECPayProvider) ValidateConfig(conf map[string]string) error {
	for _, field := range p.GetRequiredConfig(conf["environment"]) {
		if !field.Required {
			continue
		}
		if conf[field.Key] == "" {
			return fmt.Errorf("ecpay: %s is required", field.Key)
		}
	}
	return nil
}

// CreatePayment builds a signed checkout redirect URL. The gateway has no
// synchronous result: the response is always initiated, and the real
// outcome arrives via the server callback.
func (p *ECPayProvider) CreatePayment(ctx context.Context, request provider.PaymentRequest) (*provider.PaymentResponse, error) {
	if err := p.validatePaymentRequest(request); err != nil {
		return nil, fmt.Errorf("ecpay: invalid payment request: %w", err)
	}

	tradeID, err := provider.GenerateTradeID(request.OrderNumber)
	if err != nil {
		return nil, fmt.Errorf("ecpay: %w", err)
	}

	description := request.Description
	if description == "" {
		description = "Online order " + request.OrderNumber
	}

	params := map[string]string{
		"MerchantID":        p.merchantID,
		"MerchantTradeNo":   tradeID,
		"MerchantTradeDate": time.Now().Format(tradeDateLayout),
		"PaymentType":       "aio",
		"TotalAmount":       strconv.FormatInt(request.Amount, 10),
		"TradeDesc":         description,
		"ItemName":          description,
		"ReturnURL":         p.returnURL,
		"ChoosePayment":     "ALL",
		"EncryptType":       "1",
	}
	if p.clientBack != "" {
		params["ClientBackURL"] = p.clientBack
	}

	params[checkMacParam] = GenerateCheckMac(params, p.hashKey, p.hashIV)

	query := url.Values{}
	for k, v := range params {
		query.Set(k, v)
	}

	now := time.Now()
	return &provider.PaymentResponse{
		Provider:    provider.ProviderECPay,
		Status:      provider.StatusInitiated,
		OrderNumber: request.OrderNumber,
		Amount:      request.Amount,
		Currency:    request.Currency,
		PaymentURL:  p.baseURL + endpointCheckout + "?" + query.Encode(),
		SystemTime:  &now,
		Raw:         params,
	}, nil
}

// ConfirmPayment is not part of this gateway's protocol; the callback is
// the only settlement signal.
func (p *ECPayProvider) ConfirmPayment(ctx context.Context, confirm provider.PaymentConfirm) (*provider.PaymentResponse, error) {
	resp := provider.FailedResponse(provider.ProviderECPay, confirm.OrderNumber,
		errors.New("ecpay: confirm step is not applicable, settlement arrives via asynchronous notification"))
	return resp, nil
}

// GetPaymentStatus cannot be answered by this gateway's public protocol.
// The response says so explicitly instead of failing silently: the only
// way to learn the final outcome is the callback.
func (p *ECPayProvider) GetPaymentStatus(ctx context.Context, transactionID string) (*provider.PaymentResponse, error) {
	now := time.Now()
	return &provider.PaymentResponse{
		Provider:      provider.ProviderECPay,
		Status:        provider.StatusProcessing,
		TransactionID: transactionID,
		ErrorMessage:  "ecpay: gateway does not expose a status query API; final outcome arrives via asynchronous notification",
		SystemTime:    &now,
	}, nil
}

// CancelPayment cannot be performed through this gateway's public API.
// The response says so rather than claiming success.
func (p *ECPayProvider) CancelPayment(ctx context.Context, transactionID string) (*provider.PaymentResponse, error) {
	resp := provider.FailedResponse(provider.ProviderECPay, "",
		errors.New("ecpay: cancellation is not supported over the API, use the merchant portal"))
	resp.TransactionID = transactionID
	return resp, nil
}

// RefundPayment cannot be performed through this gateway's public API.
func (p *ECPayProvider) RefundPayment(ctx context.Context, request provider.RefundRequest) (*provider.PaymentResponse, error) {
	resp := provider.FailedResponse(provider.ProviderECPay, request.OrderNumber,
		errors.New("ecpay: refunds are not supported over the API, use the merchant portal"))
	resp.TransactionID = request.TransactionID
	return resp, nil
}

// ParseCallback verifies the CheckMacValue over the notification parameters
// and normalizes the result. A verification failure is returned as an error;
// the caller must not apply any state transition, regardless of the claimed
// status inside the payload.
func (p *ECPayProvider) ParseCallback(params map[string]string) (*provider.PaymentResponse, error) {
	if err := VerifyCheckMac(params, p.hashKey, p.hashIV); err != nil {
		return nil, err
	}

	tradeID := params["MerchantTradeNo"]
	if tradeID == "" {
		return nil, errors.New("ecpay: missing MerchantTradeNo in callback")
	}

	orderNumber, err := provider.RecoverOrderNumber(tradeID)
	if err != nil {
		return nil, fmt.Errorf("ecpay: %w", err)
	}

	now := time.Now()
	resp := &provider.PaymentResponse{
		Provider:      provider.ProviderECPay,
		OrderNumber:   orderNumber,
		TransactionID: params["TradeNo"],
		SystemTime:    &now,
		Raw:           params,
	}

	if amt := params["TradeAmt"]; amt != "" {
		if parsed, err := strconv.ParseInt(amt, 10, 64); err == nil {
			resp.Amount = parsed
		}
	}

	if params["RtnCode"] == rtnCodeSuccess {
		resp.Status = provider.StatusSuccess
	} else {
		resp.Status = provider.StatusFailed
		resp.ErrorMessage = params["RtnMsg"]
	}

	return resp, nil
}

func (p *ECPayProvider) validatePaymentRequest(request provider.PaymentRequest) error {
	if request.OrderNumber == "" {
		return errors.New("order number is required")
	}
	if request.Amount <= 0 {
		return errors.New("amount must be greater than 0")
	}
	return nil
}
