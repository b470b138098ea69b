package linepay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/ordermesh/paygate/provider"
)

const (
	apiSandboxURL    = "https://sandbox-api-pay.line.me"
	apiProductionURL = "https://api-pay.line.me"

	endpointRequest = "/v3/payments/request"
	endpointConfirm = "/v3/payments/%s/confirm"
	endpointDetails = "/v3/payments"
	endpointVoid    = "/v3/payments/authorizations/%s/void"
	endpointRefund  = "/v3/payments/%s/refund"

	headerChannelID     = "X-LINE-ChannelId"
	headerAuthorization = "X-LINE-Authorization"
	headerNonce         = "X-LINE-Authorization-Nonce"

	// returnCodeOK is the gateway's protocol success code; anything else
	// is a failure with the reason in returnMessage.
	returnCodeOK = "0000"

	// Gateway payment status vocabulary.
	payStatusAuthorization = "AUTHORIZATION"
	payStatusCapture       = "CAPTURE"
	payStatusVoided        = "VOIDED_AUTHORIZATION"
	payStatusExpired       = "EXPIRED_AUTHORIZATION"

	defaultTimeout = 30 * time.Second
)

// LinePayProvider implements the provider.PaymentProvider interface for the
// QR/app-based wallet gateway. Every API call is individually signed with
// an HMAC over the channel secret, request path, payload and a fresh nonce.
type LinePayProvider struct {
	channelID     string
	channelSecret string
	confirmURL    string
	cancelURL     string
	isProduction  bool
	client        *provider.ProviderHTTPClient
}

// NewProvider creates a new wallet payment provider
func NewProvider() provider.PaymentProvider {
	return &LinePayProvider{}
}

// Initialize sets up the provider with channel credentials
func (p *LinePayProvider) Initialize(conf map[string]string) error {
	p.channelID = conf["channelId"]
	p.channelSecret = conf["channelSecret"]

	if p.channelID == "" || p.channelSecret == "" {
		return errors.New("linepay: channelId and channelSecret are required")
	}

	p.confirmURL = conf["confirmURL"]
	if p.confirmURL == "" {
		return errors.New("linepay: confirmURL is required")
	}
	p.cancelURL = conf["cancelURL"]

	p.isProduction = conf["environment"] == "production"
	baseURL := apiSandboxURL
	if p.isProduction {
		baseURL = apiProductionURL
	}
	// apiURL override is for tests pointing at a local stub.
	if override := conf["apiURL"]; override != "" {
		baseURL = override
	}

	p.client = provider.NewProviderHTTPClient(provider.CreateHTTPClientConfig(baseURL, defaultTimeout))

	return nil
}

// GetRequiredConfig returns the configuration fields required for this provider
func (p *LinePayProvider) GetRequiredConfig(environment string) []provider.ConfigField {
	return []provider.ConfigField{
		{
			Key:         "channelId",
			Required:    true,
			Type:        "string",
			Description: "Channel identifier issued by the gateway",
			Example:     "1654321987",
			MinLength:   10,
			MaxLength:   10,
		},
		{
			Key:         "channelSecret",
			Required:    true,
			Type:        "string",
			Description: "Channel secret used as the HMAC key",
			Example:     "a917ab6a2367b536f8e5a6e2977e06f4",
		},
		{
			Key:         "confirmURL",
			Required:    true,
			Type:        "url",
			Description: "URL the customer is redirected to after approving in the wallet app",
			Example:     "https://shop.example.com/payment/linepay/confirm",
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
func (p *LinePayProvider) ValidateConfig(conf map[string]string) error {
	for _, field := range p.GetRequiredConfig(conf["environment"]) {
		if !field.Required {
			continue
		}
		if conf[field.Key] == "" {
			return fmt.Errorf("linepay: %s is required", field.Key)
		}
	}
	return nil
}

// apiResponse is the gateway's response envelope
type apiResponse struct {
	ReturnCode    string `json:"returnCode"`
	ReturnMessage string `json:"returnMessage"`
	Info          json.RawMessage `json:"info,omitempty"`
}

type requestInfo struct {
	TransactionID json.Number `json:"transactionId"`
	PaymentURL    struct {
		Web string `json:"web"`
		App string `json:"app"`
	} `json:"paymentUrl"`
}

type detailsInfo struct {
	TransactionID json.Number `json:"transactionId"`
	OrderID       string      `json:"orderId"`
	PayStatus     string      `json:"payStatus"`
	Amount        int64       `json:"amount"`
	Currency      string      `json:"currency"`
}

// CreatePayment performs the synchronous payment reservation call and
// returns the wallet payment URL with status initiated on protocol code
// 0000, else failed.
func (p *LinePayProvider) CreatePayment(ctx context.Context, request provider.PaymentRequest) (*provider.PaymentResponse, error) {
	if err := p.validatePaymentRequest(request); err != nil {
		return nil, fmt.Errorf("linepay: invalid payment request: %w", err)
	}

	productName := request.Description
	if productName == "" {
		productName = "Online order " + request.OrderNumber
	}

	body := map[string]any{
		"amount":   request.Amount,
		"currency": request.Currency,
		"orderId":  request.OrderNumber,
		"packages": []map[string]any{
			{
				"id":     request.OrderNumber,
				"amount": request.Amount,
				"name":   productName,
				"products": []map[string]any{
					{
						"name":     productName,
						"quantity": 1,
						"price":    request.Amount,
					},
				},
			},
		},
		"redirectUrls": map[string]string{
			"confirmUrl": p.confirmURL,
			"cancelUrl":  p.cancelURL,
		},
	}

	apiResp, raw, err := p.post(ctx, endpointRequest, body)
	if err != nil {
		return provider.FailedResponse(provider.ProviderLinePay, request.OrderNumber, err), nil
	}

	now := time.Now()
	resp := &provider.PaymentResponse{
		Provider:    provider.ProviderLinePay,
		OrderNumber: request.OrderNumber,
		Amount:      request.Amount,
		Currency:    request.Currency,
		SystemTime:  &now,
		Raw:         raw,
	}

	if apiResp.ReturnCode != returnCodeOK {
		resp.Status = provider.StatusFailed
		resp.ErrorMessage = fmt.Sprintf("linepay: request rejected (%s) %s", apiResp.ReturnCode, apiResp.ReturnMessage)
		return resp, nil
	}

	var info requestInfo
	if err := json.Unmarshal(apiResp.Info, &info); err != nil {
		resp.Status = provider.StatusFailed
		resp.ErrorMessage = fmt.Sprintf("linepay: malformed reservation info: %v", err)
		return resp, nil
	}

	resp.Status = provider.StatusInitiated
	resp.TransactionID = info.TransactionID.String()
	resp.PaymentURL = info.PaymentURL.Web
	return resp, nil
}

// ConfirmPayment captures a payment the customer approved in the wallet
// app. The redirect that brought the customer back is never trusted; only
// this signed API exchange drives the state transition.
func (p *LinePayProvider) ConfirmPayment(ctx context.Context, confirm provider.PaymentConfirm) (*provider.PaymentResponse, error) {
	if confirm.TransactionID == "" {
		return nil, errors.New("linepay: transactionId is required")
	}

	order, amount, currency, err := p.lookupReservation(ctx, confirm.TransactionID)
	if err != nil {
		return provider.FailedResponse(provider.ProviderLinePay, confirm.OrderNumber, err), nil
	}
	if confirm.OrderNumber != "" && order != "" && confirm.OrderNumber != order {
		return provider.FailedResponse(provider.ProviderLinePay, confirm.OrderNumber,
			fmt.Errorf("linepay: transaction %s belongs to order %s, not %s", confirm.TransactionID, order, confirm.OrderNumber)), nil
	}

	body := map[string]any{
		"amount":   amount,
		"currency": currency,
	}

	apiResp, raw, err := p.post(ctx, fmt.Sprintf(endpointConfirm, confirm.TransactionID), body)
	if err != nil {
		return provider.FailedResponse(provider.ProviderLinePay, order, err), nil
	}

	now := time.Now()
	resp := &provider.PaymentResponse{
		Provider:      provider.ProviderLinePay,
		OrderNumber:   order,
		TransactionID: confirm.TransactionID,
		Amount:        amount,
		Currency:      currency,
		SystemTime:    &now,
		Raw:           raw,
	}

	if apiResp.ReturnCode != returnCodeOK {
		resp.Status = provider.StatusFailed
		resp.ErrorMessage = fmt.Sprintf("linepay: confirm rejected (%s) %s", apiResp.ReturnCode, apiResp.ReturnMessage)
		return resp, nil
	}

	resp.Status = provider.StatusSuccess
	return resp, nil
}

// GetPaymentStatus retrieves the payment details and translates the
// gateway's status vocabulary into the common enum.
func (p *LinePayProvider) GetPaymentStatus(ctx context.Context, transactionID string) (*provider.PaymentResponse, error) {
	if transactionID == "" {
		return nil, errors.New("linepay: transactionId is required")
	}

	query := url.Values{}
	query.Set("transactionId", transactionID)

	apiResp, raw, err := p.get(ctx, endpointDetails, query)
	if err != nil {
		resp := provider.FailedResponse(provider.ProviderLinePay, "", err)
		resp.TransactionID = transactionID
		return resp, nil
	}

	now := time.Now()
	resp := &provider.PaymentResponse{
		Provider:      provider.ProviderLinePay,
		TransactionID: transactionID,
		SystemTime:    &now,
		Raw:           raw,
	}

	if apiResp.ReturnCode != returnCodeOK {
		resp.Status = provider.StatusFailed
		resp.ErrorMessage = fmt.Sprintf("linepay: details rejected (%s) %s", apiResp.ReturnCode, apiResp.ReturnMessage)
		return resp, nil
	}

	var infos []detailsInfo
	if err := json.Unmarshal(apiResp.Info, &infos); err != nil || len(infos) == 0 {
		resp.Status = provider.StatusProcessing
		resp.ErrorMessage = "linepay: no payment details returned"
		return resp, nil
	}

	info := infos[0]
	resp.OrderNumber = info.OrderID
	resp.Amount = info.Amount
	resp.Currency = info.Currency
	resp.Status = mapPayStatus(info.PayStatus)
	return resp, nil
}

// CancelPayment voids an authorized, uncaptured payment
func (p *LinePayProvider) CancelPayment(ctx context.Context, transactionID string) (*provider.PaymentResponse, error) {
	if transactionID == "" {
		return nil, errors.New("linepay: transactionId is required")
	}

	apiResp, raw, err := p.post(ctx, fmt.Sprintf(endpointVoid, transactionID), map[string]any{})
	if err != nil {
		resp := provider.FailedResponse(provider.ProviderLinePay, "", err)
		resp.TransactionID = transactionID
		return resp, nil
	}

	now := time.Now()
	resp := &provider.PaymentResponse{
		Provider:      provider.ProviderLinePay,
		TransactionID: transactionID,
		SystemTime:    &now,
		Raw:           raw,
	}

	if apiResp.ReturnCode != returnCodeOK {
		resp.Status = provider.StatusFailed
		resp.ErrorMessage = fmt.Sprintf("linepay: void rejected (%s) %s", apiResp.ReturnCode, apiResp.ReturnMessage)
		return resp, nil
	}

	resp.Status = provider.StatusCancelled
	return resp, nil
}

// RefundPayment refunds a captured payment
func (p *LinePayProvider) RefundPayment(ctx context.Context, request provider.RefundRequest) (*provider.PaymentResponse, error) {
	if request.TransactionID == "" {
		return nil, errors.New("linepay: transactionId is required for refund")
	}
	if request.Amount <= 0 {
		return nil, errors.New("linepay: refund amount must be greater than 0")
	}

	body := map[string]any{
		"refundAmount": request.Amount,
	}

	apiResp, raw, err := p.post(ctx, fmt.Sprintf(endpointRefund, request.TransactionID), body)
	if err != nil {
		resp := provider.FailedResponse(provider.ProviderLinePay, request.OrderNumber, err)
		resp.TransactionID = request.TransactionID
		return resp, nil
	}

	now := time.Now()
	resp := &provider.PaymentResponse{
		Provider:      provider.ProviderLinePay,
		OrderNumber:   request.OrderNumber,
		TransactionID: request.TransactionID,
		Amount:        request.Amount,
		SystemTime:    &now,
		Raw:           raw,
	}

	if apiResp.ReturnCode != returnCodeOK {
		resp.Status = provider.StatusFailed
		resp.ErrorMessage = fmt.Sprintf("linepay: refund rejected (%s) %s", apiResp.ReturnCode, apiResp.ReturnMessage)
		return resp, nil
	}

	resp.Status = provider.StatusSuccess
	return resp, nil
}

// ParseCallback is not applicable: the gateway's "callback" is a browser
// redirect that the HTTP boundary converts into an explicit ConfirmPayment
// call. There is nothing to verify locally.
func (p *LinePayProvider) ParseCallback(params map[string]string) (*provider.PaymentResponse, error) {
	return nil, errors.New("linepay: no server callback protocol; convert the redirect into a confirm call")
}

func (p *LinePayProvider) validatePaymentRequest(request provider.PaymentRequest) error {
	if request.OrderNumber == "" {
		return errors.New("order number is required")
	}
	if request.Amount <= 0 {
		return errors.New("amount must be greater than 0")
	}
	if request.Currency == "" {
		return errors.New("currency is required")
	}
	return nil
}

// lookupReservation fetches the reserved amount/currency for a transaction
// so the confirm call echoes exactly what was reserved.
func (p *LinePayProvider) lookupReservation(ctx context.Context, transactionID string) (orderNumber string, amount int64, currency string, err error) {
	query := url.Values{}
	query.Set("transactionId", transactionID)

	apiResp, _, err := p.get(ctx, endpointDetails, query)
	if err != nil {
		return "", 0, "", err
	}
	if apiResp.ReturnCode != returnCodeOK {
		return "", 0, "", fmt.Errorf("linepay: details rejected (%s) %s", apiResp.ReturnCode, apiResp.ReturnMessage)
	}

	var infos []detailsInfo
	if err := json.Unmarshal(apiResp.Info, &infos); err != nil {
		return "", 0, "", fmt.Errorf("linepay: malformed details info: %w", err)
	}
	if len(infos) == 0 {
		return "", 0, "", fmt.Errorf("linepay: transaction %s not found", transactionID)
	}

	return infos[0].OrderID, infos[0].Amount, infos[0].Currency, nil
}

func mapPayStatus(payStatus string) provider.PaymentStatus {
	switch payStatus {
	case payStatusAuthorization, payStatusCapture:
		// Authorized-but-not-captured counts as success for the caller.
		return provider.StatusSuccess
	case payStatusVoided:
		return provider.StatusCancelled
	case payStatusExpired:
		return provider.StatusExpired
	default:
		return provider.StatusProcessing
	}
}

func (p *LinePayProvider) post(ctx context.Context, path string, body map[string]any) (*apiResponse, string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, "", fmt.Errorf("linepay: failed to marshal request: %w", err)
	}

	nonce := uuid.New().String()
	httpResp, err := p.client.SendJSON(ctx, &provider.HTTPRequest{
		Method:   "POST",
		Endpoint: path,
		Headers: map[string]string{
			headerChannelID:     p.channelID,
			headerNonce:         nonce,
			headerAuthorization: Sign(p.channelSecret, path, string(payload), nonce),
		},
		Body: json.RawMessage(payload),
	})
	if err != nil {
		return nil, "", fmt.Errorf("linepay: request to %s failed: %w", path, err)
	}

	return p.decode(httpResp)
}

func (p *LinePayProvider) get(ctx context.Context, path string, query url.Values) (*apiResponse, string, error) {
	nonce := uuid.New().String()
	queryParams := make(map[string]string, len(query))
	for key := range query {
		queryParams[key] = query.Get(key)
	}

	httpResp, err := p.client.SendJSON(ctx, &provider.HTTPRequest{
		Method:   "GET",
		Endpoint: path,
		Headers: map[string]string{
			headerChannelID: p.channelID,
			headerNonce:     nonce,
			// GET requests sign the query string instead of a body.
			headerAuthorization: Sign(p.channelSecret, path, query.Encode(), nonce),
		},
		QueryParams: queryParams,
	})
	if err != nil {
		return nil, "", fmt.Errorf("linepay: request to %s failed: %w", path, err)
	}

	return p.decode(httpResp)
}

func (p *LinePayProvider) decode(httpResp *provider.HTTPResponse) (*apiResponse, string, error) {
	var apiResp apiResponse
	if err := json.Unmarshal(httpResp.Body, &apiResp); err != nil {
		return nil, httpResp.RawBody, fmt.Errorf("linepay: failed to parse response: %w", err)
	}
	return &apiResp, httpResp.RawBody, nil
}
