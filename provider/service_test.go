package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockProvider is a configurable PaymentProvider for service tests.
type mockProvider struct {
	initErr     error
	response    *PaymentResponse
	err         error
	callbackErr error
}

func (m *mockProvider) Initialize(config map[string]string) error { return m.initErr }

func (m *mockProvider) GetRequiredConfig(environment string) []ConfigField { return nil }

func (m *mockProvider) ValidateConfig(config map[string]string) error { return nil }

func (m *mockProvider) CreatePayment(ctx context.Context, request PaymentRequest) (*PaymentResponse, error) {
	return m.response, m.err
}

func (m *mockProvider) ConfirmPayment(ctx context.Context, confirm PaymentConfirm) (*PaymentResponse, error) {
	return m.response, m.err
}

func (m *mockProvider) GetPaymentStatus(ctx context.Context, transactionID string) (*PaymentResponse, error) {
	return m.response, m.err
}

func (m *mockProvider) CancelPayment(ctx context.Context, transactionID string) (*PaymentResponse, error) {
	return m.response, m.err
}

func (m *mockProvider) RefundPayment(ctx context.Context, request RefundRequest) (*PaymentResponse, error) {
	return m.response, m.err
}

func (m *mockProvider) ParseCallback(params map[string]string) (*PaymentResponse, error) {
	if m.callbackErr != nil {
		return nil, m.callbackErr
	}
	return m.response, nil
}

func newServiceWith(t *testing.T, name string, mock *mockProvider) *PaymentService {
	t.Helper()

	Register(name, func() PaymentProvider { return mock })

	service := NewPaymentService()
	require.NoError(t, service.AddProvider(name, map[string]string{}))
	return service
}

func TestPaymentService_AddProvider_InitializeFails(t *testing.T) {
	Register("mock-bad-init", func() PaymentProvider {
		return &mockProvider{initErr: errors.New("missing credentials")}
	})

	service := NewPaymentService()
	err := service.AddProvider("mock-bad-init", map[string]string{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "missing credentials")
	assert.Empty(t, service.ProviderNames())
}

func TestPaymentService_SetDefaultProvider(t *testing.T) {
	service := newServiceWith(t, "mock-default", &mockProvider{})

	assert.Error(t, service.SetDefaultProvider("unknown"))
	assert.NoError(t, service.SetDefaultProvider("mock-default"))

	// Empty selector falls back to the default.
	p, err := service.GetProvider("")
	assert.NoError(t, err)
	assert.NotNil(t, p)
}

func TestPaymentService_GetProvider_NotApplicable(t *testing.T) {
	service := newServiceWith(t, "mock-na", &mockProvider{})

	p, err := service.GetProvider("bank_transfer")
	assert.ErrorIs(t, err, ErrProviderNotApplicable)
	assert.Nil(t, p)
}

func TestPaymentService_CreatePayment_AdapterErrorBecomesFailedResponse(t *testing.T) {
	service := newServiceWith(t, "mock-fail", &mockProvider{err: errors.New("gateway timeout")})

	resp, err := service.CreatePayment(context.Background(), "mock-fail", PaymentRequest{
		OrderNumber: "ORD-1001",
		Amount:      2500,
		Currency:    "TWD",
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, StatusFailed, resp.Status)
	assert.Equal(t, "ORD-1001", resp.OrderNumber)
	assert.Contains(t, resp.ErrorMessage, "gateway timeout")
}

func TestPaymentService_CreatePayment_NilResponseBecomesFailedResponse(t *testing.T) {
	service := newServiceWith(t, "mock-nil", &mockProvider{})

	resp, err := service.CreatePayment(context.Background(), "mock-nil", PaymentRequest{
		OrderNumber: "ORD-1002",
		Amount:      100,
		Currency:    "TWD",
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, StatusFailed, resp.Status)
}

func TestPaymentService_CreatePayment_UnknownProvider(t *testing.T) {
	service := NewPaymentService()

	resp, err := service.CreatePayment(context.Background(), "nope", PaymentRequest{})
	assert.ErrorIs(t, err, ErrProviderNotRegistered)
	assert.Nil(t, resp)
}

func TestPaymentService_ConfirmPayment_Success(t *testing.T) {
	mock := &mockProvider{response: &PaymentResponse{
		Provider:      "mock-confirm",
		Status:        StatusSuccess,
		OrderNumber:   "ORD-2001",
		TransactionID: "2021121600000001",
		Amount:        1800,
		Currency:      "TWD",
	}}
	service := newServiceWith(t, "mock-confirm", mock)

	resp, err := service.ConfirmPayment(context.Background(), "mock-confirm", PaymentConfirm{
		TransactionID: "2021121600000001",
		OrderNumber:   "ORD-2001",
	})
	require.NoError(t, err)
	assert.True(t, resp.Succeeded())
	assert.Equal(t, int64(1800), resp.Amount)
}

func TestPaymentService_ParseCallback_VerificationErrorPropagates(t *testing.T) {
	service := newServiceWith(t, "mock-cb", &mockProvider{callbackErr: errors.New("checksum mismatch")})

	resp, err := service.ParseCallback("mock-cb", map[string]string{"MerchantTradeNo": "x"})
	assert.Error(t, err)
	assert.Nil(t, resp)
}

func TestPaymentService_RefundPayment_Passthrough(t *testing.T) {
	mock := &mockProvider{response: &PaymentResponse{
		Provider:    "mock-refund",
		Status:      StatusProcessing,
		OrderNumber: "ORD-3001",
		Amount:      500,
	}}
	service := newServiceWith(t, "mock-refund", mock)

	resp, err := service.RefundPayment(context.Background(), "mock-refund", RefundRequest{
		OrderNumber:   "ORD-3001",
		TransactionID: "tx-3001",
		Amount:        500,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, resp.Status)
}
