package linepay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ordermesh/paygate/provider"
)

func TestLinePayProvider_Initialize(t *testing.T) {
	tests := []struct {
		name    string
		config  map[string]string
		wantErr bool
	}{
		{
			name: "Valid configuration",
			config: map[string]string{
				"channelId":     "1654321987",
				"channelSecret": "test-secret",
				"confirmURL":    "https://shop.example.com/payment/linepay/confirm",
				"environment":   "sandbox",
			},
			wantErr: false,
		},
		{
			name: "Missing channel ID",
			config: map[string]string{
				"channelSecret": "test-secret",
				"confirmURL":    "https://shop.example.com/payment/linepay/confirm",
			},
			wantErr: true,
		},
		{
			name: "Missing channel secret",
			config: map[string]string{
				"channelId":  "1654321987",
				"confirmURL": "https://shop.example.com/payment/linepay/confirm",
			},
			wantErr: true,
		},
		{
			name: "Missing confirm URL",
			config: map[string]string{
				"channelId":     "1654321987",
				"channelSecret": "test-secret",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProvider()
			err := p.Initialize(tt.config)

			if (err != nil) != tt.wantErr {
				t.Errorf("Initialize() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func newTestProvider(t *testing.T, handler http.Handler) *LinePayProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p := NewProvider()
	err := p.Initialize(map[string]string{
		"channelId":     "1654321987",
		"channelSecret": "test-secret",
		"confirmURL":    "https://shop.example.com/payment/linepay/confirm",
		"environment":   "sandbox",
		"apiURL":        server.URL,
	})
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return p.(*LinePayProvider)
}

func TestLinePayProvider_CreatePayment(t *testing.T) {
	var gotAuth, gotNonce, gotChannel string
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get(headerAuthorization)
		gotNonce = r.Header.Get(headerNonce)
		gotChannel = r.Header.Get(headerChannelID)

		fmt.Fprint(w, `{
			"returnCode": "0000",
			"returnMessage": "Success.",
			"info": {
				"transactionId": 2025010112345678901,
				"paymentUrl": {"web": "https://sandbox-web-pay.line.me/web/payment/wait?t=abc"}
			}
		}`)
	}))

	resp, err := p.CreatePayment(context.Background(), provider.PaymentRequest{
		OrderNumber: "ORD202501010001",
		Amount:      1000,
		Currency:    "TWD",
	})
	if err != nil {
		t.Fatalf("CreatePayment() error = %v", err)
	}

	if resp.Status != provider.StatusInitiated {
		t.Errorf("Status = %s, want %s", resp.Status, provider.StatusInitiated)
	}
	if resp.TransactionID != "2025010112345678901" {
		t.Errorf("TransactionID = %s, want 2025010112345678901", resp.TransactionID)
	}
	if resp.PaymentURL == "" {
		t.Error("PaymentURL is empty")
	}
	if gotChannel != "1654321987" {
		t.Errorf("channel header = %s", gotChannel)
	}
	if gotAuth == "" || gotNonce == "" {
		t.Error("authorization/nonce headers missing")
	}
}

func TestLinePayProvider_CreatePayment_Rejected(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"returnCode": "1104", "returnMessage": "Merchant not found."}`)
	}))

	resp, err := p.CreatePayment(context.Background(), provider.PaymentRequest{
		OrderNumber: "ORD202501010001",
		Amount:      1000,
		Currency:    "TWD",
	})
	if err != nil {
		t.Fatalf("CreatePayment() error = %v", err)
	}

	if resp.Status != provider.StatusFailed {
		t.Errorf("Status = %s, want %s", resp.Status, provider.StatusFailed)
	}
	if resp.ErrorMessage == "" {
		t.Error("ErrorMessage is empty for rejected request")
	}
}

func TestLinePayProvider_CreatePayment_TransportError(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	resp, err := p.CreatePayment(context.Background(), provider.PaymentRequest{
		OrderNumber: "ORD202501010001",
		Amount:      1000,
		Currency:    "TWD",
	})
	if err != nil {
		t.Fatalf("transport errors must not escape the adapter, got %v", err)
	}
	if resp.Status != provider.StatusFailed {
		t.Errorf("Status = %s, want %s", resp.Status, provider.StatusFailed)
	}
}

func TestLinePayProvider_GetPaymentStatus_Mapping(t *testing.T) {
	tests := []struct {
		payStatus string
		want      provider.PaymentStatus
	}{
		{payStatus: payStatusAuthorization, want: provider.StatusSuccess},
		{payStatus: payStatusCapture, want: provider.StatusSuccess},
		{payStatus: payStatusVoided, want: provider.StatusCancelled},
		{payStatus: payStatusExpired, want: provider.StatusExpired},
		{payStatus: "SOMETHING_ELSE", want: provider.StatusProcessing},
	}

	for _, tt := range tests {
		t.Run(tt.payStatus, func(t *testing.T) {
			p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]any{
					"returnCode":    "0000",
					"returnMessage": "Success.",
					"info": []map[string]any{
						{
							"transactionId": 2025010112345678901,
							"orderId":       "ORD202501010001",
							"payStatus":     tt.payStatus,
							"amount":        1000,
							"currency":      "TWD",
						},
					},
				})
			}))

			resp, err := p.GetPaymentStatus(context.Background(), "2025010112345678901")
			if err != nil {
				t.Fatalf("GetPaymentStatus() error = %v", err)
			}
			if resp.Status != tt.want {
				t.Errorf("Status = %s, want %s", resp.Status, tt.want)
			}
			if resp.OrderNumber != "ORD202501010001" {
				t.Errorf("OrderNumber = %s", resp.OrderNumber)
			}
		})
	}
}

func TestLinePayProvider_ConfirmPayment(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			// Reservation lookup before confirm.
			fmt.Fprint(w, `{
				"returnCode": "0000",
				"returnMessage": "Success.",
				"info": [{"transactionId": 2025010112345678901, "orderId": "ORD202501010001", "payStatus": "AUTHORIZATION", "amount": 1000, "currency": "TWD"}]
			}`)
			return
		}
		fmt.Fprint(w, `{"returnCode": "0000", "returnMessage": "Success."}`)
	}))

	resp, err := p.ConfirmPayment(context.Background(), provider.PaymentConfirm{
		TransactionID: "2025010112345678901",
		OrderNumber:   "ORD202501010001",
	})
	if err != nil {
		t.Fatalf("ConfirmPayment() error = %v", err)
	}

	if resp.Status != provider.StatusSuccess {
		t.Errorf("Status = %s, want %s", resp.Status, provider.StatusSuccess)
	}
	if resp.Amount != 1000 {
		t.Errorf("Amount = %d, want 1000 (echoed from reservation)", resp.Amount)
	}
}

func TestLinePayProvider_ConfirmPayment_OrderMismatch(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"returnCode": "0000",
			"returnMessage": "Success.",
			"info": [{"transactionId": 2025010112345678901, "orderId": "ORD202501019999", "payStatus": "AUTHORIZATION", "amount": 1000, "currency": "TWD"}]
		}`)
	}))

	resp, err := p.ConfirmPayment(context.Background(), provider.PaymentConfirm{
		TransactionID: "2025010112345678901",
		OrderNumber:   "ORD202501010001",
	})
	if err != nil {
		t.Fatalf("ConfirmPayment() error = %v", err)
	}
	if resp.Status != provider.StatusFailed {
		t.Errorf("Status = %s, want %s for order mismatch", resp.Status, provider.StatusFailed)
	}
}

func TestLinePayProvider_ParseCallback(t *testing.T) {
	p := NewProvider()
	if _, err := p.ParseCallback(map[string]string{"transactionId": "1"}); err == nil {
		t.Error("ParseCallback() must refuse: the redirect is not a verifiable callback")
	}
}
