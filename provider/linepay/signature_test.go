package linepay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"
)

func TestSign_KnownAnswer(t *testing.T) {
	secret := "a917ab6a2367b536f8e5a6e2977e06f4"
	path := "/v3/payments/request"
	payload := `{"amount":1000,"currency":"TWD"}`
	nonce := "c2f7fd82-9b2b-4a33-a1cf-5cbd6a1e4b10"

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(secret + path + payload + nonce))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if got := Sign(secret, path, payload, nonce); got != want {
		t.Errorf("Sign() = %s, want %s", got, want)
	}
}

func TestSign_InputSensitivity(t *testing.T) {
	base := Sign("secret", "/v3/payments/request", `{"amount":1}`, "nonce-1")

	tests := []struct {
		name    string
		secret  string
		path    string
		payload string
		nonce   string
	}{
		{name: "Different secret", secret: "secret2", path: "/v3/payments/request", payload: `{"amount":1}`, nonce: "nonce-1"},
		{name: "Different path", secret: "secret", path: "/v3/payments/confirm", payload: `{"amount":1}`, nonce: "nonce-1"},
		{name: "Different payload", secret: "secret", path: "/v3/payments/request", payload: `{"amount":2}`, nonce: "nonce-1"},
		{name: "Different nonce", secret: "secret", path: "/v3/payments/request", payload: `{"amount":1}`, nonce: "nonce-2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if Sign(tt.secret, tt.path, tt.payload, tt.nonce) == base {
				t.Error("signature did not change when an input changed")
			}
		})
	}
}

func TestSign_Deterministic(t *testing.T) {
	a := Sign("secret", "/path", "payload", "nonce")
	b := Sign("secret", "/path", "payload", "nonce")
	if a != b {
		t.Errorf("Sign() not deterministic: %s != %s", a, b)
	}
}
