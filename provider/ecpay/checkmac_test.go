package ecpay

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
)

const (
	testHashKey = "5294y06JbISpM5x9"
	testHashIV  = "v77hoKGq4kWxNNIS"
)

func testParams() map[string]string {
	return map[string]string{
		"MerchantID":      "2000132",
		"MerchantTradeNo": "ORD2025010100011234",
		"TradeAmt":        "1000",
		"RtnCode":         "1",
		"RtnMsg":          "Succeeded",
		"TradeNo":         "2501011234567890",
		"PaymentDate":     "2025/01/01 12:00:00",
	}
}

func TestGenerateCheckMac_Deterministic(t *testing.T) {
	params := testParams()
	first := GenerateCheckMac(params, testHashKey, testHashIV)
	second := GenerateCheckMac(params, testHashKey, testHashIV)

	if first != second {
		t.Errorf("GenerateCheckMac() not deterministic: %s != %s", first, second)
	}
	if len(first) != 64 {
		t.Errorf("expected 64-char hex digest, got %d chars", len(first))
	}
	if first != strings.ToUpper(first) {
		t.Errorf("digest must be upper-case hex, got %s", first)
	}
}

func TestGenerateCheckMac_KnownAnswer(t *testing.T) {
	// Recompute the steps by hand for a two-parameter bag to pin the
	// canonical encoding: sorted keys, secret wrapping, percent-encoding
	// with space as %20, lower-casing before the digest.
	params := map[string]string{
		"B": "hello world",
		"a": "1",
	}

	raw := "HashKey=" + testHashKey + "&a=1&B=hello world&HashIV=" + testHashIV
	encoded := strings.ToLower(strings.ReplaceAll(raw, " ", "%20"))
	encoded = strings.ReplaceAll(encoded, "=", "%3d")
	encoded = strings.ReplaceAll(encoded, "&", "%26")
	sum := sha256.Sum256([]byte(encoded))
	want := strings.ToUpper(hex.EncodeToString(sum[:]))

	got := GenerateCheckMac(params, testHashKey, testHashIV)
	if got != want {
		t.Errorf("GenerateCheckMac() = %s, want %s", got, want)
	}
}

func TestGenerateCheckMac_SortIsCaseInsensitive(t *testing.T) {
	// "a" must sort before "B" despite 'B' < 'a' in byte order.
	params := map[string]string{"a": "1", "B": "2"}
	swapped := map[string]string{"B": "2", "a": "1"}

	if GenerateCheckMac(params, testHashKey, testHashIV) != GenerateCheckMac(swapped, testHashKey, testHashIV) {
		t.Error("map iteration order leaked into the digest")
	}
}

func TestGenerateCheckMac_EmptyValueParticipates(t *testing.T) {
	with := map[string]string{"A": "1", "B": ""}
	without := map[string]string{"A": "1"}

	if GenerateCheckMac(with, testHashKey, testHashIV) == GenerateCheckMac(without, testHashKey, testHashIV) {
		t.Error("empty parameter value must still participate in the signing string")
	}
}

func TestVerifyCheckMac_RoundTrip(t *testing.T) {
	params := testParams()
	params[checkMacParam] = GenerateCheckMac(params, testHashKey, testHashIV)

	if err := VerifyCheckMac(params, testHashKey, testHashIV); err != nil {
		t.Errorf("VerifyCheckMac() after signing = %v, want nil", err)
	}
}

func TestVerifyCheckMac_CaseInsensitiveCompare(t *testing.T) {
	params := testParams()
	params[checkMacParam] = strings.ToLower(GenerateCheckMac(params, testHashKey, testHashIV))

	if err := VerifyCheckMac(params, testHashKey, testHashIV); err != nil {
		t.Errorf("VerifyCheckMac() with lower-cased digest = %v, want nil", err)
	}
}

func TestVerifyCheckMac_TamperedValue(t *testing.T) {
	for key := range testParams() {
		params := testParams()
		params[checkMacParam] = GenerateCheckMac(params, testHashKey, testHashIV)
		params[key] = params[key] + "x"

		if err := VerifyCheckMac(params, testHashKey, testHashIV); !errors.Is(err, ErrInvalidCheckMac) {
			t.Errorf("mutating %q after signing: VerifyCheckMac() = %v, want ErrInvalidCheckMac", key, err)
		}
	}
}

func TestVerifyCheckMac_WrongSecret(t *testing.T) {
	params := testParams()
	params[checkMacParam] = GenerateCheckMac(params, "wrong-key", testHashIV)

	if err := VerifyCheckMac(params, testHashKey, testHashIV); !errors.Is(err, ErrInvalidCheckMac) {
		t.Errorf("VerifyCheckMac() with wrong secret = %v, want ErrInvalidCheckMac", err)
	}
}

func TestVerifyCheckMac_MissingCheckMac(t *testing.T) {
	if err := VerifyCheckMac(testParams(), testHashKey, testHashIV); !errors.Is(err, ErrInvalidCheckMac) {
		t.Errorf("VerifyCheckMac() without CheckMacValue = %v, want ErrInvalidCheckMac", err)
	}
}

func TestURLEncode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "Space is percent-twenty", in: "a b", want: "a%20b"},
		{name: "Unreserved survive", in: "a-b_c.d!e*f(g)", want: "a-b_c.d!e*f(g)"},
		{name: "Reserved encoded", in: "k=v&x", want: "k%3Dv%26x"},
		{name: "Slash and colon", in: "https://x", want: "https%3A%2F%2Fx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := urlEncode(tt.in); got != tt.want {
				t.Errorf("urlEncode(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
