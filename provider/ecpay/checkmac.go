package ecpay

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// checkMacParam is the callback parameter carrying the signature itself.
// It never participates in the signing string.
const checkMacParam = "CheckMacValue"

// ErrInvalidCheckMac indicates the callback's CheckMacValue does not match
// the locally computed one. The callback must be treated as untrusted and
// no state transition may be applied.
var ErrInvalidCheckMac = errors.New("ecpay: invalid CheckMacValue")

// GenerateCheckMac computes the gateway's authentication code over a
// parameter bag:
//
//	sort keys case-insensitively, join as key=value with '&',
//	wrap with HashKey=...& ... &HashIV=..., percent-encode the whole
//	string, lower-case it, SHA-256, upper-case the hex digest.
//
// Empty parameter values still participate in the signing string.
func GenerateCheckMac(params map[string]string, hashKey, hashIV string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if strings.EqualFold(k, checkMacParam) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return strings.ToLower(keys[i]) < strings.ToLower(keys[j])
	})

	var sb strings.Builder
	sb.WriteString("HashKey=" + hashKey)
	for _, k := range keys {
		sb.WriteString("&" + k + "=" + params[k])
	}
	sb.WriteString("&HashIV=" + hashIV)

	encoded := strings.ToLower(urlEncode(sb.String()))
	digest := sha256.Sum256([]byte(encoded))
	return strings.ToUpper(hex.EncodeToString(digest[:]))
}

// VerifyCheckMac recomputes the authentication code over the callback
// parameters, excluding the received CheckMacValue, and compares it
// case-insensitively against the received one.
func VerifyCheckMac(params map[string]string, hashKey, hashIV string) error {
	received, ok := params[checkMacParam]
	if !ok || received == "" {
		return fmt.Errorf("%w: missing %s parameter", ErrInvalidCheckMac, checkMacParam)
	}

	expected := GenerateCheckMac(params, hashKey, hashIV)
	if !strings.EqualFold(received, expected) {
		return ErrInvalidCheckMac
	}
	return nil
}

// urlEncode percent-encodes per the gateway's reserved-character table.
// Space becomes %20 (never '+') and -_.!*() stay literal; anything else
// non-alphanumeric is %XX. A mismatch here makes signatures silently fail
// for any payload containing spaces.
func urlEncode(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			sb.WriteByte(c)
		case c == '-' || c == '_' || c == '.' || c == '!' || c == '*' || c == '(' || c == ')':
			sb.WriteByte(c)
		default:
			sb.WriteString(fmt.Sprintf("%%%02X", c))
		}
	}
	return sb.String()
}
