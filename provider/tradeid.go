package provider

import (
	"errors"
	"fmt"
	"time"
)

// Gateways cap the merchant-assigned trade number well below the store's
// order-number format, and the value must differ between checkout attempts
// for the same order. The trade id is the order number with a fixed-width
// slice of the current unix milliseconds appended; on callback the suffix
// is stripped to recover the order number.
const (
	// TradeIDMaxLen is the tightest merchant trade number ceiling among
	// the integrated gateways.
	TradeIDMaxLen = 20

	// tradeIDSuffixLen must be identical at generation and recovery time.
	tradeIDSuffixLen = 4
)

// ErrOrderNumberTooLong is returned instead of silently truncating the
// order number. A truncated trade id cannot be recovered back to the exact
// order number, which turns a rejected payment into a mis-credited one.
var ErrOrderNumberTooLong = errors.New("order number too long for gateway trade id")

// ErrTradeIDTooShort indicates the callback carried a trade id shorter
// than the suffix, which no generator of ours could have produced.
var ErrTradeIDTooShort = errors.New("trade id shorter than attempt suffix")

// GenerateTradeID derives the gateway-facing trade identifier for one
// checkout attempt. Calling it again for the same order yields a different
// id, so a retried checkout never collides with its earlier attempt.
func GenerateTradeID(orderNumber string) (string, error) {
	return generateTradeID(orderNumber, time.Now())
}

func generateTradeID(orderNumber string, now time.Time) (string, error) {
	if orderNumber == "" {
		return "", errors.New("order number is empty")
	}
	if len(orderNumber)+tradeIDSuffixLen > TradeIDMaxLen {
		return "", fmt.Errorf("%w: %q is %d chars, max %d",
			ErrOrderNumberTooLong, orderNumber, len(orderNumber), TradeIDMaxLen-tradeIDSuffixLen)
	}

	millis := now.UnixMilli()
	suffix := fmt.Sprintf("%04d", millis%10000)
	return orderNumber + suffix, nil
}

// RecoverOrderNumber strips the attempt suffix from a trade id that came
// back in a provider callback.
func RecoverOrderNumber(tradeID string) (string, error) {
	if len(tradeID) <= tradeIDSuffixLen {
		return "", fmt.Errorf("%w: %q", ErrTradeIDTooShort, tradeID)
	}
	return tradeID[:len(tradeID)-tradeIDSuffixLen], nil
}
