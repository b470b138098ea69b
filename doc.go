// Package paygate integrates an order-management backend with external
// payment gateways behind a single, standardized API. It owns the full
// payment lifecycle: creating the gateway redirect, verifying the
// asynchronous callback, transitioning the order exactly once, and keeping
// an append-only audit trail of every notification received.
//
// # Overview
//
// Each gateway speaks its own dialect: ECPay posts form-encoded callbacks
// sealed with a CheckMacValue checksum and expects a literal "1|OK" in
// reply, while LINE Pay signs JSON API calls with an HMAC header and
// requires an explicit confirm step. Paygate normalizes both behind the
// PaymentProvider interface so the order code never sees gateway-specific
// wire formats.
//
// # Architecture
//
// The payment flow follows this pattern:
//
//	┌─────────────────┐    ┌─────────────────┐    ┌─────────────────┐
//	│                 │    │                 │    │                 │
//	│  Order Backend  │◄──►│    Paygate      │◄──►│    Payment      │
//	│                 │    │                 │    │    Gateways     │
//	│                 │    │                 │    │                 │
//	└─────────────────┘    └─────────────────┘    └─────────────────┘
//
// # Supported Gateways
//
//   - ECPay: checksum-verified redirect checkout with server-to-server
//     result notifications
//   - LINE Pay: HMAC-signed request API with a reserve/confirm flow
//
// Manual payment methods (bank transfer, cash on pickup) are accepted as
// order payment methods but deliberately have no gateway adapter.
//
// # Callback Processing
//
// Gateways redeliver notifications until acknowledged, so the callback
// processor is idempotent: the first verified success callback transitions
// the order to paid, and every redelivery is acknowledged without touching
// state again. Unverifiable or forged callbacks are rejected, logged, and
// never change an order.
package paygate
