package v1

import (
	"github.com/go-chi/chi/v5"

	"github.com/ordermesh/paygate/callback"
	"github.com/ordermesh/paygate/handler"
	"github.com/ordermesh/paygate/infra/config"
	"github.com/ordermesh/paygate/infra/opensearch"
	"github.com/ordermesh/paygate/order"
	"github.com/ordermesh/paygate/provider"
)

// Routes registers the authenticated management API under /v1. The
// OpenSearch logger may be nil; the search endpoints then answer 503.
func Routes(r chi.Router, paymentService *provider.PaymentService, orders order.Repository, audit callback.AuditLog, osLogger *opensearch.Logger) {
	validate := config.App().Validator

	paymentHandler := handler.NewPaymentHandler(paymentService, orders, validate)
	logsHandler := handler.NewLogsHandler(audit, osLogger)
	analyticsHandler := handler.NewAnalyticsHandler(callback.NewReporter(audit), osLogger)

	// Payment routes
	r.Route("/payments", func(r chi.Router) {
		r.Post("/{provider}", paymentHandler.CreatePayment)
		r.Get("/{provider}/status/{transactionID}", paymentHandler.GetPaymentStatus)
		r.Delete("/{provider}/{transactionID}", paymentHandler.CancelPayment)
		r.Post("/{provider}/refund", paymentHandler.RefundPayment)
	})

	// Order lookup with its payment ledger
	r.Get("/orders/{orderNumber}", paymentHandler.GetOrder)

	// Registered providers
	r.Get("/providers", paymentHandler.ListProviders)

	// Callback audit trail
	// GET /v1/logs?provider=ecpay&transactionId=...&outcome=rejected&hours=24
	r.Route("/logs", func(r chi.Router) {
		r.Get("/", logsHandler.ListLogs)

		// OpenSearch-backed search over the mirrored documents
		r.Get("/search/{provider}/order/{orderNumber}", logsHandler.SearchOrderCallbacks)
		r.Get("/search/{provider}/rejected", logsHandler.SearchRejectedCallbacks)
	})

	// Per-provider callback statistics
	// GET /v1/analytics?hours=24
	r.Route("/analytics", func(r chi.Router) {
		r.Get("/", analyticsHandler.GetSummary)
		r.Get("/providers/{provider}", analyticsHandler.GetProviderStats)
	})
}
