package router

import (
	"github.com/go-chi/chi/v5"

	"github.com/ordermesh/paygate/callback"
	"github.com/ordermesh/paygate/infra/middle"
	"github.com/ordermesh/paygate/infra/opensearch"
	"github.com/ordermesh/paygate/order"
	"github.com/ordermesh/paygate/provider"
	v1 "github.com/ordermesh/paygate/router/v1"

	// Import for side-effect registration
	_ "github.com/ordermesh/paygate/provider/ecpay"
	_ "github.com/ordermesh/paygate/provider/linepay"
)

// Routes mounts the management API. Callback endpoints are wired separately
// in main because gateways cannot send an API key.
func Routes(r chi.Router, paymentService *provider.PaymentService, orders order.Repository, audit callback.AuditLog, osLogger *opensearch.Logger) {
	r.Route("/v1", func(r chi.Router) {
		r.Use(middle.AuthMiddleware())

		v1.Routes(r, paymentService, orders, audit, osLogger)
	})
}
