package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/ordermesh/paygate/callback"
	"github.com/ordermesh/paygate/handler"
	"github.com/ordermesh/paygate/infra/config"
	"github.com/ordermesh/paygate/infra/conn"
	"github.com/ordermesh/paygate/infra/events"
	"github.com/ordermesh/paygate/infra/logger"
	"github.com/ordermesh/paygate/infra/middle"
	"github.com/ordermesh/paygate/infra/opensearch"
	"github.com/ordermesh/paygate/infra/response"
	"github.com/ordermesh/paygate/order"
	"github.com/ordermesh/paygate/provider"
	"github.com/ordermesh/paygate/router"
)

var (
	PORT             string
	openSearchLogger *opensearch.Logger
)

func init() {
	// Load Env
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Load Env: %v (falling back to process environment)", err)
	}
	// init conf
	cfg := config.App()

	PORT = cfg.AppPort

	// Initialize OpenSearch client and logger
	if cfg.EnableOpenSearch {
		osClient, err := opensearch.NewClient(cfg)
		if err != nil {
			log.Printf("Failed to initialize OpenSearch client: %v", err)
			log.Println("Continuing without OpenSearch mirroring...")
		} else {
			openSearchLogger = opensearch.NewLogger(osClient)
			log.Println("OpenSearch callback mirroring initialized")
		}
	} else {
		log.Println("OpenSearch callback mirroring is disabled")
	}

	logger.InitGlobalLogger(openSearchLogger)
}

func main() {
	cfg := config.App()

	// Database
	db := &conn.DB{}
	db.ConnectDatabase()
	defer db.CloseDatabase()

	// Event publisher (disabled when NATS_URL is unset)
	publisher, err := events.Connect()
	if err != nil {
		log.Printf("Failed to connect event publisher: %v", err)
		log.Println("Continuing without payment events...")
	}
	defer publisher.Close()

	// Provider registration
	paymentService := provider.NewPaymentService()
	providerConfig := config.NewProviderConfig()
	defer providerConfig.Close()
	providerConfig.LoadFromEnv()

	for _, providerName := range providerConfig.GetAvailableProviders() {
		providerCfg, err := providerConfig.GetConfig(providerName)
		if err != nil {
			log.Printf("Failed to get configuration for provider %s: %v", providerName, err)
			continue
		}

		applyCallbackURLs(providerName, providerCfg, cfg)

		if err := paymentService.AddProvider(providerName, providerCfg); err != nil {
			log.Printf("Failed to register provider %s: %v", providerName, err)
			continue
		}
		log.Printf("Registered payment provider: %s", providerName)
	}

	availableProviders := paymentService.ProviderNames()
	if len(availableProviders) > 0 {
		if err := paymentService.SetDefaultProvider(availableProviders[0]); err != nil {
			log.Printf("Failed to set default provider: %v", err)
		} else {
			log.Printf("Default payment provider set to: %s", availableProviders[0])
		}
	} else {
		log.Println("No payment providers configured!")
	}

	// Domain wiring
	orders := order.NewRepository(db.DB)
	audit := callback.NewPostgresAuditLog(db.DB)
	processor := callback.NewProcessor(orders, audit, publisher, openSearchLogger)

	callbackHandler := handler.NewCallbackHandler(paymentService, processor, cfg.Validator)
	healthHandler := handler.NewHealthHandler(db.DB, paymentService)

	// Chi Define Routes
	r := chi.NewRouter()

	// Basic Middleware
	r.Use(middleware.RealIP)
	r.Use(middle.PanicRecoveryMiddleware())
	r.Use(middle.RequestLoggingMiddleware())
	r.Use(middleware.Timeout(60 * time.Second))

	// Security Middleware
	rateLimiter := middle.NewRateLimiter()
	r.Use(middle.SecurityHeadersMiddleware())
	r.Use(middle.IPWhitelistMiddleware())
	r.Use(middle.RateLimitMiddleware(rateLimiter))
	r.Use(middle.RequestValidationMiddleware())

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Origin", "X-Requested-With", "X-Request-ID"},
		ExposedHeaders:   []string{"Link", "Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300, // Preflight cache time (second)
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Check)
	r.Get("/health/live", healthHandler.Liveness)

	// Gateway callback routes (no auth required, gateways sign their own requests)
	r.Route("/callback", func(r chi.Router) {
		r.Post("/ecpay", callbackHandler.ECPayCallback)
		r.Post("/linepay/confirm", callbackHandler.LinePayConfirm)
	})

	// Authenticated management API
	router.Routes(r, paymentService, orders, audit, openSearchLogger)

	// Not Found
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = response.WriteJSON(w, http.StatusNotFound, response.Response{Success: false, Message: "Not Found"})
	})

	// Create a context that listens for interrupt and terminate signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", PORT),
		Handler:           r,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 60 * time.Second,
	}

	go func() {
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Fatal(err.Error())
		}
	}()

	log.Println("API is running on", PORT)

	// Block until a signal is received
	<-ctx.Done()

	log.Println("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
}

// applyCallbackURLs injects the URLs each gateway needs to reach us,
// derived from the public base URL unless overridden explicitly.
func applyCallbackURLs(providerName string, providerCfg map[string]string, cfg *config.AppConfig) {
	base := strings.TrimRight(cfg.BaseURL, "/")

	switch providerName {
	case provider.ProviderECPay:
		if providerCfg["returnURL"] == "" {
			if cfg.ReturnURL != "" {
				providerCfg["returnURL"] = cfg.ReturnURL
			} else {
				providerCfg["returnURL"] = base + "/callback/ecpay"
			}
		}
		if providerCfg["clientBackURL"] == "" && cfg.ClientBackURL != "" {
			providerCfg["clientBackURL"] = cfg.ClientBackURL
		}
	case provider.ProviderLinePay:
		if providerCfg["confirmURL"] == "" {
			providerCfg["confirmURL"] = base + "/callback/linepay/confirm"
		}
		if providerCfg["cancelURL"] == "" && cfg.ClientBackURL != "" {
			providerCfg["cancelURL"] = cfg.ClientBackURL
		}
	}
}
