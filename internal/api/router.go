// Package api provides the HTTP API for the lobbylog device registry.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/lobbylog/lobbylog/internal/api/handler"
	"github.com/lobbylog/lobbylog/internal/api/middleware"
	"github.com/lobbylog/lobbylog/internal/auth"
	"github.com/lobbylog/lobbylog/internal/registry"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version      string
	BuildTime    string
	Logger       zerolog.Logger
	Metrics      *middleware.Metrics
	TokenService *auth.TokenService
	Registry     *registry.Service
	DB           handler.Pinger
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing())
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.DB)
	deviceHandler := handler.NewDeviceHandler(cfg.Registry)
	frequentHandler := handler.NewFrequentComputerHandler(cfg.Registry)

	authMiddleware := middleware.Auth(cfg.TokenService)
	writeRateLimit := middleware.RateLimitByOperator(middleware.WriteRateLimit)
	readRateLimit := middleware.RateLimitByIP(middleware.ReadRateLimit)

	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
		})

		r.Route("/devices", func(r chi.Router) {
			// Listings and lookups
			r.Group(func(r chi.Router) {
				r.Use(readRateLimit)
				r.Get("/computers", deviceHandler.ListComputers)
				r.Get("/medical", deviceHandler.ListMedicalDevices)
				r.Get("/entered", deviceHandler.ListEntered)
				r.Get("/{deviceId}/entered", deviceHandler.GetEnteredStatus)
			})

			// Check-ins and check-outs (operator token required)
			r.Group(func(r chi.Router) {
				r.Use(authMiddleware)
				r.Use(writeRateLimit)
				r.Post("/computers", deviceHandler.CheckinComputer)
				r.Post("/medical", deviceHandler.CheckinMedicalDevice)
				r.Post("/{deviceId}/checkout", deviceHandler.CheckoutDevice)
			})
		})

		r.Route("/frequent-computers", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(readRateLimit)
				r.Get("/", frequentHandler.List)
				r.Get("/{deviceId}/registered", frequentHandler.GetRegisteredStatus)
			})

			r.Group(func(r chi.Router) {
				r.Use(authMiddleware)
				r.Use(writeRateLimit)
				r.Post("/", frequentHandler.Register)
				r.Post("/{deviceId}/checkin", frequentHandler.Checkin)
			})
		})
	})

	return r
}
