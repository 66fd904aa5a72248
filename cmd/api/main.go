// Package main provides the entrypoint for the lobbylog API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/lobbylog/lobbylog/internal/api"
	"github.com/lobbylog/lobbylog/internal/api/middleware"
	"github.com/lobbylog/lobbylog/internal/auth"
	"github.com/lobbylog/lobbylog/internal/capability"
	"github.com/lobbylog/lobbylog/internal/database"
	"github.com/lobbylog/lobbylog/internal/events"
	"github.com/lobbylog/lobbylog/internal/photo"
	"github.com/lobbylog/lobbylog/internal/registry"
	"github.com/lobbylog/lobbylog/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "lobbylog-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting lobbylog API")

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        telemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryEnabled {
		log.Info().
			Str("otlp_endpoint", otlpEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", dbConfig.Host).
		Int("port", dbConfig.Port).
		Str("database", dbConfig.Database).
		Msg("database connected")

	repo := registry.NewPostgresRepository(pool, log)

	// Photo storage: S3-compatible when credentials are configured,
	// otherwise in-memory (photos are lost on restart).
	var photos photo.Storage
	photoConfig := photo.ConfigFromEnv()
	if photoConfig.AccessKey != "" {
		photos, err = photo.NewS3Storage(ctx, photoConfig)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize photo storage")
		}
		log.Info().Str("bucket", photoConfig.Bucket).Msg("photo storage initialized")
	} else {
		photos = photo.NewInMemoryStorage()
		log.Warn().Msg("no photo store credentials configured - storing photos in memory")
	}

	// Audit events: Pub/Sub when a project is configured.
	var publisher events.Publisher = events.NopPublisher{}
	if projectID := os.Getenv("PUBSUB_PROJECT_ID"); projectID != "" {
		topic := os.Getenv("PUBSUB_TOPIC")
		if topic == "" {
			topic = "device-audit"
		}
		pubsubPublisher, pubErr := events.NewPubSubPublisher(ctx, events.PubSubConfig{
			ProjectID: projectID,
			TopicName: topic,
		})
		if pubErr != nil {
			log.Fatal().Err(pubErr).Msg("failed to initialize audit publisher")
		}
		defer func() {
			if closeErr := pubsubPublisher.Close(); closeErr != nil {
				log.Error().Err(closeErr).Msg("failed to close audit publisher")
			}
		}()
		publisher = pubsubPublisher
		log.Info().Str("topic", topic).Msg("audit publisher initialized")
	} else {
		log.Warn().Msg("no Pub/Sub project configured - audit events are discarded")
	}

	registryService := registry.NewService(registry.ServiceConfig{
		Repository:   repo,
		Photos:       photos,
		Capabilities: capability.NewClient(capability.DefaultClientConfig()),
		Events:       publisher,
		Logger:       log,
	})
	log.Info().Msg("registry service initialized")

	// Operator tokens (get signing key from environment)
	signingKey := os.Getenv("JWT_SIGNING_KEY")
	if signingKey == "" {
		signingKey = "local-dev-signing-key-change-in-production"
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}
	tokenService := auth.NewTokenService(auth.TokenConfig{
		SigningKey: signingKey,
		Issuer:     "https://api.lobbylog.io",
		Audience:   "lobbylog-api",
	})

	router := api.NewRouter(api.RouterConfig{
		Version:      Version,
		BuildTime:    BuildTime,
		Logger:       log,
		Metrics:      metrics,
		TokenService: tokenService,
		Registry:     registryService,
		DB:           pool,
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
