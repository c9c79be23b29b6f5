package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/motorlog/motorlog-backend/internal/docprocessing/events"
	"github.com/motorlog/motorlog-backend/internal/docprocessing/handler"
	"github.com/motorlog/motorlog-backend/internal/docprocessing/processor"
	"github.com/motorlog/motorlog-backend/internal/docprocessing/repository"
	"github.com/motorlog/motorlog-backend/internal/docprocessing/service"
	"github.com/motorlog/motorlog-backend/internal/docprocessing/storage"
	"github.com/motorlog/motorlog-backend/internal/docprocessing/vindecode"
	"github.com/motorlog/motorlog-backend/internal/docprocessing/vision"
	"github.com/motorlog/motorlog-backend/pkg/config"
	"github.com/motorlog/motorlog-backend/pkg/database"
	"github.com/motorlog/motorlog-backend/pkg/httputil"
	"github.com/motorlog/motorlog-backend/pkg/logger"
	"github.com/motorlog/motorlog-backend/pkg/messaging"
)

// Captures are held in memory long enough for the client to fetch the
// result and confirm it; they are never persisted.
const captureTTL = 30 * time.Minute

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation("document-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("document-service", cfg.Server.Environment)
	log.Info().Msg("starting Document Service")

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	// Initialize event publisher
	publisher, err := events.NewDocumentEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// Upstream clients
	visionClient := vision.NewClient(&cfg.Vision)
	decoder := vindecode.NewClient(&cfg.Decode)

	// Processor registry with every supported document kind
	registry := processor.NewDefaultRegistry(decoder)

	// Capture store and audit trail
	store := storage.NewCaptureStore(captureTTL)
	auditRepo := repository.NewAuditRepository(db)

	// Initialize service
	docService := service.NewService(registry, visionClient, store, auditRepo, publisher, log)

	// Initialize handler
	docHandler := handler.NewHandler(docService, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(httputil.UserContext)

	// CORS for the web client
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-User-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "document-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	// API routes
	r.Route("/api/v1/documents", func(r chi.Router) {
		docHandler.Routes(r)
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
