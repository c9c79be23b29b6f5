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
	"github.com/motorlog/motorlog-backend/internal/docprocessing/vindecode"
	"github.com/motorlog/motorlog-backend/internal/vehicle/consumers"
	"github.com/motorlog/motorlog-backend/internal/vehicle/events"
	"github.com/motorlog/motorlog-backend/internal/vehicle/handler"
	"github.com/motorlog/motorlog-backend/internal/vehicle/repository"
	"github.com/motorlog/motorlog-backend/internal/vehicle/service"
	"github.com/motorlog/motorlog-backend/pkg/config"
	"github.com/motorlog/motorlog-backend/pkg/database"
	"github.com/motorlog/motorlog-backend/pkg/httputil"
	"github.com/motorlog/motorlog-backend/pkg/logger"
	"github.com/motorlog/motorlog-backend/pkg/messaging"
)

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation("vehicle-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("vehicle-service", cfg.Server.Environment)
	log.Info().Msg("starting Vehicle Service")

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
	publisher, err := events.NewVehicleEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// Initialize repositories
	vehicleRepo := repository.NewVehicleRepository(db)
	garageRepo := repository.NewGarageRepository(db)

	// VIN decode client for attach-by-VIN
	decoder := vindecode.NewClient(&cfg.Decode)

	// Initialize service
	vehicleService := service.NewVehicleService(vehicleRepo, garageRepo, decoder, publisher, log)

	// Initialize handlers
	vehicleHandler := handler.NewVehicleHandler(vehicleService, log)
	garageHandler := handler.NewGarageHandler(vehicleService, log)

	// Start document event consumer
	docConsumer, err := consumers.NewDocumentEventConsumer(rmq, vehicleService, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create document event consumer")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := docConsumer.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start document event consumer")
	}

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
			"service":  "vehicle-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	// API routes
	r.Route("/api/v1/vehicles", func(r chi.Router) {
		vehicleHandler.Routes(r)
	})
	r.Route("/api/v1/garages", func(r chi.Router) {
		garageHandler.Routes(r)
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

	// Cancel context to stop consumers
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
