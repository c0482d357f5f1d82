package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/safevoice/incident-intake/internal/alerts"
	"github.com/safevoice/incident-intake/internal/archive"
	"github.com/safevoice/incident-intake/internal/config"
	"github.com/safevoice/incident-intake/internal/digest"
	"github.com/safevoice/incident-intake/internal/identity"
	"github.com/safevoice/incident-intake/internal/reports"
	"github.com/safevoice/incident-intake/internal/scheduler"
	"github.com/safevoice/incident-intake/internal/storage"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting incident intake service")

	// Initialize the case database
	pgStore, err := storage.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		logrus.Fatalf("Failed to initialize storage: %v", err)
	}
	defer pgStore.Close()

	var store storage.Store = pgStore
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		store = storage.NewCachedStore(pgStore, client, time.Duration(cfg.CacheTTLSeconds)*time.Second)
		logrus.Infof("Caching status lookups in Redis at %s", cfg.RedisAddr)
	}

	// Initialize the anonymized-record archive if configured
	var recordArchive archive.Interface
	if cfg.ArchiveAccount != "" {
		recordArchive, err = archive.NewAzureArchive(cfg.ArchiveAccount, cfg.ArchiveContainer)
		if err != nil {
			logrus.Fatalf("Failed to initialize archive: %v", err)
		}
	}

	// Initialize services
	resolver := identity.NewResolver(store, cfg.ContactHashSecret)
	alertClient := alerts.NewClient(cfg.AlertSchedulerURL)
	digestService := digest.NewService(cfg)

	reportsService := reports.NewService(cfg, store, resolver, alertClient, alerts.LogObserver{}, recordArchive, digestService)

	// Initialize scheduler
	schedulerService := scheduler.NewService(cfg, reportsService)

	// Start scheduler
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	// Set up HTTP server
	router := mux.NewRouter()

	// Health check endpoint
	router.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// Metrics endpoint
	router.HandleFunc("/metrics", metricsHandler(reportsService)).Methods("GET")

	// Intake endpoints
	router.HandleFunc("/api/reports", submitHandler(reportsService)).Methods("POST")
	router.HandleFunc("/api/reports/{token}/status", statusHandler(reportsService)).Methods("GET")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server in a goroutine
	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	// Create a deadline for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}

func metricsHandler(reportsService *reports.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metrics := reportsService.GetMetrics()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(metrics))
	}
}

func submitHandler(reportsService *reports.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reports.SubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := reportsService.Submit(r.Context(), &req)
		if err != nil {
			writeSubmitError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, result)
	}
}

func statusHandler(reportsService *reports.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := mux.Vars(r)["token"]

		result, err := reportsService.GetStatus(r.Context(), token)
		if err != nil {
			writeStatusError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

func writeSubmitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, reports.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, reports.ErrUnregisteredReporter):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, reports.ErrNoSubject):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		logrus.Errorf("Submission failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeStatusError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, reports.ErrInvalidToken):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, reports.ErrReportNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		logrus.Errorf("Status lookup failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
