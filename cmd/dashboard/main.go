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

	"github.com/medflow/medflow-dispensary/internal/dashboard/client"
	"github.com/medflow/medflow-dispensary/internal/dashboard/events"
	"github.com/medflow/medflow-dispensary/internal/dashboard/handler"
	"github.com/medflow/medflow-dispensary/internal/dashboard/repository"
	"github.com/medflow/medflow-dispensary/internal/dashboard/service"
	"github.com/medflow/medflow-dispensary/internal/dosage"
	"github.com/medflow/medflow-dispensary/pkg/config"
	"github.com/medflow/medflow-dispensary/pkg/database"
	"github.com/medflow/medflow-dispensary/pkg/httputil"
	"github.com/medflow/medflow-dispensary/pkg/i18n"
	"github.com/medflow/medflow-dispensary/pkg/logger"
	"github.com/medflow/medflow-dispensary/pkg/messaging"
	"github.com/medflow/medflow-dispensary/pkg/metrics"
)

const serviceName = "dashboard"

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(serviceName, cfg.Server.Environment)
	log.Info().Str("upstream", cfg.Upstream.BaseURL).Msg("starting dispensary dashboard")

	catalog, err := dosage.LoadCatalog(cfg.Dashboard.CatalogPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load medication catalog")
	}

	var (
		reg         *metrics.Registry
		upstreamObs *metrics.Upstream
	)
	if cfg.Metrics.Enabled {
		reg = metrics.New()
		upstreamObs = reg.Upstream
	}

	loc := cfg.Dashboard.Location()
	inventory := client.NewInventoryClient(cfg.Upstream.BaseURL, cfg.Upstream.Timeout, log, upstreamObs)

	var opts []service.Option

	// Audit trail (optional)
	var db *database.DB
	if cfg.Database.Enabled {
		db, err = database.New(&cfg.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()

		auditRepo := repository.NewAuditRepository(db)
		if err := auditRepo.EnsureSchema(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("failed to prepare audit schema")
		}
		opts = append(opts, service.WithAudit(auditRepo))
	}

	// Threshold events (optional)
	var rmq *messaging.RabbitMQ
	if cfg.RabbitMQ.Enabled {
		rmq, err = messaging.New(&cfg.RabbitMQ, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer rmq.Close()

		publisher, err := events.NewThresholdEventPublisher(rmq, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create event publisher")
		}
		opts = append(opts, service.WithEvents(publisher))
	}

	dashboardService := service.NewDashboardService(inventory, loc, log, opts...)

	dashboardHandler, err := handler.NewDashboardHandler(dashboardService, catalog, log,
		handler.WithPageTracking(cfg.Dashboard.TrackPageViews))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create dashboard handler")
	}

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	if reg != nil {
		r.Use(reg.Middleware)
	}
	r.Use(i18n.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]interface{}{
			"status":  "healthy",
			"service": serviceName,
		}
		if db != nil {
			status["database"] = db.Health(r.Context())
		}
		if rmq != nil {
			status["rabbitmq"] = rmq.Health()
		}
		httputil.JSON(w, http.StatusOK, status)
	})

	if reg != nil {
		r.Handle(cfg.Metrics.Path, reg.Handler())
	}
	if cfg.Server.IsDevelopment() {
		r.Mount("/debug", middleware.Profiler())
	}

	r.Group(func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", "Accept-Language"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
		r.Mount("/api/v1", dashboardHandler.APIRoutes())
	})

	r.Mount("/", dashboardHandler.Routes())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Str("time_zone", loc.String()).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
