package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/keepitcut/booking-api/internal/api/router"
	"github.com/keepitcut/booking-api/internal/booking"
	appconfig "github.com/keepitcut/booking-api/internal/config"
	"github.com/keepitcut/booking-api/internal/meevo"
	"github.com/keepitcut/booking-api/internal/observability/metrics"
	"github.com/keepitcut/booking-api/pkg/logging"
)

func main() {
	// Best-effort .env load for local development.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting booking-api server",
		"env", cfg.Env,
		"port", cfg.Port,
		"location", cfg.LocationName,
		"location_id", cfg.MeevoLocationID,
		"version", booking.Version,
	)

	registry := prometheus.NewRegistry()
	bookingMetrics := metrics.NewBookingMetrics(registry)

	tokens := meevo.NewTokenSource(
		cfg.MeevoAuthURL,
		cfg.MeevoClientID,
		cfg.MeevoClientSecret,
		cfg.MeevoHTTPTimeout,
		logger,
		bookingMetrics,
	)
	meevoClient := meevo.NewClient(meevo.ClientConfig{
		APIURL:     cfg.MeevoAPIURL,
		TenantID:   cfg.MeevoTenantID,
		LocationID: cfg.MeevoLocationID,
		GenderCode: cfg.MeevoGenderCode,
		Timeout:    cfg.MeevoHTTPTimeout,
	}, tokens, logger, bookingMetrics)

	bookingService := booking.NewService(meevoClient, logger, bookingMetrics)
	bookingHandler := booking.NewHandler(bookingService, cfg.Env, cfg.LocationName, cfg.MeevoLocationID, logger)

	r := router.New(&router.Config{
		Logger:             logger,
		BookingHandler:     bookingHandler,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	// The write timeout covers the full sequential chain of upstream
	// calls a multi-service booking can make.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
