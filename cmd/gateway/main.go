package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/itamcore/gateway/internal/config"
	"github.com/itamcore/gateway/internal/handler"
	"github.com/itamcore/gateway/internal/metrics"
	"github.com/itamcore/gateway/internal/middleware"
	"github.com/itamcore/gateway/internal/proxy"
	"github.com/itamcore/gateway/internal/routing"
	"github.com/itamcore/gateway/pkg/logger"
)

const (
	version         = "1.0.0"
	shutdownTimeout = 30 * time.Second
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
		File:   cfg.Logging.File,
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info("Starting API gateway")

	table, err := routing.NewTable(cfg.Gateway.Services)
	if err != nil {
		log.WithError(err).Fatal("Failed to build routing table")
	}

	log.WithFields(map[string]interface{}{
		"version":  version,
		"port":     cfg.Server.Port,
		"services": table.Len(),
	}).Info("Gateway configuration loaded")

	m := metrics.New()

	dispatcher := proxy.NewDispatcher(cfg.Gateway.Upstream, log, m)
	defer dispatcher.Close()

	gatewayHandler := handler.NewGatewayHandler(table, dispatcher, nil, log)
	healthHandler := handler.NewHealthHandler(version)
	routesHandler := handler.NewRoutesHandler(table)

	router := mux.NewRouter()

	// Local endpoints bypass the routing table entirely
	router.HandleFunc("/health", healthHandler.Health).Methods(http.MethodGet)
	router.HandleFunc("/readiness", healthHandler.Readiness).Methods(http.MethodGet)
	router.HandleFunc("/liveness", healthHandler.Liveness).Methods(http.MethodGet)

	if cfg.Metrics.Enabled {
		router.Handle(cfg.Metrics.Path, m.Handler()).Methods(http.MethodGet)
	}

	var routesEndpoint http.Handler = http.HandlerFunc(routesHandler.List)
	if cfg.Admin.AuthEnabled {
		adminAuth := middleware.NewAdminAuth(cfg.Admin.AuthSecret, log)
		routesEndpoint = adminAuth.Middleware(routesEndpoint)
		log.Info("Admin endpoint authentication enabled")
	}
	router.Handle("/routes", routesEndpoint).Methods(http.MethodGet)

	// Everything else goes through the dispatcher
	router.PathPrefix("/").Handler(gatewayHandler)

	middlewares := []func(http.Handler) http.Handler{
		middleware.RecoveryMiddleware(log),
		middleware.LoggingMiddleware(log),
		middleware.CORSMiddleware(),
		middleware.SecurityHeadersMiddleware(),
	}

	if cfg.Gateway.RateLimit.Enabled {
		rateLimiter := middleware.NewRateLimiter(cfg.Gateway.RateLimit, log)
		middlewares = append(middlewares, rateLimiter.Middleware())
		log.Info("Rate limiting enabled")
	}

	var finalHandler http.Handler = router
	for i := len(middlewares) - 1; i >= 0; i-- {
		finalHandler = middlewares[i](finalHandler)
	}

	if cfg.Server.EnableH2C {
		finalHandler = h2c.NewHandler(finalHandler, &http2.Server{})
		log.Info("HTTP/2 cleartext enabled")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      finalHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.WithFields(map[string]interface{}{
			"port":     cfg.Server.Port,
			"services": table.Len(),
		}).Info("Starting HTTP server")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	log.Info("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down HTTP server")
	}

	log.Info("Gateway stopped gracefully")
}
