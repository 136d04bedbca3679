// Package server exposes the MyParcel integration over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tournevent/myparcel/internal/consignment"
	"github.com/tournevent/myparcel/internal/fulfillment"
	"github.com/tournevent/myparcel/internal/orders"
	"github.com/tournevent/myparcel/internal/telemetry"
	"github.com/tournevent/myparcel/pkg/deliveryoptions"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Server is the HTTP server for the MyParcel service.
type Server struct {
	port         int
	consignments *consignment.Service
	orders       orders.Store
	fulfillment  *fulfillment.Provider
	options      deliveryoptions.Fetcher
	logger       *otelzap.Logger
	metrics      *telemetry.Metrics
	gatherer     prometheus.Gatherer
}

// Config holds server configuration.
type Config struct {
	Port int
}

// Deps are the services the handlers call.
type Deps struct {
	Consignments *consignment.Service
	Orders       orders.Store
	Fulfillment  *fulfillment.Provider
	Options      deliveryoptions.Fetcher
	Logger       *otelzap.Logger
	Metrics      *telemetry.Metrics
	// Gatherer backs /metrics. Nil means the default registry.
	Gatherer prometheus.Gatherer
}

// New creates a new server instance.
func New(cfg Config, deps Deps) *Server {
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		port:         cfg.Port,
		consignments: deps.Consignments,
		orders:       deps.Orders,
		fulfillment:  deps.Fulfillment,
		options:      deps.Options,
		logger:       deps.Logger,
		metrics:      deps.Metrics,
		gatherer:     gatherer,
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/admin/myparcel", func(r chi.Router) {
		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handleUpdateSettings)
		r.Post("/settings/test", s.handleTestConnection)
		r.Get("/consignments", s.handleListConsignments)

		r.Route("/orders/{order_id}", func(r chi.Router) {
			r.Get("/consignment", s.handleOrderConsignment)
			r.Post("/export", s.handleExport)
			r.Post("/register", s.handleRegister)
			r.Get("/label", s.handleLabel)
			r.Post("/return-label/email", s.handleReturnLabel)
			r.Post("/track-trace/refresh", s.handleRefresh)
		})
	})

	r.Get("/store/myparcel/delivery-options", s.handleDeliveryOptions)

	r.Route("/fulfillment/myparcel", func(r chi.Router) {
		r.Get("/options", s.handleFulfillmentOptions)
		r.Post("/validate", s.handleValidate)
		r.Post("/calculate-price", s.handleCalculatePrice)
	})

	return r
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// instrument records request counts and latency by route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.RecordHTTP(r.Method, route, strconv.Itoa(status), time.Since(start).Seconds())
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
