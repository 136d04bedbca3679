package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	CarrierRequests  *prometheus.CounterVec
	CarrierDuration  *prometheus.HistogramVec
	Exports          *prometheus.CounterVec
	PricingFallbacks *prometheus.CounterVec

	reg prometheus.Registerer
}

// NewMetrics creates the service metrics on reg. Pass
// prometheus.DefaultRegisterer to expose them on /metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "myparcel_http_requests_total",
				Help: "Total number of HTTP requests by method, route, and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "myparcel_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds by method and route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		CarrierRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "myparcel_carrier_requests_total",
				Help: "Total carrier API calls by operation and status",
			},
			[]string{"operation", "status"},
		),
		CarrierDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "myparcel_carrier_request_duration_seconds",
				Help:    "Carrier API call duration in seconds by operation",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		Exports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "myparcel_exports_total",
				Help: "Consignment exports by outcome",
			},
			[]string{"outcome"},
		),
		PricingFallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "myparcel_pricing_fallbacks_total",
				Help: "Price calculations that fell back to the base price, by reason",
			},
			[]string{"reason"},
		),
		reg: reg,
	}
}

// RecordHTTP records a served HTTP request.
func (m *Metrics) RecordHTTP(method, route, status string, duration float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(duration)
}

// RecordCarrierRequest records a call to the carrier API.
func (m *Metrics) RecordCarrierRequest(operation, status string, duration float64) {
	if m == nil {
		return
	}
	m.CarrierRequests.WithLabelValues(operation, status).Inc()
	m.CarrierDuration.WithLabelValues(operation).Observe(duration)
}

// RecordExport records the outcome of an export: created, existing,
// conflict or failed.
func (m *Metrics) RecordExport(outcome string) {
	if m == nil {
		return
	}
	m.Exports.WithLabelValues(outcome).Inc()
}

// RecordPricingFallback records a degraded price calculation.
func (m *Metrics) RecordPricingFallback(reason string) {
	if m == nil {
		return
	}
	m.PricingFallbacks.WithLabelValues(reason).Inc()
}

// CacheStats is implemented by the delivery options cache.
type CacheStats interface {
	Hits() uint64
	Misses() uint64
	Len() int
}

// RegisterCache exposes the delivery options cache counters.
func (m *Metrics) RegisterCache(stats CacheStats) {
	if m == nil || stats == nil {
		return
	}
	factory := promauto.With(m.reg)
	factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "myparcel_delivery_options_cache_hits_total",
		Help: "Delivery options cache hits",
	}, func() float64 { return float64(stats.Hits()) })
	factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "myparcel_delivery_options_cache_misses_total",
		Help: "Delivery options cache misses",
	}, func() float64 { return float64(stats.Misses()) })
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "myparcel_delivery_options_cache_entries",
		Help: "Delivery options cache entries, including expired ones not yet evicted",
	}, func() float64 { return float64(stats.Len()) })
}
