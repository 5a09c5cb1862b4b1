package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP
// surface and the allocation engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	allocationsTotal   *prometheus.CounterVec
	reservationRetries prometheus.Counter
	waitlistPromotions prometheus.Counter
	waitlistSize       prometheus.Gauge
	auditRepairs       *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	allocationsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "allocations_total",
		Help: "Allocation attempts by outcome (allocated, waitlisted, error)",
	}, []string{"outcome"})

	reservationRetries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "allocation_reservation_retries_total",
		Help: "Optimistic concurrency retries during slot reservation",
	})

	waitlistPromotions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "waitlist_promotions_total",
		Help: "Waitlist entries promoted to allocations",
	})

	waitlistSize := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "waitlist_size",
		Help: "Current number of waitlist entries",
	})

	auditRepairs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_repairs_total",
		Help: "Consistency repairs applied or violations flagged by kind",
	}, []string{"kind"})

	registry.MustRegister(requestDuration, requestTotal, allocationsTotal,
		reservationRetries, waitlistPromotions, waitlistSize, auditRepairs)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		allocationsTotal:   allocationsTotal,
		reservationRetries: reservationRetries,
		waitlistPromotions: waitlistPromotions,
		waitlistSize:       waitlistSize,
		auditRepairs:       auditRepairs,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records one served HTTP request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := []string{method, path, strconv.Itoa(status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// ObserveAllocation records an allocation attempt outcome.
func (s *MetricsService) ObserveAllocation(outcome string) {
	s.allocationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveReservationRetry counts a lost occupancy race.
func (s *MetricsService) ObserveReservationRetry() {
	s.reservationRetries.Inc()
}

// ObserveWaitlistPromotion counts a promotion from the waitlist.
func (s *MetricsService) ObserveWaitlistPromotion() {
	s.waitlistPromotions.Inc()
}

// SetWaitlistSize publishes the current waitlist depth.
func (s *MetricsService) SetWaitlistSize(n int) {
	s.waitlistSize.Set(float64(n))
}

// ObserveAuditRepair counts one repair or flagged violation.
func (s *MetricsService) ObserveAuditRepair(kind string) {
	s.auditRepairs.WithLabelValues(kind).Inc()
}
