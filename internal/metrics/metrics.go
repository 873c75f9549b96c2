// Package metrics provides Prometheus metrics collection for cloudgate.
package metrics

import (
	"fmt"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Global metrics - used by the application.
	// Using atomic.Pointer for lock-free initialization checks on hot path metrics.
	requestsTotal      atomic.Pointer[prometheus.CounterVec]
	requestDuration    atomic.Pointer[prometheus.HistogramVec]
	authFailuresTotal  atomic.Pointer[prometheus.CounterVec]
	providerCallsTotal atomic.Pointer[prometheus.CounterVec]
	staleWritesTotal   atomic.Pointer[prometheus.Counter]
)

// Init initializes all Prometheus metrics and registers them with the
// provided registry. Called once at application startup.
func Init(reg prometheus.Registerer) error {
	requestsTotalVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cloudgate",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled",
		},
		[]string{"method", "path", "status"},
	)
	if err := reg.Register(requestsTotalVec); err != nil {
		return fmt.Errorf("failed to register requestsTotal: %w", err)
	}

	requestDurationVec := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cloudgate",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	if err := reg.Register(requestDurationVec); err != nil {
		return fmt.Errorf("failed to register requestDuration: %w", err)
	}

	authFailuresTotalVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cloudgate",
			Subsystem: "http",
			Name:      "auth_failures_total",
			Help:      "Total number of authentication failures",
		},
		[]string{"reason"},
	)
	if err := reg.Register(authFailuresTotalVec); err != nil {
		return fmt.Errorf("failed to register authFailuresTotal: %w", err)
	}

	providerCallsTotalVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cloudgate",
			Subsystem: "provider",
			Name:      "calls_total",
			Help:      "Total number of proxy operations invoked against the cloud provider",
		},
		[]string{"service_type", "operation", "outcome"},
	)
	if err := reg.Register(providerCallsTotalVec); err != nil {
		return fmt.Errorf("failed to register providerCallsTotal: %w", err)
	}

	staleWrites := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cloudgate",
			Subsystem: "storage",
			Name:      "stale_writes_total",
			Help:      "Total number of updates rejected by the consistency check",
		},
	)
	if err := reg.Register(staleWrites); err != nil {
		return fmt.Errorf("failed to register staleWrites: %w", err)
	}

	requestsTotal.Store(requestsTotalVec)
	requestDuration.Store(requestDurationVec)
	authFailuresTotal.Store(authFailuresTotalVec)
	providerCallsTotal.Store(providerCallsTotalVec)
	staleWritesTotal.Store(&staleWrites)

	return nil
}

// RecordRequest records one handled HTTP request.
func RecordRequest(method, path, status string, durationSeconds float64) {
	if v := requestsTotal.Load(); v != nil {
		v.WithLabelValues(method, path, status).Inc()
	}
	if v := requestDuration.Load(); v != nil {
		v.WithLabelValues(method, path, status).Observe(durationSeconds)
	}
}

// RecordAuthFailure records a failed authentication attempt.
func RecordAuthFailure(reason string) {
	if v := authFailuresTotal.Load(); v != nil {
		v.WithLabelValues(reason).Inc()
	}
}

// RecordProviderCall records one proxy-operation invocation.
func RecordProviderCall(serviceType, operation, outcome string) {
	if v := providerCallsTotal.Load(); v != nil {
		v.WithLabelValues(serviceType, operation, outcome).Inc()
	}
}

// RecordStaleWrite records one update rejected by the consistency check.
func RecordStaleWrite() {
	if v := staleWritesTotal.Load(); v != nil {
		(*v).Inc()
	}
}
