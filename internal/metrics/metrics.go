// file: internal/metrics/metrics.go
// version: 2.0.0
// guid: 9f8e7d6c-5b4a-3210-9fed-cba876543210

package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "shelvance"

// circuitStates lists every label value the circuit gauge may carry.
var circuitStates = []string{"closed", "open", "half_open"}

var (
	registerOnce sync.Once

	operationStarted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_started_total",
		Help:      "Total number of operations started by type",
	}, []string{"type"})
	operationCompleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_completed_total",
		Help:      "Total number of operations successfully completed by type",
	}, []string{"type"})
	operationFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_failed_total",
		Help:      "Total number of operations failed by type",
	}, []string{"type"})
	operationCanceled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_canceled_total",
		Help:      "Total number of operations canceled by type",
	}, []string{"type"})
	operationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "operation_duration_seconds",
		Help:      "Histogram of operation durations in seconds by type",
		Buckets:   prometheus.ExponentialBuckets(0.05, 1.6, 10),
	}, []string{"type"})

	providerRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_requests_total",
		Help:      "Provider calls by provider, capability and outcome",
	}, []string{"provider", "capability", "outcome"})
	providerDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "provider_request_duration_seconds",
		Help:      "Latency of provider calls in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"provider", "capability"})
	circuitState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "provider_circuit_state",
		Help:      "1 for the current circuit state of each provider, 0 otherwise",
	}, []string{"provider", "state"})
	providersSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_skipped_total",
		Help:      "Candidates skipped because their circuit was not eligible",
	}, []string{"provider"})
	allUnavailable = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "all_providers_unavailable_total",
		Help:      "Requests for which no provider could be asked or answered",
	}, []string{"capability"})
	providersGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "providers_configured",
		Help:      "Current number of configured providers",
	})
)

// Register initializes metrics with the global Prometheus registry (idempotent)
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(operationStarted, operationCompleted, operationFailed, operationCanceled, operationDuration,
			providerRequests, providerDuration, circuitState, providersSkipped, allUnavailable, providersGauge)
	})
}

// Operation lifecycle helpers
func IncOperationStarted(opType string)   { operationStarted.WithLabelValues(opType).Inc() }
func IncOperationCompleted(opType string) { operationCompleted.WithLabelValues(opType).Inc() }
func IncOperationFailed(opType string)    { operationFailed.WithLabelValues(opType).Inc() }
func IncOperationCanceled(opType string)  { operationCanceled.WithLabelValues(opType).Inc() }
func ObserveOperationDuration(opType string, d time.Duration) {
	operationDuration.WithLabelValues(opType).Observe(d.Seconds())
}

// Provider call outcomes. outcome is one of success, empty, operational,
// configuration or canceled.
func ObserveProviderCall(providerID, capability, outcome string, d time.Duration) {
	providerRequests.WithLabelValues(providerID, capability, outcome).Inc()
	providerDuration.WithLabelValues(providerID, capability).Observe(d.Seconds())
}

func IncProviderSkipped(providerID string)        { providersSkipped.WithLabelValues(providerID).Inc() }
func IncAllProvidersUnavailable(capability string) { allUnavailable.WithLabelValues(capability).Inc() }

// SetCircuitState marks state as the current state of providerID.
func SetCircuitState(providerID, state string) {
	for _, s := range circuitStates {
		v := 0.0
		if s == state {
			v = 1
		}
		circuitState.WithLabelValues(providerID, s).Set(v)
	}
}

// DeleteCircuitState drops the series of a removed provider.
func DeleteCircuitState(providerID string) {
	for _, s := range circuitStates {
		circuitState.DeleteLabelValues(providerID, s)
	}
}

// Gauges
func SetProviders(n int) { providersGauge.Set(float64(n)) }
