// Package metrics exposes the watchdog's prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Probe metrics
	ProbesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revive_probes_total",
			Help: "Total number of reachability probes by outcome",
		},
		[]string{"outcome"},
	)

	ProbeLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "revive_probe_latency_seconds",
			Help:    "Round trip time of successful probes in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ConsecutiveFailures = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "revive_consecutive_failures",
			Help: "Current number of consecutive failed probes",
		},
	)

	TargetMonitored = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "revive_target_monitored",
			Help: "Whether a server is registered for monitoring (1 = yes, 0 = no)",
		},
	)

	// Recovery metrics
	RecoveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revive_recoveries_total",
			Help: "Total number of recovery runs by trigger and result",
		},
		[]string{"trigger", "result"},
	)

	RecoveryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "revive_recovery_duration_seconds",
			Help:    "Duration of recovery runs in seconds",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600},
		},
	)

	RecoveryInProgress = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "revive_recovery_in_progress",
			Help: "Whether a recovery run is active (1 = yes, 0 = no)",
		},
	)

	// Provider metrics
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revive_provider_requests_total",
			Help: "Total number of cloud provider calls by operation and result",
		},
		[]string{"operation", "result"},
	)

	ProviderRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "revive_provider_request_duration_seconds",
			Help:    "Cloud provider call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Notification metrics
	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revive_notifications_total",
			Help: "Total number of notifications by channel and result",
		},
		[]string{"channel", "result"},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revive_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)
)

func init() {
	prometheus.MustRegister(ProbesTotal)
	prometheus.MustRegister(ProbeLatency)
	prometheus.MustRegister(ConsecutiveFailures)
	prometheus.MustRegister(TargetMonitored)
	prometheus.MustRegister(RecoveriesTotal)
	prometheus.MustRegister(RecoveryDuration)
	prometheus.MustRegister(RecoveryInProgress)
	prometheus.MustRegister(ProviderRequestsTotal)
	prometheus.MustRegister(ProviderRequestDuration)
	prometheus.MustRegister(NotificationsTotal)
	prometheus.MustRegister(APIRequestsTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// BoolGauge converts a flag to a gauge value
func BoolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Timer measures an operation for a histogram
type Timer struct {
	start time.Time
}

// NewTimer starts a timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration records the elapsed time in h
func (t *Timer) ObserveDuration(h prometheus.Observer) {
	h.Observe(t.Duration().Seconds())
}

// ObserveDurationVec records the elapsed time in the labelled series of h
func (t *Timer) ObserveDurationVec(h *prometheus.HistogramVec, labels ...string) {
	h.WithLabelValues(labels...).Observe(t.Duration().Seconds())
}
