package telemetry

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vantage",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vantage",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	mutationOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vantage",
			Subsystem: "mutations",
			Name:      "resolved_total",
			Help:      "Optimistic mutations by outcome.",
		},
		[]string{"outcome"},
	)
	mutationsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "vantage",
			Subsystem: "mutations",
			Name:      "tracked",
			Help:      "Mutation records currently tracked.",
		},
	)
	presenceUsers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "vantage",
			Subsystem: "presence",
			Name:      "simulated_users",
			Help:      "Simulated presence users across all simulators.",
		},
	)
	realtimeClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "vantage",
			Subsystem: "realtime",
			Name:      "clients",
			Help:      "Connected websocket clients.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, mutationOutcomes, mutationsInFlight, presenceUsers, realtimeClients)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

// RecordMutation counts a resolved mutation. Outcome is one of
// success, rolled_back or superseded.
func RecordMutation(outcome string) {
	RegisterMetrics()
	mutationOutcomes.WithLabelValues(outcome).Inc()
}

func SetMutationsTracked(n int) {
	RegisterMetrics()
	mutationsInFlight.Set(float64(n))
}

func AddPresenceUsers(delta int) {
	RegisterMetrics()
	presenceUsers.Add(float64(delta))
}

func AddRealtimeClients(delta int) {
	RegisterMetrics()
	realtimeClients.Add(float64(delta))
}
