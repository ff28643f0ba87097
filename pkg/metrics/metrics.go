package metrics

import (
	"net/http"
	"time"

	"github.com/cuemby/clusterscope/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Health check metrics
	HealthChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clusterscope_health_checks_total",
			Help: "Total number of health check passes by scope and result",
		},
		[]string{"scope", "result"},
	)

	HealthCheckDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clusterscope_health_check_duration_seconds",
			Help:    "Health check pass duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"scope"},
	)

	ServiceStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "clusterscope_service_status",
			Help: "Last observed service status (0 = GOOD, 1 = CONCERNING, 2 = BAD)",
		},
		[]string{"cluster", "service"},
	)

	// Remote command metrics
	RemoteCommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clusterscope_remote_commands_total",
			Help: "Total number of remote commands by result",
		},
		[]string{"result"},
	)

	RemoteCommandDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clusterscope_remote_command_duration_seconds",
			Help:    "Remote command round trip duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Snapshot metrics
	SnapshotsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clusterscope_snapshots_total",
			Help: "Snapshot requests by outcome (created, reused, failed)",
		},
		[]string{"outcome"},
	)

	DiscoveryCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clusterscope_discovery_cache_total",
			Help: "Discovery cache lookups by result (hit, miss)",
		},
		[]string{"result"},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clusterscope_api_requests_total",
			Help: "Total number of API requests by route and status",
		},
		[]string{"route", "status"},
	)
)

func init() {
	prometheus.MustRegister(HealthChecksTotal)
	prometheus.MustRegister(HealthCheckDuration)
	prometheus.MustRegister(ServiceStatus)
	prometheus.MustRegister(RemoteCommandsTotal)
	prometheus.MustRegister(RemoteCommandDuration)
	prometheus.MustRegister(SnapshotsTotal)
	prometheus.MustRegister(DiscoveryCacheTotal)
	prometheus.MustRegister(APIRequestsTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordServiceStatus publishes the latest verdict of a service
func RecordServiceStatus(cluster string, service types.ServiceType, status types.Status) {
	ServiceStatus.WithLabelValues(cluster, string(service)).Set(float64(status.Severity()))
}

// Timer measures elapsed time for histogram observations
type Timer struct {
	start time.Time
}

// NewTimer starts a timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the time elapsed since the timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration records the elapsed time on a histogram
func (t *Timer) ObserveDuration(h prometheus.Observer) {
	h.Observe(t.Duration().Seconds())
}

// ObserveDurationVec records the elapsed time on a histogram vec
func (t *Timer) ObserveDurationVec(h *prometheus.HistogramVec, labels ...string) {
	h.WithLabelValues(labels...).Observe(t.Duration().Seconds())
}
