package manifest

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records request counts and latencies per client operation.
type Metrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewMetrics registers the client collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lunar_manifest_requests_total",
			Help: "Total backend requests by operation and status code",
		}, []string{"op", "code"}), // code: HTTP status or "error" for transport failures

		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lunar_manifest_request_duration_seconds",
			Help:    "Duration of backend requests by operation",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"op"}),
	}
}

func (m *Metrics) observe(op, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(op, code).Inc()
	m.Duration.WithLabelValues(op).Observe(d.Seconds())
}
