package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal *prometheus.CounterVec
	submissionsTotal  prometheus.Counter
	registerOnce      sync.Once
)

// Register initializes Prometheus metrics on the default registry.
func Register() {
	registerOnce.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "survey",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests processed by the survey service.",
		}, []string{"method", "path", "status"})

		submissionsTotal = promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "survey",
			Name:      "submissions_total",
			Help:      "Total response rows accepted across all surveys.",
		})
	})
}

// IncRequest increments the http_requests_total counter with the given labels.
func IncRequest(method, path string, status int) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}

// AddSubmissions adds n accepted response rows to submissions_total.
func AddSubmissions(n int) {
	if submissionsTotal == nil || n <= 0 {
		return
	}
	submissionsTotal.Add(float64(n))
}
