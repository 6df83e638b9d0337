package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce       sync.Once
	apiRequestsTotal   *prometheus.CounterVec
	apiLatencySeconds  *prometheus.HistogramVec
	apiErrorsTotal     *prometheus.CounterVec
	submissionsTotal   *prometheus.CounterVec
	submissionDuration *prometheus.HistogramVec
	pointsIssuedTotal  prometheus.Counter
	pointDriftTotal    prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "honmoon",
			Name:      "api_requests_total",
			Help:      "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "honmoon",
			Name:      "api_latency_seconds",
			Help:      "Latency distribution for API requests.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "honmoon",
			Name:      "api_errors_total",
			Help:      "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		submissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "honmoon",
			Subsystem: "missions",
			Name:      "submissions_total",
			Help:      "Mission submissions by mission type and outcome.",
		}, []string{"mission_type", "outcome"})

		submissionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "honmoon",
			Subsystem: "missions",
			Name:      "submission_duration_seconds",
			Help:      "End to end duration of mission submissions.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"mission_type"})

		pointsIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "honmoon",
			Subsystem: "points",
			Name:      "issued_total",
			Help:      "Points granted for completed missions.",
		})

		pointDriftTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "honmoon",
			Subsystem: "points",
			Name:      "drift_corrections_total",
			Help:      "User summaries corrected by the reconciliation job.",
		})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			submissionsTotal,
			submissionDuration,
			pointsIssuedTotal,
			pointDriftTotal,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// Submissions exposes the mission submission outcome counter.
func Submissions() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsTotal
}

// SubmissionDuration exposes the submission latency histogram.
func SubmissionDuration() *prometheus.HistogramVec {
	RegisterMetrics()
	return submissionDuration
}

// PointsIssued exposes the counter of granted points.
func PointsIssued() prometheus.Counter {
	RegisterMetrics()
	return pointsIssuedTotal
}

// PointDriftCorrections exposes the counter of reconciled summaries.
func PointDriftCorrections() prometheus.Counter {
	RegisterMetrics()
	return pointDriftTotal
}
