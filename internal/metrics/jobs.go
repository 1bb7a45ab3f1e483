package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scheduled job metrics
var (
	// JobsInFlight tracks currently executing jobs
	JobsInFlight = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_in_flight",
			Help:      "Current number of scheduled jobs executing",
		},
		[]string{"job"},
	)

	// JobDuration tracks job execution duration
	JobDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Scheduled job execution duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
		[]string{"job"},
	)

	// JobsCompleted tracks completed jobs by result
	JobsCompleted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_completed_total",
			Help:      "Total number of scheduled jobs completed",
		},
		[]string{"job", "result"}, // result: success, error
	)
)

// TrackJob marks job as running and returns a func that records its result.
//
//	done := metrics.TrackJob("holiday_prefetch")
//	err := run()
//	done(err)
func TrackJob(job string) func(error) {
	start := time.Now()
	JobsInFlight.WithLabelValues(job).Inc()
	return func(err error) {
		JobsInFlight.WithLabelValues(job).Dec()
		JobDuration.WithLabelValues(job).Observe(time.Since(start).Seconds())
		result := "success"
		if err != nil {
			result = "error"
		}
		JobsCompleted.WithLabelValues(job, result).Inc()
	}
}
