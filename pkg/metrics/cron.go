package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CronJobMetrics tracks cron worker cycles and job runs.
type CronJobMetrics struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
	skipped  prometheus.Counter
}

func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cron_job_duration_seconds",
		Help:    "Wall time of cron job runs.",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
	}, []string{"job"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cron_job_runs_total",
		Help: "Cron job runs by result.",
	}, []string{"job", "result"})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cron_cycles_skipped_total",
		Help: "Cycles skipped because another worker held the lease.",
	})
	reg.MustRegister(duration, runs, skipped)
	return &CronJobMetrics{duration: duration, runs: runs, skipped: skipped}
}

// ObserveRun records one job run; a non-nil err counts as a failure.
func (c *CronJobMetrics) ObserveRun(job string, elapsed time.Duration, err error) {
	if c == nil || c.runs == nil {
		return
	}
	job = normalizeLabel(job)
	result := "success"
	if err != nil {
		result = "failure"
	}
	c.duration.WithLabelValues(job).Observe(elapsed.Seconds())
	c.runs.WithLabelValues(job, result).Inc()
}

func (c *CronJobMetrics) IncSkippedCycle() {
	if c == nil || c.skipped == nil {
		return
	}
	c.skipped.Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
