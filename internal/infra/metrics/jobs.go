package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(jobSubmissionsTotal, pollTicksTotal, statusCallLatencyMs) }

var jobSubmissionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "extraction_job_submissions_total",
		Help: "Extraction job submissions, labeled by outcome.",
	},
	[]string{"outcome"}, // 'accepted', 'rejected', 'rejected_by_server', 'transport_error'
)

var pollTicksTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "extraction_poll_ticks_total",
		Help: "Task-status poll ticks, labeled by outcome.",
	},
	[]string{"outcome"}, // 'progress', 'success', 'failure', 'revoked', 'transport_error', 'discarded'
)

var statusCallLatencyMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "extraction_status_call_latency_ms",
		Help:    "Task-status call latency distribution in milliseconds.",
		Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000},
	},
	[]string{"success"},
)

func IncJobSubmission(outcome string) {
	jobSubmissionsTotal.WithLabelValues(outcome).Inc()
}

func IncPollTick(outcome string) {
	pollTicksTotal.WithLabelValues(outcome).Inc()
}

func ObserveStatusCall(d time.Duration, ok bool) {
	success := "false"
	if ok {
		success = "true"
	}
	statusCallLatencyMs.WithLabelValues(success).Observe(float64(d.Milliseconds()))
}
