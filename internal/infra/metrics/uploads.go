package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(uploadVerificationsTotal, uploadHistorySize) }

var uploadVerificationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "upload_verifications_total",
		Help: "Storage verification ticks, labeled by outcome.",
	},
	[]string{"outcome"}, // 'verified', 'pending', 'error', 'discarded'
)

var uploadHistorySize = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "upload_history_size",
		Help: "Current number of records in the persisted upload history.",
	},
)

func IncUploadVerification(outcome string) {
	uploadVerificationsTotal.WithLabelValues(outcome).Inc()
}

func SetUploadHistorySize(n int) {
	uploadHistorySize.Set(float64(n))
}
