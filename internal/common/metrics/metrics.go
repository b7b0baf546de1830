// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RepliesAnalyzed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_replies_analyzed_total",
			Help: "Total number of prospect replies analyzed, by resolved stage",
		},
		[]string{"stage"},
	)

	BookingIntentDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outreach_booking_intent_detected_total",
			Help: "Total number of replies classified with booking intent",
		},
	)

	AppointmentsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outreach_appointments_created_total",
			Help: "Total number of pending appointments created by the engine",
		},
	)

	StoreFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_store_failures_total",
			Help: "Total number of persistence failures, by operation",
		},
		[]string{"operation"},
	)

	AnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "outreach_analysis_duration_seconds",
			Help: "Duration of a full reply analysis in seconds",
		},
	)
)
