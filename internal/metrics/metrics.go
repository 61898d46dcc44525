package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapngo_decisions_total",
			Help: "Total number of accept/reject decisions by requested status and outcome.",
		},
		[]string{"requested", "outcome"},
	)

	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapngo_submissions_total",
			Help: "Total number of proof submissions by result.",
		},
		[]string{"result"},
	)

	MessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapngo_messages_total",
			Help: "Total number of outbound chat calls by kind and result.",
		},
		[]string{"kind", "result"},
	)

	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapngo_events_total",
			Help: "Total number of inbound chat events by kind.",
		},
		[]string{"kind"},
	)

	EventDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snapngo_event_duration_seconds",
			Help:    "Time spent handling an inbound chat event.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"kind"},
	)

	AckFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "snapngo_ack_failures_total",
			Help: "Total number of decision events whose acknowledgement failed.",
		},
	)

	LedgerContentionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapngo_ledger_contention_total",
			Help: "Total number of conditional ledger writes that lost a race or hit a busy database.",
		},
		[]string{"operation"},
	)
)

// Register registers all custom snapngo metrics with the default Prometheus registry.
func Register() {
	prometheus.MustRegister(
		DecisionsTotal,
		SubmissionsTotal,
		MessagesTotal,
		EventsTotal,
		EventDurationSeconds,
		AckFailuresTotal,
		LedgerContentionTotal,
	)
}
