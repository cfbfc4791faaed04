package server

// Metrics are registered with the default Prometheus registry at package
// load; the ops HTTP endpoint serves them.

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "messageapp"

// sessionsActive tracks the number of live client connections.
var sessionsActive = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "sessions_active",
		Help:      "Current number of live client sessions.",
	},
)

// commandsTotal counts dispatched commands.
// Labels:
//   - command: canonical tag, or "unknown" for unrecognised ones
//   - outcome: "ok", "rejected", or "error"
var commandsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "commands_total",
		Help:      "Total number of commands dispatched, by command and outcome.",
	},
	[]string{"command", "outcome"},
)

// commandDuration measures dispatch latency from decode to response write.
var commandDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "command_duration_seconds",
		Help:      "Duration of command dispatch, including store calls.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"command"},
)

// livenessRemovalsTotal counts sessions force-terminated by the liveness
// check after their account was removed.
var livenessRemovalsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "liveness_removals_total",
		Help:      "Total number of sessions terminated because the account was removed.",
	},
)
