// Package monitoring defines the Prometheus instruments shared across
// domains. Collectors are registered on the default registry and served
// from the /metrics endpoint.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RelationshipMutations counts edge writes by operation
	// (create, update, delete, bulk_create).
	RelationshipMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lattice",
		Subsystem: "relationships",
		Name:      "mutations_total",
		Help:      "Number of relationship write operations.",
	}, []string{"operation"})

	// GraphTraversals counts graph expansion requests.
	GraphTraversals = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lattice",
		Subsystem: "relationships",
		Name:      "traversals_total",
		Help:      "Number of graph traversal requests.",
	})

	// RiskEvaluations counts completed risk evaluations by outcome.
	RiskEvaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lattice",
		Subsystem: "risk",
		Name:      "evaluations_total",
		Help:      "Number of risk evaluations by outcome.",
	}, []string{"status"})

	// RiskEvaluationDuration observes evaluation latency.
	RiskEvaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "lattice",
		Subsystem: "risk",
		Name:      "evaluation_duration_seconds",
		Help:      "Risk evaluation latency.",
		Buckets:   prometheus.DefBuckets,
	})

	// EarlyWarningAlerts counts opportunities flagged by the sweep.
	EarlyWarningAlerts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lattice",
		Subsystem: "risk",
		Name:      "early_warning_alerts_total",
		Help:      "Number of opportunities flagged by the early-warning sweep.",
	})
)
