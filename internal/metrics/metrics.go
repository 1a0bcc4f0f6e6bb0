// ABOUTME: Prometheus instrumentation for the diary store and summary cache.
// ABOUTME: Counters are registered on the default registry and exposed by the mcp command.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Summary request outcomes.
const (
	SummaryCached    = "cached"
	SummaryGenerated = "generated"
	SummaryAttached  = "attached"
	SummaryFailed    = "failed"
)

var (
	// SnapshotsPublished counts record store republishes.
	SnapshotsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "diary",
			Name:      "snapshots_published_total",
			Help:      "Snapshots republished by the record store.",
		},
	)

	// Mutations counts record store mutations by operation and result.
	Mutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "diary",
			Name:      "mutations_total",
			Help:      "Record store mutations by operation and result.",
		},
		[]string{"op", "result"},
	)

	// SummaryRequests counts summary cache lookups by outcome.
	SummaryRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "diary",
			Name:      "summary_requests_total",
			Help:      "Weekly summary requests by outcome.",
		},
		[]string{"outcome"},
	)

	// SummaryGenerations counts calls into the summary generator.
	SummaryGenerations = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "diary",
			Name:      "summary_generations_total",
			Help:      "Summary generator invocations.",
		},
	)
)

// ObserveMutation records the outcome of a store mutation.
func ObserveMutation(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	Mutations.WithLabelValues(op, result).Inc()
}
