package pages

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pagelite"

var (
	pagesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pages",
			Name:      "created_total",
			Help:      "Total status pages created",
		},
	)

	pageMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pages",
			Name:      "mutations_total",
			Help:      "Page mutations by operation and result",
		},
		[]string{"operation", "result"},
	)

	createCollisions = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pages",
			Name:      "identifier_collisions_total",
			Help:      "Slug or edit token collisions retried during page creation",
		},
	)
)

func recordMutation(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "rejected"
	}
	pageMutations.WithLabelValues(operation, result).Inc()
}
