package harvest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the pipeline, registered on the default registry and
// exposed by the serve command's /metrics endpoint.
var (
	pagesVisited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schemeharvest_pages_visited_total",
		Help: "Pages fetched, by fetch mode.",
	}, []string{"mode"})

	recordsExtracted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schemeharvest_records_extracted_total",
		Help: "Raw records produced, by extraction strategy.",
	}, []string{"strategy"})

	recordsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "schemeharvest_records_accepted_total",
		Help: "Records accepted after normalization and deduplication.",
	})

	duplicatesRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "schemeharvest_duplicates_total",
		Help: "Records rejected as duplicates within a run.",
	})

	malformedDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "schemeharvest_malformed_total",
		Help: "Raw records dropped for missing required fields.",
	})

	fetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "schemeharvest_fetch_failures_total",
		Help: "Fetches that exhausted their retry budget.",
	})

	fetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "schemeharvest_fetch_duration_seconds",
		Help:    "Wall time per page fetch including retries.",
		Buckets: prometheus.DefBuckets,
	})
)
