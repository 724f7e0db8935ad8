package observer

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsEnabled = true // Flag to control metric collection

	// Labels for database operation metrics
	dbOperationLabels = []string{"operation", "entity", "workspace_id", "status"}
	// Labels for call completion outcomes
	completionLabels = []string{"workspace_id", "call_status", "outcome"}
	// Labels for bulk queue operations
	bulkOpLabels = []string{"workspace_id", "operation"}
	// Labels for enrichment dispatch
	enrichmentLabels = []string{"workspace_id", "status"}

	// DatabaseOperationDurationSeconds tracks latency of repository calls.
	DatabaseOperationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "outreach_call_service_db_operation_duration_seconds",
			Help:    "Histogram of database operation durations, labeled by operation, entity and status.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~16s
		},
		dbOperationLabels,
	)

	// CallCompletionsTotal counts completion attempts by outcome.
	CallCompletionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_call_service_call_completions_total",
			Help: "Total number of call completion attempts, labeled by call status and outcome (success, conflict, validation_error, error).",
		},
		completionLabels,
	)

	// BulkItemsCreatedTotal counts queue entries created through bulk operations.
	BulkItemsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_call_service_bulk_items_created_total",
			Help: "Total number of call list items created via bulk operations.",
		},
		bulkOpLabels,
	)

	// BulkItemsSkippedTotal counts duplicates silently skipped during bulk creation.
	BulkItemsSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_call_service_bulk_items_skipped_total",
			Help: "Total number of duplicate call list items skipped during bulk operations.",
		},
		bulkOpLabels,
	)

	// EnrichmentDispatchTotal counts enrichment event publishes by status.
	EnrichmentDispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_call_service_enrichment_dispatch_total",
			Help: "Total number of enrichment events dispatched to the broker, labeled by status.",
		},
		enrichmentLabels,
	)

	// EnrichmentQueueLength gauges tasks waiting in the dispatch pool.
	EnrichmentQueueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "outreach_call_service_enrichment_queue_length",
		Help: "Current number of enrichment dispatch tasks waiting in the worker pool.",
	})
)

// SetMetricsEnabled toggles metric collection globally.
func SetMetricsEnabled(enabled bool) {
	metricsEnabled = enabled
}

// sanitizeWorkspace keeps label cardinality bounded when a workspace id is
// missing or malformed.
func sanitizeWorkspace(workspaceID string) string {
	if strings.TrimSpace(workspaceID) == "" {
		return "unknown"
	}
	return workspaceID
}

// ObserveDbOperationDuration records the duration for a database operation.
func ObserveDbOperationDuration(operation, entity, workspaceID string, duration time.Duration, err error) {
	if !metricsEnabled {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	DatabaseOperationDurationSeconds.WithLabelValues(operation, entity, sanitizeWorkspace(workspaceID), status).Observe(duration.Seconds())
}

// IncCallCompletion increments the completion counter for one attempt.
func IncCallCompletion(workspaceID, callStatus, outcome string) {
	if !metricsEnabled {
		return
	}
	CallCompletionsTotal.WithLabelValues(sanitizeWorkspace(workspaceID), callStatus, outcome).Inc()
}

// ObserveBulkItemStats records created/skipped counts for a bulk queue operation.
func ObserveBulkItemStats(workspaceID, operation string, created, skipped int) {
	if !metricsEnabled {
		return
	}
	ws := sanitizeWorkspace(workspaceID)
	BulkItemsCreatedTotal.WithLabelValues(ws, operation).Add(float64(created))
	BulkItemsSkippedTotal.WithLabelValues(ws, operation).Add(float64(skipped))
}

// IncEnrichmentDispatch increments the enrichment dispatch counter.
func IncEnrichmentDispatch(workspaceID, status string) {
	if !metricsEnabled {
		return
	}
	EnrichmentDispatchTotal.WithLabelValues(sanitizeWorkspace(workspaceID), status).Inc()
}

// SetEnrichmentQueueLength updates the dispatch pool backlog gauge.
func SetEnrichmentQueueLength(n int) {
	if !metricsEnabled {
		return
	}
	EnrichmentQueueLength.Set(float64(n))
}
