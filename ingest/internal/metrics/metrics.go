package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Webhook request metrics
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "factflow_ingest_requests_total",
			Help: "Total number of webhook deliveries received",
		},
		[]string{"source", "status"},
	)

	RequestBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "factflow_ingest_request_bytes_total",
			Help: "Total bytes of webhook payloads received",
		},
		[]string{"source"},
	)

	IngestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "factflow_ingest_duration_seconds",
			Help:    "Duration of one ingestion call in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	// Pipeline stage metrics
	AdapterEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "factflow_ingest_adapter_events_total",
			Help: "Total number of events produced by source adapters",
		},
		[]string{"source"},
	)

	BatchDuplicates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "factflow_ingest_batch_duplicates_total",
			Help: "Total number of events removed as duplicates within one delivery",
		},
		[]string{"source"},
	)

	RosterFiltered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "factflow_ingest_roster_filtered_total",
			Help: "Total number of events dropped because the agent is not on the roster",
		},
		[]string{"source"},
	)

	RosterFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "factflow_ingest_roster_failures_total",
			Help: "Total number of roster fetch failures (filter skipped)",
		},
		[]string{"source"},
	)

	LedgerDuplicates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "factflow_ingest_ledger_duplicates_total",
			Help: "Total number of events skipped because they were already admitted",
		},
		[]string{"source"},
	)

	LedgerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "factflow_ingest_ledger_errors_total",
			Help: "Total number of ledger storage failures",
		},
		[]string{"source"},
	)

	EventsAdmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "factflow_ingest_events_admitted_total",
			Help: "Total number of events admitted for delivery",
		},
		[]string{"source"},
	)

	// Sink metrics
	SinkDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "factflow_ingest_sink_duration_seconds",
			Help:    "Duration of table writes in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"table"},
	)

	SinkRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "factflow_ingest_sink_rows_total",
			Help: "Total number of rows written to sink tables",
		},
		[]string{"table"},
	)

	SinkErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "factflow_ingest_sink_errors_total",
			Help: "Total number of failed table writes",
		},
		[]string{"table"},
	)

	// Rate limiting metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "factflow_ingest_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"source"},
	)

	// Dead-letter metrics
	DLQWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "factflow_ingest_dlq_writes_total",
			Help: "Total number of deliveries written to the dead-letter queue",
		},
		[]string{"reason", "status"},
	)
)
