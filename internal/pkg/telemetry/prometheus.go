package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP-edge metrics.
var (
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_http_requests_in_flight",
			Help: "Current number of HTTP requests being served",
		},
	)
)

// Write-side metrics: created accounts and optimistic-concurrency outcomes.
var (
	AccountsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_accounts_created_total",
			Help: "Total number of accounts created",
		},
	)

	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_commands_total",
			Help: "Total number of account commands handled",
		},
		[]string{"command", "outcome"}, // command: create, deposit, withdraw; outcome: success, conflict, error
	)

	PublishConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_publish_conflicts_total",
			Help: "Total number of optimistic-concurrency losses on publish",
		},
	)

	AccountBalancesHistogram = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ledger_account_balances_minor_units",
			Help:    "Distribution of account balances in minor currency units",
			Buckets: []float64{0, 1000, 5000, 10000, 50000, 100000, 500000, 1000000, 5000000},
		},
	)
)

// Projector metrics: delivery, idempotent-apply and pending-sweep recovery.
var (
	ProjectorEventsAppliedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_projector_events_applied_total",
			Help: "Total number of events applied to the view store",
		},
		[]string{"type"}, // create, deposit, withdraw
	)

	ProjectorDuplicatesSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_projector_duplicates_skipped_total",
			Help: "Total number of re-delivered events absorbed by idempotent apply",
		},
	)

	ProjectorPendingReclaimedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_projector_pending_reclaimed_total",
			Help: "Total number of pending entries reclaimed by the sweep",
		},
	)

	// ProjectorLagGauge is registered and exported, but no code in this
	// module sets it, so it always reads 0.
	ProjectorLagGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_projector_lag_entries",
			Help: "Number of entries currently pending for the projector's consumer group",
		},
	)
)
