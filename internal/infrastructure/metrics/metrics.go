package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Transaction metrics
	TransactionsCommitted prometheus.Counter
	TransactionsRejected  *prometheus.CounterVec
	TransactionDuration   prometheus.Histogram
	TransactionEntries    prometheus.Histogram
	TransactionVolume     prometheus.Histogram

	// Account metrics
	AccountsCreated prometheus.Counter
	AccountCache    *prometheus.CounterVec

	// Ledger metrics
	ConsistencyChecks *prometheus.CounterVec

	// Outbox metrics
	OutboxPublished prometheus.Counter
	OutboxFailures  prometheus.Counter
}

// New creates and registers all Prometheus metrics with the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates the metrics and registers them with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Transaction metrics
		TransactionsCommitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_transactions_committed_total",
			Help: "Total number of transactions committed",
		}),
		TransactionsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_transactions_rejected_total",
				Help: "Total number of rejected transaction submissions by reason",
			},
			[]string{"reason"},
		),
		TransactionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledger_transaction_duration_seconds",
			Help:    "Duration of transaction submissions",
			Buckets: prometheus.DefBuckets,
		}),
		TransactionEntries: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledger_transaction_entries",
			Help:    "Number of entries per committed transaction",
			Buckets: []float64{2, 3, 4, 6, 10, 20, 50, 100, 1000},
		}),
		TransactionVolume: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledger_transaction_volume",
			Help:    "Debit total of committed transactions in minor units",
			Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
		}),

		// Account metrics
		AccountsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_accounts_created_total",
			Help: "Total number of accounts created",
		}),
		AccountCache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_account_cache_requests_total",
				Help: "Account cache lookups by result",
			},
			[]string{"result"},
		),

		// Ledger metrics
		ConsistencyChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_consistency_checks_total",
				Help: "Ledger consistency checks by result",
			},
			[]string{"result"},
		),

		// Outbox metrics
		OutboxPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_outbox_events_published_total",
			Help: "Total outbox events published",
		}),
		OutboxFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_outbox_publish_failures_total",
			Help: "Total outbox events that failed to publish",
		}),
	}
}
