package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Ledger metrics
	DepositsCompleted     prometheus.Counter
	TransfersCompleted    prometheus.Counter
	ContributionsRecorded prometheus.Counter
	ContributionsReversed prometheus.Counter
	OperationDuration     *prometheus.HistogramVec
	OperationErrors       *prometheus.CounterVec
	ConflictRetries       prometheus.Counter
	MovedAmount           *prometheus.HistogramVec

	// Account metrics
	AccountsCreated prometheus.Counter

	// Group metrics
	GroupsCreated prometheus.Counter
	MembersJoined prometheus.Counter

	// Investment metrics
	PurchasesRecorded prometheus.Counter
	PurchasesSettled  prometheus.Counter

	// Outbox metrics
	EventsPublished *prometheus.CounterVec
	PublishErrors   prometheus.Counter
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		DepositsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gramdhan_deposits_completed_total",
			Help: "Total number of completed deposits",
		}),
		TransfersCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gramdhan_transfers_completed_total",
			Help: "Total number of completed transfers",
		}),
		ContributionsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gramdhan_contributions_recorded_total",
			Help: "Total number of recorded group contributions",
		}),
		ContributionsReversed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gramdhan_contributions_reversed_total",
			Help: "Total number of compensated group contributions",
		}),
		OperationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gramdhan_operation_duration_seconds",
				Help:    "Duration of ledger operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		OperationErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gramdhan_operation_errors_total",
				Help: "Total number of ledger operation errors by type",
			},
			[]string{"operation", "error_type"},
		),
		ConflictRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gramdhan_conflict_retries_total",
			Help: "Total number of optimistic concurrency retries",
		}),
		MovedAmount: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gramdhan_moved_amount_paise",
				Help:    "Amounts moved per operation in paise",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"operation"},
		),

		AccountsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gramdhan_accounts_created_total",
			Help: "Total number of accounts created",
		}),

		GroupsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gramdhan_groups_created_total",
			Help: "Total number of savings groups created",
		}),
		MembersJoined: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gramdhan_group_members_joined_total",
			Help: "Total number of members joined to groups",
		}),

		PurchasesRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gramdhan_purchases_recorded_total",
			Help: "Total number of fund purchases recorded",
		}),
		PurchasesSettled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gramdhan_purchases_settled_total",
			Help: "Total number of fund purchases settled",
		}),

		EventsPublished: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gramdhan_events_published_total",
				Help: "Total number of outbox events published",
			},
			[]string{"event_type"},
		),
		PublishErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gramdhan_event_publish_errors_total",
			Help: "Total number of outbox publish failures",
		}),
	}
}
