package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncRunsTotal tracks sync invocations per domain and outcome
	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tonkit_sync_runs_total",
			Help: "Total number of sync runs",
		},
		[]string{"domain", "outcome"},
	)

	// EventPagesFetched tracks history pages fetched per phase
	EventPagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tonkit_event_pages_fetched_total",
			Help: "Total number of event pages fetched",
		},
		[]string{"phase"},
	)

	// EventsPersisted tracks events written to the record store
	EventsPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tonkit_events_persisted_total",
			Help: "Total number of events persisted",
		},
	)

	// ListenerReconnects tracks listener reconnect attempts
	ListenerReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tonkit_listener_reconnects_total",
			Help: "Total number of listener reconnect attempts",
		},
	)

	// TransfersSubmitted tracks broadcasted transfers
	TransfersSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tonkit_transfers_submitted_total",
			Help: "Total number of transfers submitted",
		},
	)
)
