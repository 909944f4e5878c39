package reconcile

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	passesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rinku",
			Subsystem: "reconcile",
			Name:      "passes_total",
			Help:      "Reconciliation passes by outcome.",
		},
		[]string{"outcome"},
	)

	photoTransfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rinku",
			Subsystem: "reconcile",
			Name:      "photo_transfers_total",
			Help:      "Photo downloads and uploads by outcome.",
		},
		[]string{"direction", "outcome"},
	)

	localCreatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rinku",
			Subsystem: "reconcile",
			Name:      "local_creates_total",
			Help:      "Remote creations of local-only records by outcome.",
		},
		[]string{"outcome"},
	)

	passDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "rinku",
			Subsystem: "reconcile",
			Name:      "pass_duration_seconds",
			Help:      "Wall time of a reconciliation pass.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)
