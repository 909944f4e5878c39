package recordstore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rinku",
			Subsystem: "recordstore",
			Name:      "mutations_total",
			Help:      "Local mutations applied, by operation.",
		},
		[]string{"op"},
	)

	pushFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rinku",
			Subsystem: "recordstore",
			Name:      "push_failures_total",
			Help:      "Background remote pushes that failed or could not be enqueued, by operation.",
		},
		[]string{"op"},
	)

	pushSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rinku",
			Subsystem: "recordstore",
			Name:      "push_skipped_total",
			Help:      "Background pushes dropped because the session changed before they ran.",
		},
		[]string{"op"},
	)

	photoUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rinku",
			Subsystem: "recordstore",
			Name:      "photo_uploads_total",
			Help:      "Photos uploaded after a background create, by result.",
		},
		[]string{"result"},
	)

	passesDiscardedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rinku",
			Subsystem: "recordstore",
			Name:      "passes_discarded_total",
			Help:      "Reconciliation results thrown away after an identity change.",
		},
	)
)
