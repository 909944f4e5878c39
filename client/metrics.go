package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var photoBytesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "rinku_client",
		Name:      "photo_bytes_total",
		Help:      "Photo bytes moved through the blob store; error outcomes count failed calls.",
	},
	[]string{"direction", "outcome"},
)
