package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	actionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simvault_actions_total",
		Help: "Dispatched actions by outcome status code",
	}, []string{"action", "status"})

	actionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "simvault_action_duration_seconds",
		Help:    "Action handling latency, vendor round-trips included",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"action"})
)
