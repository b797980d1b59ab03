package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	gateWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cantdrown",
		Name:      "gate_wait_seconds",
		Help:      "Time callers spent waiting for a resolver slot",
		Buckets:   []float64{0, 0.1, 0.5, 1, 5, 12, 30, 60, 120},
	})

	spawnTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cantdrown",
			Name:      "pipeline_spawn_total",
			Help:      "Pipeline spawn attempts by outcome",
		},
		[]string{"outcome"},
	)

	restartTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cantdrown",
		Name:      "source_restart_total",
		Help:      "Source restarts, including seeks",
	})

	livePipelines = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "cantdrown",
		Name:      "pipelines_live",
		Help:      "Pipelines currently holding processes",
	})

	terminateTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cantdrown",
			Name:      "process_terminate_total",
			Help:      "Process group termination signals by signal and result",
		},
		[]string{"signal", "result"},
	)
)

// recordSpawn records the outcome of a spawn attempt; nil means success.
func recordSpawn(err error) {
	if err == nil {
		spawnTotal.WithLabelValues("ok").Inc()
		return
	}
	if kind, ok := KindOf(err); ok {
		spawnTotal.WithLabelValues(kind.String()).Inc()
		return
	}
	spawnTotal.WithLabelValues("other").Inc()
}
