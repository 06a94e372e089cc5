package qureg

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	localityLocal  = "local"
	localityGlobal = "global"
)

var (
	gateApplications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qureg_gate_applications_total",
		Help: "Gate applications by gate name and target locality.",
	}, []string{"gate", "locality"})

	exchanges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qureg_exchanges_total",
		Help: "Pairwise shard exchanges issued by this process.",
	})

	exchangeAmplitudes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qureg_exchange_amplitudes_total",
		Help: "Amplitudes shipped through pairwise exchanges.",
	})

	reductions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qureg_reductions_total",
		Help: "All-reduce calls issued by this process.",
	})

	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "qureg_operation_duration_seconds",
		Help:    "Wall time of register operations.",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10µs to ~2.6s
	}, []string{"op"})

	registersLive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "qureg_registers_live",
		Help: "Registers constructed and not yet destroyed.",
	})
)

func observe(op string, start time.Time) {
	operationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func locality(global bool) string {
	if global {
		return localityGlobal
	}
	return localityLocal
}
