package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	setPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "setlog_service",
		Subsystem: "persistence",
		Name:      "last_set_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent set log persisted to Postgres.",
	})
	prCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "setlog_service",
		Subsystem: "metrics",
		Name:      "personal_records_total",
		Help:      "Personal records detected while merging exercise metrics.",
	}, []string{"kind"})
	metricsDegraded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "setlog_service",
		Subsystem: "metrics",
		Name:      "degraded_responses_total",
		Help:      "Requests whose metrics stage failed and degraded to a response warning.",
	})
)

func init() {
	prometheus.MustRegister(setPersistGauge, prCounter, metricsDegraded)
}

// RecordSetPersisted updates the persistence watermark gauge.
func RecordSetPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	setPersistGauge.Set(float64(ts.Unix()))
}

// RecordPersonalRecord counts a detected PR by kind ("weight" or "volume").
func RecordPersonalRecord(kind string) {
	prCounter.WithLabelValues(kind).Inc()
}

// RecordMetricsDegraded counts a request whose PR tracking was skipped.
func RecordMetricsDegraded() {
	metricsDegraded.Inc()
}
