package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Phase labels for the periodic loop.
const (
	PhaseScoring   = "scoring"
	PhaseAlerting  = "alerting"
	PhaseReporting = "reporting"
)

// Outcome labels for report deliveries.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

var (
	eventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "healthmon",
			Name:      "events_total",
			Help:      "Total ingested events, partitioned by event type.",
		},
		[]string{"type"},
	)

	eventsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "healthmon",
			Name:      "events_dropped_total",
			Help:      "Malformed events dropped at the ingestion gateway.",
		},
	)

	ticksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "healthmon",
			Name:      "ticks_total",
			Help:      "Completed periodic passes, partitioned by phase.",
		},
		[]string{"phase"},
	)

	ticksSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "healthmon",
			Name:      "ticks_skipped_total",
			Help:      "Ticks skipped because the previous pass was still running.",
		},
		[]string{"phase"},
	)

	tickSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "healthmon",
			Name:      "tick_seconds",
			Help:      "Periodic pass latency in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"phase"},
	)

	reportDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "healthmon",
			Name:      "report_deliveries_total",
			Help:      "Report sink deliveries, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	openAlerts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "healthmon",
			Name:      "open_alerts",
			Help:      "Number of currently open alerts.",
		},
	)
)

// Register attaches healthmon collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		eventsTotal,
		eventsDroppedTotal,
		ticksTotal,
		ticksSkippedTotal,
		tickSeconds,
		reportDeliveriesTotal,
		openAlerts,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveEvent counts one ingested event of the given type.
func ObserveEvent(eventType string) {
	eventsTotal.WithLabelValues(eventType).Inc()
}

// ObserveDropped counts one event dropped at the gateway.
func ObserveDropped() {
	eventsDroppedTotal.Inc()
}

// ObserveTick records a completed pass and its duration.
func ObserveTick(phase string, duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	ticksTotal.WithLabelValues(phase).Inc()
	tickSeconds.WithLabelValues(phase).Observe(duration.Seconds())
}

// ObserveSkippedTick records a tick dropped because its phase was busy.
func ObserveSkippedTick(phase string) {
	ticksSkippedTotal.WithLabelValues(phase).Inc()
}

// ObserveReportDelivery records a sink delivery outcome.
func ObserveReportDelivery(outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	reportDeliveriesTotal.WithLabelValues(label).Inc()
}

// SetOpenAlerts updates the open-alert gauge.
func SetOpenAlerts(n int) {
	openAlerts.Set(float64(n))
}
