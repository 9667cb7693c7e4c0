package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "evac_planner"

// Metrics holds the Prometheus counters, histograms, and gauges for the planner service.
type Metrics struct {
	// Planning metrics.
	PlansTotal       *prometheus.CounterVec // labels: outcome={done,no_safe_route_found,error,stale}
	PlanDuration     prometheus.Histogram
	RoutingFailures  prometheus.Counter
	StaleDiscards    prometheus.Counter
	CandidatesPruned prometheus.Counter

	// Collaborator metrics.
	CollaboratorDuration *prometheus.HistogramVec // labels: collaborator
	CollaboratorErrors   *prometheus.CounterVec   // labels: collaborator

	// Alert and risk metrics.
	RiskAssessments    *prometheus.CounterVec // labels: level
	AlertsProcessed    prometheus.Counter
	AlertsDeduplicated prometheus.Counter

	// Hazard ingestion metrics.
	HazardsIngested prometheus.Counter
	IngestErrors    prometheus.Counter
	IngestRunning   prometheus.Gauge

	// Urban classification metrics.
	ClassifierCache   *prometheus.CounterVec // labels: result={hit,miss}
	ClassifierEnabled prometheus.Gauge
}

// NewMetrics creates and registers all planner metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.PlansTotal,
		m.PlanDuration,
		m.RoutingFailures,
		m.StaleDiscards,
		m.CandidatesPruned,
		m.CollaboratorDuration,
		m.CollaboratorErrors,
		m.RiskAssessments,
		m.AlertsProcessed,
		m.AlertsDeduplicated,
		m.HazardsIngested,
		m.IngestErrors,
		m.IngestRunning,
		m.ClassifierCache,
		m.ClassifierEnabled,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PlansTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plans_total",
			Help:      "Evacuation plans by terminal outcome.",
		}, []string{"outcome"}),
		PlanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "plan_duration_seconds",
			Help:      "Duration of a complete planning run.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}),
		RoutingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routing_failures_total",
			Help:      "Destinations dropped because their route request failed.",
		}),
		StaleDiscards: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_results_discarded_total",
			Help:      "Plan results dropped because a newer request superseded them.",
		}),
		CandidatesPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_downwind_total",
			Help:      "Candidate destinations removed by the downwind safety cone.",
		}),
		CollaboratorDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "collaborator_duration_seconds",
			Help:      "External collaborator call duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"collaborator"}),
		CollaboratorErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collaborator_errors_total",
			Help:      "External collaborator call failures.",
		}, []string{"collaborator"}),
		RiskAssessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "risk_assessments_total",
			Help:      "Risk assessments by resulting level.",
		}, []string{"level"}),
		AlertsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_processed_total",
			Help:      "Raw alert records received for processing.",
		}),
		AlertsDeduplicated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_deduplicated_total",
			Help:      "Alert records dropped as near-duplicates.",
		}),
		HazardsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hazards_ingested_total",
			Help:      "Hazard events written to the hazard index.",
		}),
		IngestErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_errors_total",
			Help:      "Hazard feed fetch or store failures.",
		}),
		IngestRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ingest_running",
			Help:      "1 when hazard ingestion is active, 0 when shut down.",
		}),
		ClassifierCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "urban_classifier_cache_total",
			Help:      "Urban classification cache lookups by result.",
		}, []string{"result"}),
		ClassifierEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "urban_classifier_enabled",
			Help:      "1 when Mapbox urban classification is enabled, 0 otherwise.",
		}),
	}
}

// ObserveCall records the duration of an external collaborator call and
// counts it as an error when err is non-nil.
func (m *Metrics) ObserveCall(collaborator string, start time.Time, err error) {
	m.CollaboratorDuration.WithLabelValues(collaborator).Observe(time.Since(start).Seconds())
	if err != nil {
		m.CollaboratorErrors.WithLabelValues(collaborator).Inc()
	}
}
