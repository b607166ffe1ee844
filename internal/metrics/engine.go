package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReadingsIngestedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "readings_ingested_total",
		Namespace: NostradamusNamespace,
		Help:      "Readings handed to ingestion, by outcome and transport.",
	}, []string{"outcome", "source"})

	FindingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "findings_total",
		Namespace: NostradamusNamespace,
		Help:      "Threshold findings raised during ingestion.",
	}, []string{"metric", "severity"})

	CooldownDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "cooldown_decisions_total",
		Namespace: NostradamusNamespace,
		Help:      "Outbound alert decisions taken by the cooldown controller.",
	}, []string{"decision"})

	CooldownFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name:      "cooldown_fallbacks_total",
		Namespace: NostradamusNamespace,
		Help:      "Cooldown checks answered locally because the shared store failed.",
	})

	AlertsDispatchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "alerts_dispatched_total",
		Namespace: NostradamusNamespace,
		Help:      "Outbound alerts handed to a notifier, by notifier and status.",
	}, []string{"notifier", "status"})

	RecommendationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "recommendations_total",
		Namespace: NostradamusNamespace,
		Help:      "Recommendations produced by the synthesizer.",
	}, []string{"type", "category"})

	HealthScore = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name:      "health_score",
		Namespace: NostradamusNamespace,
		Help:      "Last computed health score per sensor.",
	}, []string{"sensor_id"})
)
