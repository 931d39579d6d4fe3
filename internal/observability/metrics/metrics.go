package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	namespace = "meditrack"
	subsystem = "engine"
)

// Fully-qualified names, read back by Snapshot.
const (
	suggestionsName = namespace + "_" + subsystem + "_slot_suggestions_total"
	intentsName     = namespace + "_" + subsystem + "_intent_queries_total"
	forecastsName   = namespace + "_" + subsystem + "_flow_forecasts_total"
	trainingName    = namespace + "_" + subsystem + "_training_runs_total"
	stockAlertsName = namespace + "_" + subsystem + "_stock_alerts"
	latencyName     = namespace + "_" + subsystem + "_operation_latency_seconds"
)

// EngineMetrics exposes counters and histograms for the suggestion engine.
type EngineMetrics struct {
	suggestions *prometheus.CounterVec
	intents     *prometheus.CounterVec
	forecasts   prometheus.Counter
	training    *prometheus.CounterVec
	stockAlerts *prometheus.GaugeVec
	latency     *prometheus.HistogramVec
}

func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	m := &EngineMetrics{
		suggestions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "slot_suggestions_total",
			Help:      "Slot suggestion requests by scoring strategy",
		}, []string{"strategy"}),
		intents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "intent_queries_total",
			Help:      "Classified free-text queries by intent",
		}, []string{"intent"}),
		forecasts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "flow_forecasts_total",
			Help:      "Patient flow forecasts produced",
		}),
		training: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "training_runs_total",
			Help:      "Slot model training attempts by outcome",
		}, []string{"outcome"}),
		stockAlerts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "stock_alerts",
			Help:      "Active inventory alerts by severity at the last evaluation",
		}, []string{"severity"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "operation_latency_seconds",
			Help:      "Latency of engine operations including storage reads",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"operation"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.suggestions, m.intents, m.forecasts, m.training, m.stockAlerts, m.latency)
	return m
}

func (m *EngineMetrics) ObserveSuggestion(strategy string) {
	if m == nil {
		return
	}
	m.suggestions.WithLabelValues(strategy).Inc()
}

// RegisterIntents exports a zero count for each intent so every label is
// present before its first query.
func (m *EngineMetrics) RegisterIntents(intents ...string) {
	if m == nil {
		return
	}
	for _, intent := range intents {
		m.intents.WithLabelValues(intent)
	}
}

func (m *EngineMetrics) ObserveIntent(intent string) {
	if m == nil {
		return
	}
	m.intents.WithLabelValues(intent).Inc()
}

func (m *EngineMetrics) ObserveForecast() {
	if m == nil {
		return
	}
	m.forecasts.Inc()
}

func (m *EngineMetrics) ObserveTraining(trained bool) {
	if m == nil {
		return
	}
	outcome := "skipped"
	if trained {
		outcome = "trained"
	}
	m.training.WithLabelValues(outcome).Inc()
}

// ObserveStockAlerts records the alert count for one severity.
func (m *EngineMetrics) ObserveStockAlerts(severity string, count int) {
	if m == nil {
		return
	}
	m.stockAlerts.WithLabelValues(severity).Set(float64(count))
}

func (m *EngineMetrics) ObserveLatency(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.latency.WithLabelValues(operation).Observe(seconds)
}
