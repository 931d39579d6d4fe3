package metrics

import (
	"math"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// LatencySummary condenses one operation's latency histogram.
type LatencySummary struct {
	Count uint64  `json:"count"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
}

// EngineSnapshot is a JSON-friendly view of the engine metrics.
type EngineSnapshot struct {
	Suggestions map[string]float64        `json:"suggestions_by_strategy"`
	Intents     map[string]float64        `json:"queries_by_intent"`
	Forecasts   float64                   `json:"forecasts"`
	Training    map[string]float64        `json:"training_runs"`
	StockAlerts map[string]float64        `json:"stock_alerts"`
	Latency     map[string]LatencySummary `json:"latency"`
}

// Snapshot reads the engine metrics back out of gatherer. Families that were
// never observed come back as empty maps.
func Snapshot(gatherer prometheus.Gatherer) EngineSnapshot {
	out := EngineSnapshot{
		Suggestions: map[string]float64{},
		Intents:     map[string]float64{},
		Training:    map[string]float64{},
		StockAlerts: map[string]float64{},
		Latency:     map[string]LatencySummary{},
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mfs, err := gatherer.Gather()
	if err != nil {
		return out
	}

	for _, mf := range mfs {
		if mf == nil {
			continue
		}
		switch mf.GetName() {
		case suggestionsName:
			collectCounters(mf, "strategy", out.Suggestions)
		case intentsName:
			collectCounters(mf, "intent", out.Intents)
		case trainingName:
			collectCounters(mf, "outcome", out.Training)
		case forecastsName:
			for _, metric := range mf.Metric {
				out.Forecasts += metric.GetCounter().GetValue()
			}
		case stockAlertsName:
			for _, metric := range mf.Metric {
				out.StockAlerts[labelValue(metric, "severity")] = metric.GetGauge().GetValue()
			}
		case latencyName:
			for _, metric := range mf.Metric {
				if h := metric.GetHistogram(); h != nil {
					out.Latency[labelValue(metric, "operation")] = summarize(h)
				}
			}
		}
	}
	return out
}

func collectCounters(mf *dto.MetricFamily, label string, into map[string]float64) {
	for _, metric := range mf.Metric {
		if metric == nil {
			continue
		}
		into[labelValue(metric, label)] += metric.GetCounter().GetValue()
	}
}

func labelValue(metric *dto.Metric, name string) string {
	for _, lp := range metric.Label {
		if lp != nil && lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func summarize(h *dto.Histogram) LatencySummary {
	total := h.GetSampleCount()
	if total == 0 {
		return LatencySummary{}
	}
	cumulativeByUpper := map[float64]uint64{}
	for _, b := range h.Bucket {
		if b == nil {
			continue
		}
		cumulativeByUpper[b.GetUpperBound()] = b.GetCumulativeCount()
	}
	cumulativeByUpper[math.Inf(1)] = total

	uppers := make([]float64, 0, len(cumulativeByUpper))
	for upper := range cumulativeByUpper {
		uppers = append(uppers, upper)
	}
	sort.Float64s(uppers)

	return LatencySummary{
		Count: total,
		P50Ms: histogramQuantile(0.50, total, uppers, cumulativeByUpper) * 1000.0,
		P95Ms: histogramQuantile(0.95, total, uppers, cumulativeByUpper) * 1000.0,
	}
}

// histogramQuantile interpolates linearly inside the bucket holding the
// q-th sample. Samples past the last finite bound report that bound.
func histogramQuantile(q float64, total uint64, uppers []float64, cumulativeByUpper map[float64]uint64) float64 {
	if total == 0 || q <= 0 || len(uppers) == 0 {
		return 0
	}

	target := q * float64(total)
	var prevUpper, prevCum float64
	for _, upper := range uppers {
		cum := float64(cumulativeByUpper[upper])
		if cum < target {
			prevUpper, prevCum = upper, cum
			continue
		}
		if math.IsInf(upper, 1) {
			return prevUpper
		}
		bucketCount := cum - prevCum
		if bucketCount <= 0 {
			return upper
		}
		fraction := math.Min(math.Max((target-prevCum)/bucketCount, 0), 1)
		return prevUpper + fraction*(upper-prevUpper)
	}
	return prevUpper
}
