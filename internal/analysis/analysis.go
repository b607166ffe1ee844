// Package analysis derives rates of change and health scores from readings.
package analysis

import (
	"math"

	"github.com/ntentasd/nostradamus-advisor/pkg/types"
)

// Trend returns the rate of change of metric in units per hour over history,
// which is ordered most recent first. Fewer than two points, or a window that
// does not move forward in time, give 0.
func Trend(history []types.Reading, metric types.Metric) float64 {
	if len(history) < 2 {
		return 0
	}
	latest, oldest := history[0], history[len(history)-1]

	hours := latest.Timestamp.Sub(oldest.Timestamp).Hours()
	if hours <= 0 {
		return 0
	}

	a, ok := latest.Value(metric)
	if !ok {
		return 0
	}
	b, ok := oldest.Value(metric)
	if !ok {
		return 0
	}

	rate := (a - b) / hours
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return 0
	}
	return rate
}

// Mean averages metric over history. The second result is false when no
// reading carries the metric.
func Mean(history []types.Reading, metric types.Metric) (float64, bool) {
	var sum float64
	n := 0
	for _, r := range history {
		v, ok := r.Value(metric)
		if !ok || math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
