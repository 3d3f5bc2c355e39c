// Package analytics holds the in-memory engines that turn processed events
// into funnels, retention cohorts, segment comparisons and subscription metrics.
// Every function is pure: inputs are never mutated and no state survives a call.
package analytics

import (
	"math"
	"sort"
)

// percentile returns the element at index floor(n*q) of the sorted values,
// clamped to the last element. No interpolation. Returns nil for no values.
func percentile(values []float64, q float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	idx := int(math.Floor(float64(len(sorted)) * q))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	v := sorted[idx]
	return &v
}

// lowerMedian is percentile at 0.5, i.e. sorted[n/2].
func lowerMedian(values []float64) *float64 {
	return percentile(values, 0.5)
}

// rate returns part/whole as a percentage, 0 when whole is 0.
func rate(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// ratePtr is rate but nil when whole is 0.
func ratePtr(part, whole int) *float64 {
	if whole == 0 {
		return nil
	}
	r := rate(part, whole)
	return &r
}

func float64Ptr(v float64) *float64 {
	return &v
}
