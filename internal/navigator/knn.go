package navigator

import (
	"math"

	"github.com/trendnav/knn-navigator/pkg/config"
)

// meanOfKClosest returns the average of the k values in the window strictly
// preceding idx whose absolute distance to target is smallest.
//
// The candidate set is a fixed array of k (distance, value) slots initialized
// to +Inf. Scanned bars replace the current worst slot only on a strictly
// smaller distance, so equal-distance candidates never evict retained ones
// and the scan direction resolves ties at the k-th boundary: nearest_bar
// scans backward from idx-1 and keeps the most recent bars, oldest_bar scans
// forward from idx-windowSize and keeps the oldest. NaN if no finite slot
// remains.
func meanOfKClosest(valueIn []float64, target float64, idx, windowSize, k int, tie config.TieBreakPolicy) float64 {
	if math.IsNaN(target) {
		return math.NaN()
	}

	distances := make([]float64, k)
	values := make([]float64, k)
	for i := range distances {
		distances[i] = math.Inf(1)
	}

	admit := func(j int) {
		if j < 0 || j >= idx {
			return
		}
		v := valueIn[j]
		if math.IsNaN(v) {
			return
		}
		distance := math.Abs(target - v)

		worst := 0
		for i := 1; i < k; i++ {
			if distances[i] > distances[worst] {
				worst = i
			}
		}
		if distance < distances[worst] {
			distances[worst] = distance
			values[worst] = v
		}
	}

	if tie == config.TieBreakOldestBar {
		for j := idx - windowSize; j <= idx-1; j++ {
			admit(j)
		}
	} else {
		for back := 1; back <= windowSize; back++ {
			admit(idx - back)
		}
	}

	sum := 0.0
	count := 0
	for i, d := range distances {
		if !math.IsInf(d, 1) {
			sum += values[i]
			count++
		}
	}

	if count == 0 {
		return math.NaN()
	}
	return sum / float64(count)
}

// KNNMA computes the windowed k-closest average for every bar. Bars with
// fewer than windowSize predecessors are NaN.
func KNNMA(valueIn, targetIn []float64, k, windowSize int, tie config.TieBreakPolicy) []float64 {
	out := make([]float64, len(targetIn))
	for i := range targetIn {
		if i < windowSize {
			out[i] = math.NaN()
			continue
		}
		out[i] = meanOfKClosest(valueIn, targetIn[i], i, windowSize, k, tie)
	}
	return out
}

// SmoothKNNMA applies the fixed 5-term linearly weighted average (weights
// 1..5 normalized) over knnMA[i-4..i]. NaN unless all five terms are defined.
func SmoothKNNMA(knnMA []float64) []float64 {
	return WMASeries(knnMA, 5)
}
