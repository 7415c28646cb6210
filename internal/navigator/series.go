package navigator

import (
	"math"

	"github.com/trendnav/knn-navigator/pkg/config"
	"github.com/trendnav/knn-navigator/pkg/types"
)

// Series helpers operate on full slices and mark warm-up bars with NaN so
// insufficient history propagates as an undefined value, never an error.

// Closes extracts the close series.
func Closes(data []types.OHLCV) []float64 {
	out := make([]float64, len(data))
	for i, bar := range data {
		out[i] = bar.Close
	}
	return out
}

// HL2 extracts the (high+low)/2 series.
func HL2(data []types.OHLCV) []float64 {
	out := make([]float64, len(data))
	for i, bar := range data {
		out[i] = bar.HL2()
	}
	return out
}

// SMASeries computes a trailing simple moving average, inclusive of the
// current bar. Bars without a full window, or whose window contains an
// undefined value, are NaN.
func SMASeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if i < period-1 {
			out[i] = math.NaN()
			continue
		}

		sum := 0.0
		valid := true
		for j := i - period + 1; j <= i; j++ {
			if math.IsNaN(values[j]) {
				valid = false
				break
			}
			sum += values[j]
		}

		if !valid {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(period)
	}
	return out
}

// EMASeries computes an exponentially weighted average with span semantics:
// alpha = 2/(span+1) and weights normalized over the observed history, so the
// series is defined from the first bar onward.
func EMASeries(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	alpha := 2.0 / float64(span+1)
	decay := 1.0 - alpha

	num := 0.0
	den := 0.0
	for i, v := range values {
		if math.IsNaN(v) {
			out[i] = math.NaN()
			continue
		}
		num = v + decay*num
		den = 1 + decay*den
		out[i] = num / den
	}
	return out
}

// WMASeries computes a trailing linearly weighted moving average with weights
// 1..period (weight sum period*(period+1)/2). NaN until the window is full.
func WMASeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	weightSum := float64(period*(period+1)) / 2

	for i := range values {
		if i < period-1 {
			out[i] = math.NaN()
			continue
		}

		weighted := 0.0
		valid := true
		for j := 0; j < period; j++ {
			v := values[i-period+1+j]
			if math.IsNaN(v) {
				valid = false
				break
			}
			weighted += v * float64(j+1)
		}

		if !valid {
			out[i] = math.NaN()
			continue
		}
		out[i] = weighted / weightSum
	}
	return out
}

// ValueSeries builds the value_in feature series from the bar sequence.
func ValueSeries(data []types.OHLCV, source string, maLen int) []float64 {
	switch source {
	case config.SourceSMA:
		return SMASeries(Closes(data), maLen)
	case config.SourceEMA:
		return EMASeries(Closes(data), maLen)
	case config.SourceWMA:
		return WMASeries(Closes(data), maLen)
	default:
		// hl2: SMA of the bar midpoint
		return SMASeries(HL2(data), maLen)
	}
}

// TargetSeries builds the target_in feature series from the bar sequence.
func TargetSeries(data []types.OHLCV, source string, maLen int) []float64 {
	switch source {
	case config.TargetSMA:
		return SMASeries(Closes(data), maLen)
	default:
		// price_action and ema are both the EMA of the close
		return EMASeries(Closes(data), maLen)
	}
}
