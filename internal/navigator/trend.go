package navigator

import "math"

// TrendState classifies the bar-over-bar change of the smoothed signal.
type TrendState int

const (
	TrendNeutral TrendState = iota
	TrendUp
	TrendDown
)

func (t TrendState) String() string {
	switch t {
	case TrendUp:
		return "up"
	case TrendDown:
		return "down"
	default:
		return "neutral"
	}
}

// TradeSignal is the discrete decision derived from trend flips.
type TradeSignal int

const (
	SignalHold TradeSignal = iota
	SignalBuy
	SignalSell
)

func (s TradeSignal) String() string {
	switch s {
	case SignalBuy:
		return "buy"
	case SignalSell:
		return "sell"
	default:
		return "hold"
	}
}

// DeriveTrend classifies each bar by comparing the smoothed signal with its
// previous value. Bar 0 and any comparison involving NaN are Neutral. With
// the positivity guard enabled, Up/Down additionally require the current
// value to be positive.
func DeriveTrend(smoothed []float64, positivityGuard bool) []TrendState {
	trend := make([]TrendState, len(smoothed))
	for i := 1; i < len(smoothed); i++ {
		cur, prev := smoothed[i], smoothed[i-1]
		if math.IsNaN(cur) || math.IsNaN(prev) {
			continue
		}
		if positivityGuard && cur <= 0 {
			continue
		}

		switch {
		case cur > prev:
			trend[i] = TrendUp
		case cur < prev:
			trend[i] = TrendDown
		}
	}
	return trend
}

// DeriveSignals emits Buy on a Down-to-Up flip and Sell on an Up-to-Down
// flip. An open-position flag matches each Sell to a prior Buy, so over any
// prefix the Buy count exceeds the Sell count by at most one.
func DeriveSignals(trend []TrendState) []TradeSignal {
	signals := make([]TradeSignal, len(trend))
	open := false
	for i := 1; i < len(trend); i++ {
		switch {
		case trend[i-1] == TrendDown && trend[i] == TrendUp && !open:
			signals[i] = SignalBuy
			open = true
		case trend[i-1] == TrendUp && trend[i] == TrendDown && open:
			signals[i] = SignalSell
			open = false
		}
	}
	return signals
}
