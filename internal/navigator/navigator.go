// Package navigator computes the kNN-based trend signal: a windowed
// k-closest average over two derived feature series, smoothed and classified
// into up/down/neutral trends and buy/sell/hold decisions.
package navigator

import (
	"time"

	"github.com/trendnav/knn-navigator/pkg/config"
	"github.com/trendnav/knn-navigator/pkg/types"
)

// Navigator runs the full signal pipeline for one parameterization.
type Navigator struct {
	cfg config.NavigatorConfig
}

// SignalSet is the per-bar output table of one pipeline run. All slices have
// the length of the input bar sequence; undefined values are NaN.
type SignalSet struct {
	Timestamps    []time.Time
	Price         []float64
	KnnMA         []float64
	KnnMASmoothed []float64
	MAKnnMA       []float64
	Trend         []TrendState
	Signals       []TradeSignal
}

// New creates a Navigator, rejecting invalid parameters before any data is
// processed.
func New(cfg config.NavigatorConfig) (*Navigator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Navigator{cfg: cfg}, nil
}

// Compute derives the full signal table from the bar sequence. It is a pure
// function of the input; insufficient history shows up as NaN/neutral/hold,
// never as an error.
func (n *Navigator) Compute(data []types.OHLCV) *SignalSet {
	valueIn := ValueSeries(data, n.cfg.ValueSource, n.cfg.MALen)
	targetIn := TargetSeries(data, n.cfg.TargetSource, n.cfg.MALen)

	knnMA := KNNMA(valueIn, targetIn, n.cfg.K, n.cfg.WindowSize, n.cfg.TieBreak)
	smoothed := SmoothKNNMA(knnMA)
	trend := DeriveTrend(smoothed, n.cfg.PositivityGuard)

	set := &SignalSet{
		Timestamps:    make([]time.Time, len(data)),
		Price:         Closes(data),
		KnnMA:         knnMA,
		KnnMASmoothed: smoothed,
		MAKnnMA:       SMASeries(knnMA, n.cfg.SmoothingPeriod),
		Trend:         trend,
		Signals:       DeriveSignals(trend),
	}
	for i, bar := range data {
		set.Timestamps[i] = bar.Timestamp
	}
	return set
}

// Len returns the number of bars in the set.
func (s *SignalSet) Len() int {
	return len(s.Signals)
}
