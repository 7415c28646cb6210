package backtest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendnav/knn-navigator/internal/navigator"
	"github.com/trendnav/knn-navigator/pkg/config"
)

func TestCalculateMaxDrawdown(t *testing.T) {
	r := &Results{Equity: []float64{100, 120, 90, 110, 80, 130}}

	// Running max 120 -> trough 80
	assert.InDelta(t, (80.0-120.0)/120.0, r.calculateMaxDrawdown(), 1e-12)
}

func TestCalculateMaxDrawdown_MonotonicGrowth(t *testing.T) {
	r := &Results{Equity: []float64{100, 110, 120}}
	assert.Equal(t, 0.0, r.calculateMaxDrawdown())
}

func TestCalculateAnnualizedReturn_LegacyExponent(t *testing.T) {
	r := &Results{
		StartBalance: 1000,
		EndBalance:   1200,
		Equity:       make([]float64, 100),
	}

	// (1.2)^(365.25/100) - 1: 100 bars stand in for 100 calendar days.
	want := math.Pow(1.2, 365.25/100.0) - 1
	assert.InDelta(t, want, r.calculateAnnualizedReturn(365.25), 1e-12)
}

func TestCalculateSortinoRatio_KnownValues(t *testing.T) {
	// Per-bar returns: +10%, -10%, +10%, -10% around a fixed base.
	r := &Results{Equity: []float64{100, 110, 99, 108.9, 98.01}}

	returns := r.periodReturns()
	require.Len(t, returns, 4)

	avg := 0.0
	for _, ret := range returns {
		avg += ret
	}
	avg /= 4

	// Both negative returns are exactly -0.10, so downside deviation is 0 and
	// the fallback kicks in.
	want := avg / downsideFallback * math.Sqrt(252)
	assert.InDelta(t, want, r.calculateSortinoRatio(252), 1e-9)
}

func TestCalculateSortinoRatio_NoNegativePeriods(t *testing.T) {
	r := &Results{Equity: []float64{100, 101, 102.01}}

	got := r.calculateSortinoRatio(252)

	// mean(+1%, +1%) / fallback * sqrt(252)
	want := 0.01 / downsideFallback * math.Sqrt(252)
	assert.InDelta(t, want, got, 1e-9)
	assert.False(t, math.IsInf(got, 1))
}

func TestCalculateSortinoRatio_ScalesWithBarsPerYear(t *testing.T) {
	r := &Results{Equity: []float64{100, 102, 101, 103}}

	daily := r.calculateSortinoRatio(252)
	hourly := r.calculateSortinoRatio(252 * 24)

	assert.InDelta(t, math.Sqrt(24), hourly/daily, 1e-9)
}

func TestCalculateProfitFactor_PerTrade(t *testing.T) {
	r := &Results{Trades: []Trade{
		{ReturnPct: 0.10, Profitable: true},
		{ReturnPct: -0.04},
		{ReturnPct: 0.02, Profitable: true},
	}}

	got := r.calculateProfitFactor(config.ProfitFactorPerTrade)
	assert.InDelta(t, 0.12/0.04, got, 1e-12)
}

func TestCalculateProfitFactor_PerBar(t *testing.T) {
	r := &Results{Equity: []float64{100, 110, 99}}

	// Per-bar returns: +10%, -10%
	got := r.calculateProfitFactor(config.ProfitFactorPerBar)
	assert.InDelta(t, 0.10/0.10, got, 1e-12)
}

func TestCalculateProfitFactor_BasesDiverge(t *testing.T) {
	// One winning trade but a bumpy equity path in between.
	r := &Results{
		Equity: []float64{100, 90, 120},
		Trades: []Trade{{ReturnPct: 0.20, Profitable: true}},
	}

	perTrade := r.calculateProfitFactor(config.ProfitFactorPerTrade)
	perBar := r.calculateProfitFactor(config.ProfitFactorPerBar)

	// per_trade sees no losses and hits the epsilon denominator
	assert.InDelta(t, 0.20/downsideFallback, perTrade, 1e-9)
	// per_bar weighs the -10% bar against the +33.3% bar
	assert.InDelta(t, (30.0/90.0)/0.10, perBar, 1e-9)
}

func TestCalculateProfitFactor_NoActivity(t *testing.T) {
	r := &Results{Equity: []float64{100, 100, 100}}

	assert.Equal(t, 0.0, r.calculateProfitFactor(config.ProfitFactorPerBar))
	assert.Equal(t, 0.0, r.calculateProfitFactor(config.ProfitFactorPerTrade))
}

func TestUpdateMetrics_EndToEnd(t *testing.T) {
	engine := newTestEngine(t, func(cfg *config.BacktestConfig) {
		cfg.InitialCapital = 1000
	})

	bars := generateBars([]float64{100, 100, 120, 120, 108, 108})
	signals := []navigator.TradeSignal{
		navigator.SignalHold, navigator.SignalBuy, navigator.SignalSell,
		navigator.SignalBuy, navigator.SignalSell, navigator.SignalHold,
	}

	results, err := engine.Run(bars, signals)
	require.NoError(t, err)

	// Trade 1: 100 -> 120 (+20%), trade 2: 120 -> 108 (-10%)
	assert.Equal(t, 2, results.TotalTrades)
	assert.Equal(t, 1, results.WinningTrades)
	assert.Equal(t, 1, results.LosingTrades)
	assert.InDelta(t, 0.5, results.WinRate, 1e-12)
	assert.InDelta(t, 0.08, results.TotalReturn, 1e-12)
	assert.InDelta(t, -0.10, results.MaxDrawdown, 1e-12)
}
