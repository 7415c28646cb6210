package navigator

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendnav/knn-navigator/pkg/config"
)

func testNavigatorConfig() config.NavigatorConfig {
	cfg := config.DefaultConfig().Navigator
	cfg.K = 3
	cfg.WindowSize = 10
	cfg.SmoothingPeriod = 8
	cfg.MALen = 5
	return cfg
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := testNavigatorConfig()
	cfg.WindowSize = 1 // below k

	_, err := New(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "window size")
}

func TestCompute_OutputShapeAndWarmup(t *testing.T) {
	nav, err := New(testNavigatorConfig())
	require.NoError(t, err)

	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + 5*math.Sin(float64(i)/6)
	}
	bars := generateBars(closes)

	set := nav.Compute(bars)

	require.Equal(t, 60, set.Len())
	require.Len(t, set.KnnMA, 60)
	require.Len(t, set.KnnMASmoothed, 60)
	require.Len(t, set.MAKnnMA, 60)
	require.Len(t, set.Trend, 60)
	require.Len(t, set.Price, 60)
	require.Len(t, set.Timestamps, 60)

	for i := 0; i < 10; i++ {
		assert.True(t, math.IsNaN(set.KnnMA[i]), "knnMA[%d] should be undefined in the warm-up", i)
		assert.Equal(t, TrendNeutral, set.Trend[i])
		assert.Equal(t, SignalHold, set.Signals[i])
	}

	// Well past every warm-up the pipeline must produce defined values.
	assert.False(t, math.IsNaN(set.KnnMA[59]))
	assert.False(t, math.IsNaN(set.KnnMASmoothed[59]))
	assert.False(t, math.IsNaN(set.MAKnnMA[59]))
}

func TestCompute_EmptyInput(t *testing.T) {
	nav, err := New(testNavigatorConfig())
	require.NoError(t, err)

	set := nav.Compute(nil)
	assert.Equal(t, 0, set.Len())
}

func TestCompute_SignalBalanceOnNoisyData(t *testing.T) {
	nav, err := New(testNavigatorConfig())
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(99))
	closes := make([]float64, 400)
	price := 100.0
	for i := range closes {
		price *= 1 + (rng.Float64()-0.5)*0.04
		closes[i] = price
	}

	set := nav.Compute(generateBars(closes))

	balance := 0
	for _, s := range set.Signals {
		switch s {
		case SignalBuy:
			balance++
		case SignalSell:
			balance--
		}
		require.GreaterOrEqual(t, balance, 0)
		require.LessOrEqual(t, balance, 1)
	}
}

func TestCompute_IsDeterministic(t *testing.T) {
	nav, err := New(testNavigatorConfig())
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(5))
	closes := make([]float64, 120)
	for i := range closes {
		closes[i] = 100 + rng.Float64()*20
	}
	bars := generateBars(closes)

	a := nav.Compute(bars)
	b := nav.Compute(bars)

	assert.Equal(t, a.Signals, b.Signals)
	for i := range a.KnnMA {
		if math.IsNaN(a.KnnMA[i]) {
			assert.True(t, math.IsNaN(b.KnnMA[i]))
			continue
		}
		assert.Equal(t, a.KnnMA[i], b.KnnMA[i])
	}
}
