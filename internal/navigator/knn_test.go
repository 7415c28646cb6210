package navigator

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendnav/knn-navigator/pkg/config"
)

func TestKNNMA_WarmupIsUndefined(t *testing.T) {
	valueIn := []float64{1, 2, 3, 4, 5, 6}
	targetIn := []float64{1, 2, 3, 4, 5, 6}

	out := KNNMA(valueIn, targetIn, 2, 4, config.TieBreakNearestBar)

	require.Len(t, out, 6)
	for i := 0; i < 4; i++ {
		assert.True(t, math.IsNaN(out[i]), "bar %d should be undefined", i)
	}
	assert.False(t, math.IsNaN(out[4]))
	assert.False(t, math.IsNaN(out[5]))
}

func TestMeanOfKClosest_SelectsKSmallestDistances(t *testing.T) {
	// target 10: distances are 1, 5, 2, 9 -> k=2 picks 9 and 12
	valueIn := []float64{9, 15, 12, 1}
	target := 10.0

	got := meanOfKClosest(valueIn, target, 4, 4, 2, config.TieBreakNearestBar)
	assert.InDelta(t, (9.0+12.0)/2, got, 1e-12)
}

// Cross-check the replace-the-max scan against a sort-based selection on
// random data. Distances are distinct with probability one, so both tie-break
// policies must agree with the sorted answer.
func TestMeanOfKClosest_MatchesSortSelection(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 200; trial++ {
		window := 5 + rng.Intn(20)
		k := 1 + rng.Intn(5)
		values := make([]float64, window+1)
		for i := range values {
			values[i] = rng.Float64() * 100
		}
		target := rng.Float64() * 100

		type cand struct{ dist, val float64 }
		cands := make([]cand, window)
		for i := 0; i < window; i++ {
			cands[i] = cand{math.Abs(target - values[i]), values[i]}
		}
		sort.Slice(cands, func(a, b int) bool { return cands[a].dist < cands[b].dist })

		sum := 0.0
		for i := 0; i < k; i++ {
			sum += cands[i].val
		}
		want := sum / float64(k)

		for _, tie := range []config.TieBreakPolicy{config.TieBreakNearestBar, config.TieBreakOldestBar} {
			got := meanOfKClosest(values, target, window, window, k, tie)
			assert.InDelta(t, want, got, 1e-9, "trial %d policy %s", trial, tie)
		}
	}
}

// All four window candidates are at distance 0.5 from the target; exactly two
// must be selected and averaged. With values alternating 1 and 2 both
// policies land on 1.5 even though they pick different bars, which makes the
// expected output independent of the selection under test.
func TestMeanOfKClosest_EqualDistanceCandidates(t *testing.T) {
	valueIn := []float64{1, 2, 1, 2, 0}
	target := 1.5

	for _, tie := range []config.TieBreakPolicy{config.TieBreakNearestBar, config.TieBreakOldestBar} {
		got := meanOfKClosest(valueIn, target, 4, 4, 2, tie)
		assert.InDelta(t, 1.5, got, 1e-12, "policy %s", tie)
	}
}

// When more than k candidates share the boundary distance, nearest_bar keeps
// the most recent bars and oldest_bar the oldest ones.
func TestMeanOfKClosest_TieBreakPoliciesDiverge(t *testing.T) {
	// window values oldest to newest: 1, 2, 2, 2 - all at distance 0.5
	valueIn := []float64{1, 2, 2, 2, 0}
	target := 1.5

	nearest := meanOfKClosest(valueIn, target, 4, 4, 2, config.TieBreakNearestBar)
	oldest := meanOfKClosest(valueIn, target, 4, 4, 2, config.TieBreakOldestBar)

	assert.InDelta(t, 2.0, nearest, 1e-12) // bars at idx 2,3
	assert.InDelta(t, 1.5, oldest, 1e-12)  // bars at idx 0,1
}

// Equal-distance candidates never evict a retained slot: replacement requires
// a strictly smaller distance.
func TestMeanOfKClosest_StrictReplacementOnTies(t *testing.T) {
	// distances: 8 -> 5, 2 -> 1, 4 -> 1
	valueIn := []float64{8, 2, 4}
	target := 3.0

	// nearest_bar admits 4 first; 2 ties and must not replace it
	got := meanOfKClosest(valueIn, target, 3, 3, 1, config.TieBreakNearestBar)
	assert.InDelta(t, 4.0, got, 1e-12)

	// oldest_bar admits 8 then replaces it with 2; 4 ties and is rejected
	got = meanOfKClosest(valueIn, target, 3, 3, 1, config.TieBreakOldestBar)
	assert.InDelta(t, 2.0, got, 1e-12)
}

func TestMeanOfKClosest_SkipsUndefinedCandidates(t *testing.T) {
	valueIn := []float64{math.NaN(), 7, math.NaN(), 9}
	target := 8.0

	got := meanOfKClosest(valueIn, target, 4, 4, 2, config.TieBreakNearestBar)
	assert.InDelta(t, 8.0, got, 1e-12)
}

func TestMeanOfKClosest_AllUndefinedIsUndefined(t *testing.T) {
	valueIn := []float64{math.NaN(), math.NaN(), math.NaN()}

	got := meanOfKClosest(valueIn, 5.0, 3, 3, 2, config.TieBreakNearestBar)
	assert.True(t, math.IsNaN(got))
}

func TestMeanOfKClosest_UndefinedTargetIsUndefined(t *testing.T) {
	valueIn := []float64{1, 2, 3}

	got := meanOfKClosest(valueIn, math.NaN(), 3, 3, 2, config.TieBreakNearestBar)
	assert.True(t, math.IsNaN(got))
}

// Output at index i depends only on value_in[i-window..i-1] and target_in[i]:
// mutating anything outside that range must not change it.
func TestKNNMA_Locality(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	const n = 80
	const window = 10
	const k = 3

	valueIn := make([]float64, n)
	targetIn := make([]float64, n)
	for i := range valueIn {
		valueIn[i] = rng.Float64() * 50
		targetIn[i] = rng.Float64() * 50
	}

	base := KNNMA(valueIn, targetIn, k, window, config.TieBreakNearestBar)

	probe := 40 // inside the defined region
	for trial := 0; trial < 100; trial++ {
		mutated := make([]float64, n)
		copy(mutated, valueIn)
		mutatedTarget := make([]float64, n)
		copy(mutatedTarget, targetIn)

		// Pick a value_in index outside [probe-window, probe-1] to mutate.
		idx := rng.Intn(n)
		for idx >= probe-window && idx < probe {
			idx = rng.Intn(n)
		}
		mutated[idx] = rng.Float64() * 1000

		// Mutate target_in anywhere except the probe itself.
		tIdx := rng.Intn(n)
		for tIdx == probe {
			tIdx = rng.Intn(n)
		}
		mutatedTarget[tIdx] = rng.Float64() * 1000

		out := KNNMA(mutated, mutatedTarget, k, window, config.TieBreakNearestBar)
		assert.Equal(t, base[probe], out[probe], "trial %d mutated value[%d] target[%d]", trial, idx, tIdx)
	}
}

func TestSmoothKNNMA_RequiresFiveDefinedTerms(t *testing.T) {
	knnMA := []float64{math.NaN(), math.NaN(), 1, 2, 3, 4, 5, 6}
	smoothed := SmoothKNNMA(knnMA)

	for i := 0; i < 6; i++ {
		assert.True(t, math.IsNaN(smoothed[i]), "bar %d", i)
	}
	// (1 + 2*2 + 3*3 + 4*4 + 5*5) / 15
	assert.InDelta(t, 55.0/15.0, smoothed[6], 1e-12)
	// (2 + 3*2 + 4*3 + 5*4 + 6*5) / 15
	assert.InDelta(t, 70.0/15.0, smoothed[7], 1e-12)
}
