// Package optimize sweeps the navigator parameter space, evaluating each
// combination through the signal pipeline and backtest engine on a bounded
// worker pool, and ranks the results.
package optimize

import (
	"fmt"
	"math/rand"
)

// ParameterSet is one point of the search space.
type ParameterSet struct {
	K               int `json:"number_of_closest_values"`
	SmoothingPeriod int `json:"smoothing_period"`
	WindowSize      int `json:"window_size"`
	MALen           int `json:"ma_len"`
}

func (p ParameterSet) String() string {
	return fmt.Sprintf("k=%d smoothing=%d window=%d maLen=%d",
		p.K, p.SmoothingPeriod, p.WindowSize, p.MALen)
}

// Valid is the domain guard applied before evaluation.
func (p ParameterSet) Valid() bool {
	return p.K >= 1 &&
		p.SmoothingPeriod >= 1 &&
		p.MALen >= 1 &&
		p.WindowSize >= p.K
}

// Space defines per-field candidate values; the search space is their
// Cartesian product.
type Space struct {
	K               []int `json:"number_of_closest_values"`
	SmoothingPeriod []int `json:"smoothing_period"`
	WindowSize      []int `json:"window_size"`
	MALen           []int `json:"ma_len"`
}

// DefaultSpace returns the comprehensive ranges used for broad sweeps.
func DefaultSpace() Space {
	return Space{
		K:               intRange(2, 20, 1),
		SmoothingPeriod: intRange(10, 200, 10),
		WindowSize:      intRange(10, 100, 5),
		MALen:           intRange(2, 25, 1),
	}
}

// FocusedSpace returns narrower ranges around historically strong regions.
func FocusedSpace() Space {
	return Space{
		K:               intRange(6, 20, 1),
		SmoothingPeriod: intRange(60, 200, 10),
		WindowSize:      intRange(25, 80, 5),
		MALen:           intRange(10, 25, 1),
	}
}

func intRange(lo, hi, step int) []int {
	var out []int
	for v := lo; v <= hi; v += step {
		out = append(out, v)
	}
	return out
}

// Size returns the number of combinations in the full Cartesian product.
func (s Space) Size() int {
	return len(s.K) * len(s.SmoothingPeriod) * len(s.WindowSize) * len(s.MALen)
}

// Combinations enumerates the full Cartesian product in deterministic order.
func (s Space) Combinations() []ParameterSet {
	out := make([]ParameterSet, 0, s.Size())
	for _, k := range s.K {
		for _, sp := range s.SmoothingPeriod {
			for _, w := range s.WindowSize {
				for _, ma := range s.MALen {
					out = append(out, ParameterSet{
						K:               k,
						SmoothingPeriod: sp,
						WindowSize:      w,
						MALen:           ma,
					})
				}
			}
		}
	}
	return out
}

// Sample returns at most max combinations drawn without replacement using a
// fixed seed, so a capped sweep is reproducible. The full product is returned
// when it already fits.
func (s Space) Sample(max int, seed int64) []ParameterSet {
	all := s.Combinations()
	if max <= 0 || len(all) <= max {
		return all
	}

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(all), func(i, j int) {
		all[i], all[j] = all[j], all[i]
	})
	return all[:max]
}
