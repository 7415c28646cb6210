package backtest

import (
	"math"

	"github.com/trendnav/knn-navigator/pkg/config"
)

// Downside-deviation fallback when a run has no negative periods, so ratio
// ranking never has to order infinities.
const downsideFallback = 0.01

// updateMetrics computes all performance metrics once from the equity curve
// and the completed-trade list. Numeric edge cases degrade to documented
// fallbacks, never to errors.
func (r *Results) updateMetrics(cfg config.BacktestConfig) {
	r.TotalReturn = r.EndBalance/r.StartBalance - 1
	r.AnnualizedReturn = r.calculateAnnualizedReturn(cfg.DaysPerYear)
	r.MaxDrawdown = r.calculateMaxDrawdown()
	r.SortinoRatio = r.calculateSortinoRatio(cfg.BarsPerYear)
	r.ProfitFactor = r.calculateProfitFactor(cfg.ProfitFactorBasis)

	r.TotalTrades = len(r.Trades)
	for _, trade := range r.Trades {
		if trade.Profitable {
			r.WinningTrades++
		}
	}
	r.LosingTrades = r.TotalTrades - r.WinningTrades
	if r.TotalTrades > 0 {
		r.WinRate = float64(r.WinningTrades) / float64(r.TotalTrades)
	}
}

// calculateAnnualizedReturn compounds the total return over
// daysPerYear/barCount periods. Bar count deliberately stands in for elapsed
// calendar days; callers with non-daily bars recalibrate via config.
func (r *Results) calculateAnnualizedReturn(daysPerYear float64) float64 {
	bars := float64(len(r.Equity))
	if bars == 0 || r.StartBalance <= 0 || r.EndBalance <= 0 {
		return 0
	}
	return math.Pow(r.EndBalance/r.StartBalance, daysPerYear/bars) - 1
}

// calculateMaxDrawdown returns the most negative deviation of equity from its
// running maximum, as a fraction (always <= 0).
func (r *Results) calculateMaxDrawdown() float64 {
	maxDD := 0.0
	runningMax := 0.0
	for _, v := range r.Equity {
		if v > runningMax {
			runningMax = v
		}
		if runningMax > 0 {
			dd := (v - runningMax) / runningMax
			if dd < maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// periodReturns derives per-bar returns from consecutive equity values.
func (r *Results) periodReturns() []float64 {
	if len(r.Equity) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(r.Equity)-1)
	for i := 1; i < len(r.Equity); i++ {
		if r.Equity[i-1] > 0 {
			returns = append(returns, (r.Equity[i]-r.Equity[i-1])/r.Equity[i-1])
		}
	}
	return returns
}

// calculateSortinoRatio divides the mean per-bar return by the standard
// deviation of the negative per-bar returns, scaled by sqrt(barsPerYear).
func (r *Results) calculateSortinoRatio(barsPerYear float64) float64 {
	returns := r.periodReturns()
	if len(returns) == 0 {
		return 0
	}

	avg := 0.0
	for _, ret := range returns {
		avg += ret
	}
	avg /= float64(len(returns))

	var negatives []float64
	for _, ret := range returns {
		if ret < 0 {
			negatives = append(negatives, ret)
		}
	}

	downside := downsideFallback
	if len(negatives) > 0 {
		mean := 0.0
		for _, ret := range negatives {
			mean += ret
		}
		mean /= float64(len(negatives))

		variance := 0.0
		for _, ret := range negatives {
			variance += (ret - mean) * (ret - mean)
		}
		variance /= float64(len(negatives))

		if stdDev := math.Sqrt(variance); stdDev > 0 {
			downside = stdDev
		}
	}

	return avg / downside * math.Sqrt(barsPerYear)
}

// calculateProfitFactor divides gross gains by gross losses on the configured
// basis: per-bar equity returns or per-trade price returns. Zero losses with
// zero gains yields 0; otherwise the loss side falls back to a small epsilon.
func (r *Results) calculateProfitFactor(basis config.ProfitFactorBasis) float64 {
	gains := 0.0
	losses := 0.0

	if basis == config.ProfitFactorPerTrade {
		for _, trade := range r.Trades {
			if trade.ReturnPct > 0 {
				gains += trade.ReturnPct
			} else {
				losses += -trade.ReturnPct
			}
		}
	} else {
		for _, ret := range r.periodReturns() {
			if ret > 0 {
				gains += ret
			} else {
				losses += -ret
			}
		}
	}

	if gains == 0 && losses == 0 {
		return 0
	}
	if losses == 0 {
		losses = downsideFallback
	}
	return gains / losses
}
