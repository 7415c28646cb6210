// Package backtest replays trade signals against historical prices with a
// deterministic single-asset, flat-or-long portfolio and computes performance
// metrics over the resulting equity curve.
package backtest

import (
	"fmt"
	"time"

	"github.com/trendnav/knn-navigator/internal/navigator"
	"github.com/trendnav/knn-navigator/pkg/config"
	"github.com/trendnav/knn-navigator/pkg/types"
)

// Trade is one completed long round trip.
type Trade struct {
	EntryTime  time.Time
	ExitTime   time.Time
	EntryPrice float64
	ExitPrice  float64
	ReturnPct  float64
	Profitable bool
}

// Results holds the equity curve, completed trades and the metrics of one
// simulation run.
type Results struct {
	StartBalance float64
	EndBalance   float64
	Equity       []float64
	Trades       []Trade

	// True when the series ended while still long; the unrealized position
	// is part of EndBalance but not of Trades.
	OpenAtEnd bool

	TotalReturn      float64
	AnnualizedReturn float64
	WinRate          float64
	MaxDrawdown      float64
	SortinoRatio     float64
	ProfitFactor     float64
	TotalTrades      int
	WinningTrades    int
	LosingTrades     int
}

// Engine replays signals bar by bar starting from an all-cash position.
type Engine struct {
	cfg config.BacktestConfig
}

// NewEngine creates a simulation engine, rejecting invalid configuration
// before any data is processed.
func NewEngine(cfg config.BacktestConfig) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// Run replays the signal sequence against the close prices. It fails fast on
// structurally invalid input and never errors on data content.
//
// Buy while flat converts all cash to holdings at the close, minus the
// transaction-cost fraction; Sell while long converts back and records a
// completed Trade. Every other (signal, state) pair is a no-op, so cash and
// holdings are never simultaneously non-zero.
func (e *Engine) Run(data []types.OHLCV, signals []navigator.TradeSignal) (*Results, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot run backtest on empty bar series")
	}
	if len(signals) != len(data) {
		return nil, fmt.Errorf("signal count %d does not match bar count %d", len(signals), len(data))
	}
	for i := 1; i < len(data); i++ {
		if !data[i].Timestamp.After(data[i-1].Timestamp) {
			return nil, fmt.Errorf("timestamps not strictly increasing at index %d (%s)",
				i, data[i].Timestamp.Format(time.RFC3339))
		}
	}

	results := &Results{
		StartBalance: e.cfg.InitialCapital,
		Equity:       make([]float64, len(data)),
	}

	cash := e.cfg.InitialCapital
	holdings := 0.0
	long := false
	entryPrice := 0.0
	var entryTime time.Time

	for i, bar := range data {
		price := bar.Close

		switch {
		case signals[i] == navigator.SignalBuy && !long:
			holdings = cash * (1 - e.cfg.TransactionCost) / price
			cash = 0
			long = true
			entryPrice = price
			entryTime = bar.Timestamp

		case signals[i] == navigator.SignalSell && long:
			cash = holdings * price * (1 - e.cfg.TransactionCost)
			holdings = 0
			long = false

			ret := (price - entryPrice) / entryPrice
			results.Trades = append(results.Trades, Trade{
				EntryTime:  entryTime,
				ExitTime:   bar.Timestamp,
				EntryPrice: entryPrice,
				ExitPrice:  price,
				ReturnPct:  ret,
				Profitable: ret > 0,
			})
			entryPrice = 0
		}

		if long {
			results.Equity[i] = holdings * price
		} else {
			results.Equity[i] = cash
		}
	}

	results.OpenAtEnd = long
	results.EndBalance = results.Equity[len(results.Equity)-1]
	results.updateMetrics(e.cfg)

	return results, nil
}
