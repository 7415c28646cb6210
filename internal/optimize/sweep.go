package optimize

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/trendnav/knn-navigator/internal/backtest"
	"github.com/trendnav/knn-navigator/internal/monitoring"
	"github.com/trendnav/knn-navigator/internal/navigator"
	"github.com/trendnav/knn-navigator/pkg/config"
	"github.com/trendnav/knn-navigator/pkg/types"
)

// Metric selects the ranking criterion of a sweep.
type Metric string

const (
	MetricTotalReturn      Metric = "total_return"
	MetricAnnualizedReturn Metric = "annualized_return"
	MetricSortinoRatio     Metric = "sortino_ratio"
	MetricProfitFactor     Metric = "profit_factor"
	MetricWinRate          Metric = "win_rate"
)

// MetricValue extracts the ranking value from run results.
func MetricValue(r *backtest.Results, m Metric) float64 {
	switch m {
	case MetricAnnualizedReturn:
		return r.AnnualizedReturn
	case MetricSortinoRatio:
		return r.SortinoRatio
	case MetricProfitFactor:
		return r.ProfitFactor
	case MetricWinRate:
		return r.WinRate
	default:
		return r.TotalReturn
	}
}

// ValidMetric reports whether m names a known ranking metric.
func ValidMetric(m Metric) bool {
	switch m {
	case MetricTotalReturn, MetricAnnualizedReturn, MetricSortinoRatio,
		MetricProfitFactor, MetricWinRate:
		return true
	}
	return false
}

// DefaultSeed keeps capped sweeps reproducible across runs.
const DefaultSeed = 42

// Options configures a sweep.
type Options struct {
	Space Space

	// MaxCombinations caps the sweep; above the cap a seeded random sample
	// of the product is evaluated. <= 0 means exhaustive.
	MaxCombinations int
	Seed            int64

	Metric  Metric
	TopN    int
	Workers int

	// Baselines are fixed parameter sets evaluated alongside the sweep for
	// comparison; they do not compete for the ranking.
	Baselines []ParameterSet

	// OnProgress, when set, is called after every finished evaluation with
	// the estimated time remaining at the current pace.
	OnProgress func(completed, total int, remaining time.Duration)
}

// Evaluation pairs a parameter set with its run results.
type Evaluation struct {
	Params  ParameterSet
	Results *backtest.Results
}

// Score returns the evaluation's value under the ranking metric.
func (e Evaluation) Score(m Metric) float64 {
	return MetricValue(e.Results, m)
}

// Report is the outcome of one sweep.
type Report struct {
	Ranked    []Evaluation
	Baselines []Evaluation
	Metric    Metric

	Total     int // valid combinations dispatched
	Evaluated int
	Skipped   int // failed evaluations, recorded and excluded
	Invalid   int // rejected by the validity guard before dispatch
	Elapsed   time.Duration
}

// Optimizer runs the sweep over a fixed, pre-fetched bar sequence.
type Optimizer struct {
	cfg  *config.Config
	opts Options
	data []types.OHLCV
}

// NewOptimizer creates a sweep runner on the base configuration; per-field
// navigator parameters are overridden by each candidate ParameterSet.
func NewOptimizer(cfg *config.Config, opts Options) (*Optimizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Metric == "" {
		opts.Metric = MetricTotalReturn
	}
	if !ValidMetric(opts.Metric) {
		return nil, fmt.Errorf("unknown ranking metric: %q", opts.Metric)
	}
	if opts.TopN <= 0 {
		opts.TopN = 10
	}
	if opts.Seed == 0 {
		opts.Seed = DefaultSeed
	}
	if opts.Space.Size() == 0 {
		return nil, fmt.Errorf("parameter space is empty")
	}
	return &Optimizer{cfg: cfg, opts: opts}, nil
}

// Run evaluates the space against data and returns the ranked report. Data is
// shared read-only across workers; all I/O happens before this call. Sweep
// submission stops when ctx is cancelled and the report covers what finished.
func (o *Optimizer) Run(ctx context.Context, data []types.OHLCV) (*Report, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot optimize on empty bar series")
	}
	o.data = data

	start := time.Now()

	candidates := o.opts.Space.Sample(o.opts.MaxCombinations, o.opts.Seed)

	report := &Report{Metric: o.opts.Metric}
	valid := make([]ParameterSet, 0, len(candidates))
	for _, p := range candidates {
		if !p.Valid() {
			report.Invalid++
			monitoring.RecordEvaluation(monitoring.StatusInvalid, 0)
			continue
		}
		valid = append(valid, p)
	}

	// Queues are sized to the job count so neither submission nor workers
	// ever block; cancellation abandons whatever is still queued.
	pool := NewWorkerPool(ctx, o.opts.Workers, len(valid), o.evaluate)
	pool.Start()

	submitted := 0
	for i, p := range valid {
		if err := pool.Submit(Job{ID: i, Params: p}); err != nil {
			break
		}
		submitted++
	}

	tracker := NewProgressTracker(submitted)
	best := math.Inf(-1)
	received := 0

collect:
	for received < submitted {
		select {
		case result, ok := <-pool.Results():
			if !ok {
				break collect
			}
			received++
			tracker.Increment()

			if result.Err != nil {
				report.Skipped++
				monitoring.RecordEvaluation(monitoring.StatusSkipped, 0)
			} else {
				report.Ranked = append(report.Ranked, Evaluation{Params: result.Job.Params, Results: result.Results})
				monitoring.RecordEvaluation(monitoring.StatusCompleted, result.Duration.Seconds())

				if score := MetricValue(result.Results, o.opts.Metric); score > best {
					best = score
					monitoring.SetBestScore(string(o.opts.Metric), best)
				}
			}

			completed, total, _, _ := tracker.Progress()
			if total > 0 {
				monitoring.SetProgress(float64(completed) / float64(total))
			}
			if o.opts.OnProgress != nil {
				o.opts.OnProgress(completed, total, tracker.EstimateRemaining())
			}

		case <-ctx.Done():
			break collect
		}
	}
	pool.Stop()

	report.Total = len(valid)
	report.Evaluated = len(report.Ranked)

	o.rank(report)
	o.evaluateBaselines(report)
	report.Elapsed = time.Since(start)

	return report, nil
}

// rank sorts descending by the chosen metric and applies the result limit.
// NaN scores sort last so numeric-edge runs never win a sweep.
func (o *Optimizer) rank(report *Report) {
	sort.SliceStable(report.Ranked, func(a, b int) bool {
		av, bv := report.Ranked[a].Score(o.opts.Metric), report.Ranked[b].Score(o.opts.Metric)
		if math.IsNaN(av) {
			return false
		}
		if math.IsNaN(bv) {
			return true
		}
		return av > bv
	})

	if len(report.Ranked) > o.opts.TopN {
		report.Ranked = report.Ranked[:o.opts.TopN]
	}
}

// evaluateBaselines runs the fixed comparison sets sequentially; failures are
// counted as skipped like any other evaluation.
func (o *Optimizer) evaluateBaselines(report *Report) {
	for _, p := range o.opts.Baselines {
		if !p.Valid() {
			report.Invalid++
			continue
		}
		results, err := o.evaluate(p)
		if err != nil {
			report.Skipped++
			continue
		}
		report.Baselines = append(report.Baselines, Evaluation{Params: p, Results: results})
	}
}

// evaluate runs the full pipeline for one parameter set against the shared
// bar sequence.
func (o *Optimizer) evaluate(p ParameterSet) (*backtest.Results, error) {
	navCfg := o.cfg.Navigator
	navCfg.K = p.K
	navCfg.SmoothingPeriod = p.SmoothingPeriod
	navCfg.WindowSize = p.WindowSize
	navCfg.MALen = p.MALen

	nav, err := navigator.New(navCfg)
	if err != nil {
		return nil, err
	}

	engine, err := backtest.NewEngine(o.cfg.Backtest)
	if err != nil {
		return nil, err
	}

	set := nav.Compute(o.data)
	return engine.Run(o.data, set.Signals)
}
