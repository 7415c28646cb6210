package main

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/trendnav/knn-navigator/internal/optimize"
)

// OptimizeFlags holds all command line flags for the optimize command.
type OptimizeFlags struct {
	// Configuration
	ConfigFile *string
	DataFile   *string
	Symbol     *string
	Interval   *string
	Exchange   *string
	DataRoot   *string

	// Sweep surface
	Mode            *string
	KRange          *string
	SmoothingRange  *string
	WindowRange     *string
	MALenRange      *string
	MaxCombinations *int
	Seed            *int64

	// Ranking
	Metric *string
	TopN   *int

	// Execution
	Workers     *int
	Baselines   *bool
	MetricsAddr *string

	// Analysis options
	Period *string

	// Output options
	OutputDir   *string
	ConsoleOnly *bool
	EnvFile     *string

	// Help and version
	ShowVersion *bool
	ShowHelp    *bool
}

// NewOptimizeFlags creates and registers all optimize command line flags.
func NewOptimizeFlags() *OptimizeFlags {
	return &OptimizeFlags{
		ConfigFile: flag.String("config", "", "Path to base configuration file"),
		DataFile:   flag.String("data", "", "Path to historical data file"),
		Symbol:     flag.String("symbol", "BTCUSDT", "Trading symbol"),
		Interval:   flag.String("interval", "1h", "Data interval (5m, 15m, 1h, 4h, 1d)"),
		Exchange:   flag.String("exchange", "bybit", "Exchange the data came from"),
		DataRoot:   flag.String("data-root", "data", "Root directory for candle files"),

		Mode:            flag.String("mode", "default", "Sweep mode (default, focused)"),
		KRange:          flag.String("k-range", "", "Override k values as min:max[:step]"),
		SmoothingRange:  flag.String("smoothing-range", "", "Override smoothing periods as min:max[:step]"),
		WindowRange:     flag.String("window-range", "", "Override window sizes as min:max[:step]"),
		MALenRange:      flag.String("ma-len-range", "", "Override MA lengths as min:max[:step]"),
		MaxCombinations: flag.Int("max-combos", 1000, "Cap on evaluated combinations (0 = no cap)"),
		Seed:            flag.Int64("seed", optimize.DefaultSeed, "Seed for capped sampling"),

		Metric: flag.String("metric", string(optimize.MetricTotalReturn), "Ranking metric (total_return, annualized_return, sortino_ratio, profit_factor, win_rate)"),
		TopN:   flag.Int("top", 10, "Number of ranked results to keep"),

		Workers:     flag.Int("workers", 0, "Worker count (0 = NumCPU)"),
		Baselines:   flag.Bool("baselines", true, "Evaluate the reference parameter set for comparison"),
		MetricsAddr: flag.String("metrics-addr", "", "Serve Prometheus metrics on this address during the sweep (e.g. :9090)"),

		Period: flag.String("period", "", "Limit analysis to trailing period (7d, 30d, 180d, 365d)"),

		OutputDir:   flag.String("output", "", "Output directory (default results/<SYMBOL>_<interval>)"),
		ConsoleOnly: flag.Bool("console-only", false, "Print results without writing files"),
		EnvFile:     flag.String("env-file", ".env", "Environment file to load"),

		ShowVersion: flag.Bool("version", false, "Show version information"),
		ShowHelp:    flag.Bool("help", false, "Show detailed help"),
	}
}

// ValidateOptimizeFlags checks flag combinations before any work starts.
func ValidateOptimizeFlags(flags *OptimizeFlags) error {
	if *flags.Mode != "default" && *flags.Mode != "focused" {
		return fmt.Errorf("unknown mode: %q (use default or focused)", *flags.Mode)
	}
	if !optimize.ValidMetric(optimize.Metric(*flags.Metric)) {
		return fmt.Errorf("unknown metric: %q", *flags.Metric)
	}
	if *flags.TopN < 1 {
		return fmt.Errorf("top must be at least 1, got: %d", *flags.TopN)
	}
	if *flags.MaxCombinations < 0 {
		return fmt.Errorf("max-combos must not be negative, got: %d", *flags.MaxCombinations)
	}
	return nil
}

// buildSpace assembles the sweep space from the mode with any per-field
// range overrides applied.
func buildSpace(flags *OptimizeFlags) (optimize.Space, error) {
	space := optimize.DefaultSpace()
	if *flags.Mode == "focused" {
		space = optimize.FocusedSpace()
	}

	overrides := []struct {
		raw    string
		target *[]int
		name   string
	}{
		{*flags.KRange, &space.K, "k-range"},
		{*flags.SmoothingRange, &space.SmoothingPeriod, "smoothing-range"},
		{*flags.WindowRange, &space.WindowSize, "window-range"},
		{*flags.MALenRange, &space.MALen, "ma-len-range"},
	}
	for _, o := range overrides {
		if o.raw == "" {
			continue
		}
		values, err := parseRange(o.raw)
		if err != nil {
			return space, fmt.Errorf("invalid %s: %w", o.name, err)
		}
		*o.target = values
	}

	return space, nil
}

// parseRange expands "min:max[:step]" into the inclusive value list.
func parseRange(s string) ([]int, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return nil, fmt.Errorf("expected min:max[:step], got %q", s)
	}

	lo, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, fmt.Errorf("bad min %q", parts[0])
	}
	hi, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("bad max %q", parts[1])
	}

	step := 1
	if len(parts) == 3 {
		step, err = strconv.Atoi(parts[2])
		if err != nil || step < 1 {
			return nil, fmt.Errorf("bad step %q", parts[2])
		}
	}
	if hi < lo {
		return nil, fmt.Errorf("max %d below min %d", hi, lo)
	}

	var values []int
	for v := lo; v <= hi; v += step {
		values = append(values, v)
	}
	return values, nil
}

// PrintUsageExamples prints common invocations.
func PrintUsageExamples() {
	fmt.Println("EXAMPLES:")
	fmt.Println("  optimize -symbol BTCUSDT -interval 1h -max-combos 500")
	fmt.Println("  optimize -mode focused -metric sortino_ratio -top 20")
	fmt.Println("  optimize -k-range 2:10 -window-range 20:60:5 -workers 8")
	fmt.Println("  optimize -data candles.csv -metrics-addr :9090")
	fmt.Println()
}
