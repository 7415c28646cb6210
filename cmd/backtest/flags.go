package main

import (
	"flag"
	"fmt"

	"github.com/trendnav/knn-navigator/pkg/config"
)

// BacktestFlags holds all command line flags for the backtest command.
type BacktestFlags struct {
	// Configuration
	ConfigFile *string
	DataFile   *string
	Symbol     *string
	Interval   *string
	Exchange   *string
	DataRoot   *string

	// Account settings
	Balance    *float64
	Commission *float64

	// Navigator parameters
	K               *int
	SmoothingPeriod *int
	WindowSize      *int
	MALen           *int
	ValueSource     *string
	TargetSource    *string
	TieBreak        *string
	PositivityGuard *bool

	// Metric conventions
	PFBasis *string

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

// NewBacktestFlags creates and registers all backtest command line flags.
func NewBacktestFlags() *BacktestFlags {
	return &BacktestFlags{
		ConfigFile: flag.String("config", "", "Path to configuration file"),
		DataFile:   flag.String("data", "", "Path to historical data file"),
		Symbol:     flag.String("symbol", "BTCUSDT", "Trading symbol"),
		Interval:   flag.String("interval", "1h", "Data interval (5m, 15m, 1h, 4h, 1d)"),
		Exchange:   flag.String("exchange", DefaultExchange, "Exchange the data came from"),
		DataRoot:   flag.String("data-root", DefaultDataRoot, "Root directory for candle files"),

		Balance:    flag.Float64("balance", config.DefaultInitialCapital, "Initial balance"),
		Commission: flag.Float64("commission", config.DefaultTransactionCost, "Per-side transaction cost (0.001 = 0.1%)"),

		K:               flag.Int("k", config.DefaultK, "Number of closest values to average"),
		SmoothingPeriod: flag.Int("smoothing", config.DefaultSmoothingPeriod, "Smoothing period for the signal moving average"),
		WindowSize:      flag.Int("window", config.DefaultWindowSize, "Lookback window size"),
		MALen:           flag.Int("ma-len", config.DefaultMALen, "Moving average length for feature series"),
		ValueSource:     flag.String("value-source", string(config.SourceHL2), "Feature source (hl2, sma, ema, wma)"),
		TargetSource:    flag.String("target-source", string(config.TargetPriceAction), "Target source (price_action, sma, ema)"),
		TieBreak:        flag.String("tie-break", string(config.TieBreakNearestBar), "Neighbor tie-break policy (nearest_bar, oldest_bar)"),
		PositivityGuard: flag.Bool("positivity-guard", false, "Require a positive smoothed signal for up/down trends"),

		PFBasis: flag.String("pf-basis", string(config.ProfitFactorPerBar), "Profit factor basis (per_bar, per_trade)"),

		Period: flag.String("period", "", "Limit analysis to trailing period (7d, 30d, 180d, 365d)"),

		OutputDir:   flag.String("output", "", "Output directory (default results/<SYMBOL>_<interval>)"),
		ConsoleOnly: flag.Bool("console-only", false, "Print results without writing files"),
		EnvFile:     flag.String("env-file", ".env", "Environment file to load"),

		ShowVersion: flag.Bool("version", false, "Show version information"),
		ShowHelp:    flag.Bool("help", false, "Show detailed help"),
	}
}

// ValidateBacktestFlags checks flag combinations before any work starts.
func ValidateBacktestFlags(flags *BacktestFlags) error {
	if *flags.Balance <= 0 {
		return fmt.Errorf("balance must be positive, got: %.2f", *flags.Balance)
	}
	if *flags.Commission < 0 || *flags.Commission >= 1 {
		return fmt.Errorf("commission must be in [0, 1), got: %.4f", *flags.Commission)
	}
	if *flags.K < 1 {
		return fmt.Errorf("k must be at least 1, got: %d", *flags.K)
	}
	if *flags.WindowSize < *flags.K {
		return fmt.Errorf("window must be at least k (%d), got: %d", *flags.K, *flags.WindowSize)
	}
	return nil
}

// PrintUsageExamples prints common invocations.
func PrintUsageExamples() {
	fmt.Println("EXAMPLES:")
	fmt.Println("  backtest -data data/bybit/spot/BTCUSDT/60/candles.csv")
	fmt.Println("  backtest -symbol ETHUSDT -interval 4h -k 5 -window 40")
	fmt.Println("  backtest -config results/BTCUSDT_1h/best.json -period 180d")
	fmt.Println("  backtest -symbol BTCUSDT -tie-break oldest_bar -console-only")
	fmt.Println()
}
