package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/trendnav/knn-navigator/internal/backtest"
	"github.com/trendnav/knn-navigator/internal/navigator"
	"github.com/trendnav/knn-navigator/pkg/config"
	datamanager "github.com/trendnav/knn-navigator/pkg/data"
	"github.com/trendnav/knn-navigator/pkg/reporting"
)

const (
	AppName    = "KNN Navigator Backtest"
	AppVersion = "1.0.0"

	DefaultDataRoot = "data"
	DefaultExchange = "bybit"
)

func main() {
	flags := NewBacktestFlags()
	flag.Parse()

	if *flags.ShowVersion {
		fmt.Printf("%s v%s\n", AppName, AppVersion)
		return
	}
	if *flags.ShowHelp {
		printUsageHelp()
		return
	}

	if err := ValidateBacktestFlags(flags); err != nil {
		log.Fatalf("❌ Flag validation error: %v", err)
	}

	printHeader()
	loadEnvironment(*flags.EnvFile)

	cfg, err := loadConfiguration(flags)
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}

	var selectedPeriod time.Duration
	if *flags.Period != "" {
		d, ok := datamanager.ParseTrailingPeriod(*flags.Period)
		if !ok {
			log.Fatalf("❌ Invalid period format: %s (use 7d, 30d, 180d, 365d)", *flags.Period)
		}
		selectedPeriod = d
	}

	manager := datamanager.NewManager()

	dataFile := cfg.DataFile
	if dataFile == "" {
		dataFile = manager.FindDataFile(*flags.DataRoot, *flags.Exchange, cfg.Symbol, cfg.Interval)
		if dataFile == "" {
			log.Fatalf("❌ No data file found for %s %s under %s; pass -data or run fetch-data first",
				cfg.Symbol, cfg.Interval, *flags.DataRoot)
		}
		cfg.DataFile = dataFile
	}

	bars, err := manager.LoadHistoricalData(dataFile)
	if err != nil {
		log.Fatalf("❌ Data error: %v", err)
	}
	if selectedPeriod > 0 {
		bars = manager.FilterDataByPeriod(bars, selectedPeriod)
	}

	console := reporting.NewDefaultConsoleReporter()
	console.PrintRunInfo(cfg.Symbol, cfg.Interval, dataFile, len(bars))

	nav, err := navigator.New(cfg.Navigator)
	if err != nil {
		log.Fatalf("❌ Navigator error: %v", err)
	}
	engine, err := backtest.NewEngine(cfg.Backtest)
	if err != nil {
		log.Fatalf("❌ Engine error: %v", err)
	}

	signals := nav.Compute(bars)
	results, err := engine.Run(bars, signals.Signals)
	if err != nil {
		log.Fatalf("❌ Backtest error: %v", err)
	}

	console.OutputResults(results)

	if *flags.ConsoleOnly {
		return
	}

	outputDir := *flags.OutputDir
	if outputDir == "" {
		outputDir = reporting.DefaultOutputDir(cfg.Symbol, cfg.Interval)
	}

	tradesPath := filepath.Join(outputDir, "trades.xlsx")
	if err := reporting.WriteTradesXLSX(results, tradesPath); err != nil {
		log.Printf("⚠️ Failed to write trades: %v", err)
	} else {
		fmt.Printf("💾 Trades written to %s\n", tradesPath)
	}

	signalsPath := filepath.Join(outputDir, "signals.csv")
	if err := reporting.WriteSignalsCSV(signals, signalsPath); err != nil {
		log.Printf("⚠️ Failed to write signals: %v", err)
	} else {
		fmt.Printf("💾 Signals written to %s\n", signalsPath)
	}
}

// loadConfiguration builds the run configuration from the config file with
// explicitly passed flags layered on top.
func loadConfiguration(flags *BacktestFlags) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if *flags.ConfigFile != "" {
		cfg, err = config.LoadConfig(*flags.ConfigFile)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.DefaultConfig()
	}

	// Only flags the user actually set override the file.
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["symbol"] {
		cfg.Symbol = strings.ToUpper(*flags.Symbol)
	}
	if set["interval"] {
		cfg.Interval = *flags.Interval
	}
	if set["data"] {
		cfg.DataFile = *flags.DataFile
	}
	if set["balance"] {
		cfg.Backtest.InitialCapital = *flags.Balance
	}
	if set["commission"] {
		cfg.Backtest.TransactionCost = *flags.Commission
	}
	if set["k"] {
		cfg.Navigator.K = *flags.K
	}
	if set["smoothing"] {
		cfg.Navigator.SmoothingPeriod = *flags.SmoothingPeriod
	}
	if set["window"] {
		cfg.Navigator.WindowSize = *flags.WindowSize
	}
	if set["ma-len"] {
		cfg.Navigator.MALen = *flags.MALen
	}
	if set["value-source"] {
		cfg.Navigator.ValueSource = *flags.ValueSource
	}
	if set["target-source"] {
		cfg.Navigator.TargetSource = *flags.TargetSource
	}
	if set["tie-break"] {
		cfg.Navigator.TieBreak = config.TieBreakPolicy(*flags.TieBreak)
	}
	if set["positivity-guard"] {
		cfg.Navigator.PositivityGuard = *flags.PositivityGuard
	}
	if set["pf-basis"] {
		cfg.Backtest.ProfitFactorBasis = config.ProfitFactorBasis(*flags.PFBasis)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func printHeader() {
	fmt.Printf("🎯 %s v%s\n", strings.ToUpper(AppName), AppVersion)
	fmt.Printf("%s\n\n", strings.Repeat("=", 50))
}

func printUsageHelp() {
	fmt.Printf("%s v%s - Windowed kNN trend signal backtesting\n\n", AppName, AppVersion)
	fmt.Printf("USAGE:\n  %s [OPTIONS]\n\n", filepath.Base(flag.CommandLine.Name()))
	PrintUsageExamples()
	flag.PrintDefaults()
}

func loadEnvironment(envFile string) {
	if err := godotenv.Load(envFile); err != nil {
		log.Printf("⚠️  Could not load %s (%v)", envFile, err)
	}
}
