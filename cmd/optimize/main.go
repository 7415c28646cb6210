package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/trendnav/knn-navigator/internal/monitoring"
	"github.com/trendnav/knn-navigator/internal/optimize"
	"github.com/trendnav/knn-navigator/pkg/config"
	datamanager "github.com/trendnav/knn-navigator/pkg/data"
	"github.com/trendnav/knn-navigator/pkg/reporting"
)

const (
	AppName    = "KNN Navigator Optimizer"
	AppVersion = "1.0.0"
)

func main() {
	flags := NewOptimizeFlags()
	flag.Parse()

	if *flags.ShowVersion {
		fmt.Printf("%s v%s\n", AppName, AppVersion)
		return
	}
	if *flags.ShowHelp {
		printUsageHelp()
		return
	}

	if err := ValidateOptimizeFlags(flags); err != nil {
		log.Fatalf("❌ Flag validation error: %v", err)
	}

	printHeader()
	loadEnvironment(*flags.EnvFile)

	cfg, err := loadConfiguration(flags)
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}

	space, err := buildSpace(flags)
	if err != nil {
		log.Fatalf("❌ Sweep space error: %v", err)
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
	if *flags.Period != "" {
		d, ok := datamanager.ParseTrailingPeriod(*flags.Period)
		if !ok {
			log.Fatalf("❌ Invalid period format: %s (use 7d, 30d, 180d, 365d)", *flags.Period)
		}
		bars = manager.FilterDataByPeriod(bars, d)
	}

	if *flags.MetricsAddr != "" {
		errCh := monitoring.Serve(*flags.MetricsAddr)
		go func() {
			if err := <-errCh; err != nil {
				log.Printf("⚠️ Metrics server stopped: %v", err)
			}
		}()
		fmt.Printf("📡 Prometheus metrics on %s/metrics\n", *flags.MetricsAddr)
	}

	opts := optimize.Options{
		Space:           space,
		MaxCombinations: *flags.MaxCombinations,
		Seed:            *flags.Seed,
		Metric:          optimize.Metric(*flags.Metric),
		TopN:            *flags.TopN,
		Workers:         *flags.Workers,
		OnProgress:      printProgress,
	}
	if *flags.Baselines {
		opts.Baselines = []optimize.ParameterSet{{
			K:               config.DefaultK,
			SmoothingPeriod: config.DefaultSmoothingPeriod,
			WindowSize:      config.DefaultWindowSize,
			MALen:           config.DefaultMALen,
		}}
	}

	optimizer, err := optimize.NewOptimizer(cfg, opts)
	if err != nil {
		log.Fatalf("❌ Optimizer error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n🛑 Interrupt received, finishing in-flight evaluations...")
		cancel()
	}()

	fmt.Printf("🔍 Sweeping %d combinations over %d bars (%s %s)\n",
		space.Size(), len(bars), cfg.Symbol, cfg.Interval)

	report, err := optimizer.Run(ctx, bars)
	if err != nil {
		log.Fatalf("❌ Sweep error: %v", err)
	}
	fmt.Println()

	reporting.OutputSweepConsole(report)

	if len(report.Ranked) == 0 {
		return
	}

	best := report.Ranked[0].Params
	bestCfg := *cfg
	bestCfg.Navigator.K = best.K
	bestCfg.Navigator.SmoothingPeriod = best.SmoothingPeriod
	bestCfg.Navigator.WindowSize = best.WindowSize
	bestCfg.Navigator.MALen = best.MALen

	if *flags.ConsoleOnly {
		fmt.Println("📋 Best configuration:")
		reporting.PrintBestConfigJSON(&bestCfg)
		return
	}

	outputDir := *flags.OutputDir
	if outputDir == "" {
		outputDir = reporting.DefaultOutputDir(cfg.Symbol, cfg.Interval)
	}

	sweepPath := filepath.Join(outputDir, "sweep.xlsx")
	if err := reporting.WriteSweepXLSX(report, sweepPath); err != nil {
		log.Printf("⚠️ Failed to write sweep workbook: %v", err)
	} else {
		fmt.Printf("💾 Sweep results written to %s\n", sweepPath)
	}

	bestPath := filepath.Join(outputDir, "best.json")
	if err := reporting.WriteBestConfigJSON(&bestCfg, bestPath); err != nil {
		log.Printf("⚠️ Failed to write best config: %v", err)
	} else {
		fmt.Printf("💾 Best configuration written to %s\n", bestPath)
	}
}

// loadConfiguration builds the base configuration the sweep mutates per
// candidate.
func loadConfiguration(flags *OptimizeFlags) (*config.Config, error) {
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

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// printProgress overwrites one console line with the sweep progress.
func printProgress(completed, total int, remaining time.Duration) {
	if total == 0 {
		return
	}
	percent := float64(completed) / float64(total) * 100
	if remaining > 0 && completed < total {
		fmt.Printf("\r⏳ Progress: %d/%d (%.1f%%) ETA %s", completed, total, percent, remaining.Round(time.Second))
		return
	}
	fmt.Printf("\r⏳ Progress: %d/%d (%.1f%%)", completed, total, percent)
}

func printHeader() {
	fmt.Printf("🎯 %s v%s\n", strings.ToUpper(AppName), AppVersion)
	fmt.Printf("%s\n\n", strings.Repeat("=", 50))
}

func printUsageHelp() {
	fmt.Printf("%s v%s - Parallel parameter sweep for the kNN trend signal\n\n", AppName, AppVersion)
	fmt.Printf("USAGE:\n  %s [OPTIONS]\n\n", filepath.Base(flag.CommandLine.Name()))
	PrintUsageExamples()
	flag.PrintDefaults()
}

func loadEnvironment(envFile string) {
	if err := godotenv.Load(envFile); err != nil {
		log.Printf("⚠️  Could not load %s (%v)", envFile, err)
	}
}
