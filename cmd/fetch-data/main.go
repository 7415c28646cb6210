// Command fetch-data downloads candle history from Bybit into the local
// data directory layout the backtest and optimize commands read from.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/trendnav/knn-navigator/internal/exchange/bybit"
	"github.com/trendnav/knn-navigator/pkg/data"
	"github.com/trendnav/knn-navigator/pkg/types"
)

const (
	AppName    = "KNN Navigator Data Fetcher"
	AppVersion = "1.0.0"
)

func main() {
	symbol := flag.String("symbol", "BTCUSDT", "Trading symbol")
	interval := flag.String("interval", "1h", "Candle interval (1m, 5m, 15m, 1h, 4h, 1d)")
	category := flag.String("category", "spot", "Market category (spot, linear, inverse)")
	days := flag.Int("days", 365, "Number of trailing days to download")
	startStr := flag.String("start", "", "Start date (2024-01-31), overrides -days")
	endStr := flag.String("end", "", "End date (2024-06-30), defaults to now")
	dataRoot := flag.String("data-root", "data", "Root directory for candle files")
	output := flag.String("output", "", "Explicit output file (overrides the data-root layout)")
	testnet := flag.Bool("testnet", false, "Use the Bybit testnet")
	envFile := flag.String("env-file", ".env", "Environment file to load")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s v%s\n", AppName, AppVersion)
		return
	}

	fmt.Printf("🎯 %s v%s\n", strings.ToUpper(AppName), AppVersion)
	fmt.Printf("%s\n\n", strings.Repeat("=", 50))

	if err := godotenv.Load(*envFile); err != nil {
		log.Printf("⚠️  Could not load %s (%v)", *envFile, err)
	}

	klineInterval, err := bybit.ParseInterval(*interval)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	end := time.Now().UTC().Truncate(klineInterval.Duration())
	if *endStr != "" {
		end, err = time.Parse("2006-01-02", *endStr)
		if err != nil {
			log.Fatalf("❌ Invalid end date: %v", err)
		}
	}

	start := end.AddDate(0, 0, -*days)
	if *startStr != "" {
		start, err = time.Parse("2006-01-02", *startStr)
		if err != nil {
			log.Fatalf("❌ Invalid start date: %v", err)
		}
	}

	client := bybit.NewClient(bybit.Config{
		APIKey:    os.Getenv("BYBIT_API_KEY"),
		APISecret: os.Getenv("BYBIT_API_SECRET"),
		Testnet:   *testnet,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n🛑 Interrupt received, stopping download...")
		cancel()
	}()

	sym := strings.ToUpper(*symbol)
	fmt.Printf("🔄 Downloading %s %s candles (%s) from %s to %s on %s\n",
		sym, *interval, *category,
		start.Format("2006-01-02"), end.Format("2006-01-02"), client.Environment())

	if ticker, err := client.GetLatestTicker(ctx, *category, sym); err == nil {
		fmt.Printf("💹 Latest %s price: %.4f\n", ticker.Symbol, ticker.Price)
	}

	params := bybit.KlineParams{
		Category: *category,
		Symbol:   sym,
		Interval: klineInterval,
	}
	bars, err := client.FetchKlineHistory(ctx, params, start, end)
	if err != nil {
		log.Fatalf("❌ Download failed: %v", err)
	}
	if len(bars) == 0 {
		log.Fatalf("❌ No candles returned for %s %s", sym, *interval)
	}

	path := *output
	if path == "" {
		locator := data.NewDefaultLocator()
		minutes := locator.ConvertIntervalToMinutes(*interval)
		path = filepath.Join(*dataRoot, "bybit", *category, sym, minutes, "candles.csv")
	}

	if err := writeCandlesCSV(bars, path); err != nil {
		log.Fatalf("❌ Failed to write %s: %v", path, err)
	}

	fmt.Printf("✅ Wrote %d candles to %s (%s to %s)\n",
		len(bars), path,
		bars[0].Timestamp.Format("2006-01-02 15:04"),
		bars[len(bars)-1].Timestamp.Format("2006-01-02 15:04"))
}

// writeCandlesCSV writes bars in the layout the CSV provider reads back.
func writeCandlesCSV(bars []types.OHLCV, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"timestamp", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}

	for _, bar := range bars {
		row := []string{
			bar.Timestamp.UTC().Format("2006-01-02 15:04:05"),
			formatPrice(bar.Open),
			formatPrice(bar.High),
			formatPrice(bar.Low),
			formatPrice(bar.Close),
			formatPrice(bar.Volume),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return nil
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
