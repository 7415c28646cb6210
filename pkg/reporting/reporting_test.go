package reporting

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trendnav/knn-navigator/internal/backtest"
	"github.com/trendnav/knn-navigator/internal/navigator"
	"github.com/trendnav/knn-navigator/internal/optimize"
	"github.com/trendnav/knn-navigator/pkg/config"
)

func sampleResults() *backtest.Results {
	entry := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	return &backtest.Results{
		StartBalance:     10000,
		EndBalance:       11500,
		TotalReturn:      0.15,
		AnnualizedReturn: 0.32,
		WinRate:          0.5,
		MaxDrawdown:      -0.08,
		SortinoRatio:     1.7,
		ProfitFactor:     2.1,
		TotalTrades:      2,
		WinningTrades:    1,
		LosingTrades:     1,
		Trades: []backtest.Trade{
			{
				EntryTime:  entry,
				ExitTime:   entry.Add(12 * time.Hour),
				EntryPrice: 100,
				ExitPrice:  110,
				ReturnPct:  0.10,
				Profitable: true,
			},
			{
				EntryTime:  entry.Add(24 * time.Hour),
				ExitTime:   entry.Add(36 * time.Hour),
				EntryPrice: 110,
				ExitPrice:  105,
				ReturnPct:  -0.045,
				Profitable: false,
			},
		},
	}
}

func sampleReport() *optimize.Report {
	return &optimize.Report{
		Metric:    optimize.MetricTotalReturn,
		Total:     2,
		Evaluated: 2,
		Ranked: []optimize.Evaluation{
			{Params: optimize.ParameterSet{K: 5, SmoothingPeriod: 60, WindowSize: 40, MALen: 8}, Results: sampleResults()},
			{Params: optimize.ParameterSet{K: 3, SmoothingPeriod: 50, WindowSize: 30, MALen: 5}, Results: sampleResults()},
		},
		Baselines: []optimize.Evaluation{
			{Params: optimize.ParameterSet{K: 3, SmoothingPeriod: 50, WindowSize: 30, MALen: 5}, Results: sampleResults()},
		},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteTradesCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "trades.csv")
	require.NoError(t, WriteTradesCSV(sampleResults(), path))

	rows := readCSV(t, path)
	require.Len(t, rows, 4) // header, two trades, summary

	assert.Equal(t, "Entry_Time", rows[0][0])
	assert.Equal(t, "2024-04-01 00:00:00", rows[1][0])
	assert.Equal(t, "W", rows[1][5])
	assert.Equal(t, "L", rows[2][5])
	assert.Contains(t, rows[3][5], "trades=2")
	assert.Contains(t, rows[3][5], "wins=1")
}

func TestWriteSignalsCSV(t *testing.T) {
	ts := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	set := &navigator.SignalSet{
		Timestamps:    []time.Time{ts, ts.Add(time.Hour)},
		Price:         []float64{100, 101},
		KnnMA:         []float64{math.NaN(), 100.5},
		KnnMASmoothed: []float64{math.NaN(), 100.6},
		MAKnnMA:       []float64{math.NaN(), math.NaN()},
		Trend:         []navigator.TrendState{navigator.TrendNeutral, navigator.TrendUp},
		Signals:       []navigator.TradeSignal{navigator.SignalHold, navigator.SignalBuy},
	}

	path := filepath.Join(t.TempDir(), "signals.csv")
	require.NoError(t, WriteSignalsCSV(set, path))

	rows := readCSV(t, path)
	require.Len(t, rows, 3)

	// Warm-up bars render as empty cells, not "NaN".
	assert.Empty(t, rows[1][2])
	assert.Equal(t, "100.5", rows[2][2])
	assert.Equal(t, "up", rows[2][5])
	assert.Equal(t, "buy", rows[2][6])
}

func TestWriteTradesCSV_DelegatesXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.xlsx")
	require.NoError(t, WriteTradesCSV(sampleResults(), path))

	fx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer fx.Close()

	assert.Contains(t, fx.GetSheetList(), "Trades")
	assert.Contains(t, fx.GetSheetList(), "Metrics")
}

func TestWriteTradesXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.xlsx")
	require.NoError(t, WriteTradesXLSX(sampleResults(), path))

	fx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer fx.Close()

	winLoss, err := fx.GetCellValue("Trades", "F2")
	require.NoError(t, err)
	assert.Equal(t, "W", winLoss)

	label, err := fx.GetCellValue("Metrics", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Initial Balance", label)
}

func TestWriteSweepXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweep.xlsx")
	require.NoError(t, WriteSweepXLSX(sampleReport(), path))

	fx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer fx.Close()

	require.Contains(t, fx.GetSheetList(), "Ranked")
	require.Contains(t, fx.GetSheetList(), "Baselines")

	k, err := fx.GetCellValue("Ranked", "B2")
	require.NoError(t, err)
	assert.Equal(t, "5", k)

	rank, err := fx.GetCellValue("Baselines", "A2")
	require.NoError(t, err)
	assert.Equal(t, "-", rank)
}

func TestWriteBestConfigJSON_RoundTrip(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Navigator.K = 7
	cfg.Navigator.WindowSize = 44

	path := filepath.Join(t.TempDir(), "configs", "best.json")
	require.NoError(t, WriteBestConfigJSON(cfg, path))

	loaded, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Navigator.K)
	assert.Equal(t, 44, loaded.Navigator.WindowSize)
}

func TestExtractIntervalFromPath(t *testing.T) {
	tests := map[string]string{
		"data/bybit/linear/BTCUSDT/5m/candles.csv": "5m",
		"data/bybit/spot/ETHUSDT/1h/candles.csv":   "1h",
		"candles.csv":                              "",
		"":                                         "",
	}
	for in, want := range tests {
		assert.Equal(t, want, ExtractIntervalFromPath(in), "path %q", in)
	}
}

func TestDefaultOutputDir(t *testing.T) {
	assert.Equal(t, filepath.Join("results", "BTCUSDT_1h"), DefaultOutputDir("btcusdt", "1H"))
	assert.Equal(t, filepath.Join("results", "UNKNOWN_unknown"), DefaultOutputDir("", ""))
}

func TestEnsureDirectoryExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results", "BTCUSDT_1h", "trades.csv")
	require.NoError(t, EnsureDirectoryExists(path))

	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	assert.NoError(t, EnsureDirectoryExists("trades.csv"), "bare file name needs no directory")
}

func TestWriteTradesCSV_CreatesMissingDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results", "BTCUSDT_1h", "trades.csv")
	require.NoError(t, WriteTradesCSV(sampleResults(), path))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}
