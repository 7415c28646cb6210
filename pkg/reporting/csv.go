package reporting

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/trendnav/knn-navigator/internal/backtest"
	"github.com/trendnav/knn-navigator/internal/navigator"
)

const timeLayout = "2006-01-02 15:04:05"

// DefaultCSVReporter implements CSV output functionality.
type DefaultCSVReporter struct{}

// NewDefaultCSVReporter creates a new CSV reporter.
func NewDefaultCSVReporter() *DefaultCSVReporter {
	return &DefaultCSVReporter{}
}

// WriteTradesCSV writes the closed trades to a CSV file. An .xlsx path is
// delegated to the Excel writer.
func (r *DefaultCSVReporter) WriteTradesCSV(results *backtest.Results, path string) error {
	if err := EnsureDirectoryExists(path); err != nil {
		return err
	}

	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return WriteTradesXLSX(results, path)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{
		"Entry_Time",
		"Exit_Time",
		"Entry_Price",
		"Exit_Price",
		"Return_%",
		"Win_Loss",
	}); err != nil {
		return err
	}

	var totalReturn float64
	wins := 0
	for _, t := range results.Trades {
		totalReturn += t.ReturnPct
		winLoss := "L"
		if t.Profitable {
			winLoss = "W"
			wins++
		}
		row := []string{
			t.EntryTime.Format(timeLayout),
			t.ExitTime.Format(timeLayout),
			fmt.Sprintf("%.8f", t.EntryPrice),
			fmt.Sprintf("%.8f", t.ExitPrice),
			fmt.Sprintf("%.4f", t.ReturnPct*100),
			winLoss,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	avgReturn := 0.0
	if len(results.Trades) > 0 {
		avgReturn = totalReturn / float64(len(results.Trades)) * 100
	}
	summary := fmt.Sprintf("SUMMARY: trades=%d; wins=%d; avg_trade_return=%.2f%%; total_return=%.2f%%",
		len(results.Trades), wins, avgReturn, results.TotalReturn*100)

	summaryRow := make([]string, 6)
	summaryRow[5] = summary
	return w.Write(summaryRow)
}

// WriteSignalsCSV writes the per-bar signal table so a run can be inspected
// or charted outside the tool.
func (r *DefaultCSVReporter) WriteSignalsCSV(set *navigator.SignalSet, path string) error {
	if err := EnsureDirectoryExists(path); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{
		"timestamp",
		"close",
		"knn_ma",
		"knn_ma_smoothed",
		"ma_knn_ma",
		"trend",
		"signal",
	}); err != nil {
		return err
	}

	for i := range set.Timestamps {
		row := []string{
			set.Timestamps[i].Format(timeLayout),
			strconv.FormatFloat(set.Price[i], 'f', -1, 64),
			formatSeriesValue(set.KnnMA[i]),
			formatSeriesValue(set.KnnMASmoothed[i]),
			formatSeriesValue(set.MAKnnMA[i]),
			set.Trend[i].String(),
			set.Signals[i].String(),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return nil
}

// formatSeriesValue renders warm-up bars as empty cells instead of "NaN".
func formatSeriesValue(v float64) string {
	if v != v {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteTradesCSV is a package-level convenience function.
func WriteTradesCSV(results *backtest.Results, path string) error {
	return NewDefaultCSVReporter().WriteTradesCSV(results, path)
}

// WriteSignalsCSV is a package-level convenience function.
func WriteSignalsCSV(set *navigator.SignalSet, path string) error {
	return NewDefaultCSVReporter().WriteSignalsCSV(set, path)
}
